package domain

import "time"

// TicketStage enumerates lifecycle states for tickets.
type TicketStage string

const (
	StageOpen       TicketStage = "Open"
	StageInProgress TicketStage = "In Progress"
	StageResolved   TicketStage = "Resolved"
	StageClosed     TicketStage = "Closed"
)

// ClosesTicket reports whether the stage counts as a finished ticket.
func (s TicketStage) ClosesTicket() bool {
	return s == StageResolved || s == StageClosed
}

// Valid reports whether the stage is one of the known values.
func (s TicketStage) Valid() bool {
	switch s {
	case StageOpen, StageInProgress, StageResolved, StageClosed:
		return true
	}
	return false
}

// TicketPriority enumerates urgency levels.
type TicketPriority string

const (
	PriorityLow    TicketPriority = "Low"
	PriorityMedium TicketPriority = "Medium"
	PriorityHigh   TicketPriority = "High"
	PriorityUrgent TicketPriority = "Urgent"
)

// Valid reports whether the priority is one of the known values.
func (p TicketPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Ticket is the central work item. TeamID and EmployeeID are nullable: a
// ticket may sit in no queue and have no assignee.
type Ticket struct {
	ID          int64
	Subject     string
	Description string
	CustomerID  int64
	TeamID      *int64
	EmployeeID  *int64
	Priority    TicketPriority
	Stage       TicketStage
	Deadline    *time.Time
	ClosedAt    *time.Time
	TagIDs      []int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SyncClosedAt derives ClosedAt from the current stage. Every write path must
// call this before persisting: ClosedAt is non-nil exactly when the stage is
// Resolved or Closed.
func (t *Ticket) SyncClosedAt(now time.Time) {
	if t.Stage.ClosesTicket() {
		if t.ClosedAt == nil {
			at := now
			t.ClosedAt = &at
		}
		return
	}
	t.ClosedAt = nil
}
