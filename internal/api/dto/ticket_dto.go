package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Subject     string                `json:"subject"`
	Description string                `json:"description"`
	CustomerID  int64                 `json:"customer_id"`
	TeamID      *int64                `json:"team_id"`
	EmployeeID  *int64                `json:"employee_id"`
	Priority    domain.TicketPriority `json:"priority"`
	Stage       domain.TicketStage    `json:"stage"`
	Deadline    *time.Time            `json:"deadline"`
	TagIDs      []int64               `json:"tag_ids"`
}

// UpdateTicketRequest is a partial update; absent fields stay unchanged.
type UpdateTicketRequest struct {
	Subject       *string                `json:"subject"`
	Description   *string                `json:"description"`
	TeamID        *int64                 `json:"team_id"`
	ClearTeam     bool                   `json:"clear_team"`
	EmployeeID    *int64                 `json:"employee_id"`
	ClearAssignee bool                   `json:"clear_assignee"`
	Priority      *domain.TicketPriority `json:"priority"`
	Stage         *domain.TicketStage    `json:"stage"`
	Deadline      *time.Time             `json:"deadline"`
	TagIDs        []int64                `json:"tag_ids"`
}

// BulkUpdateTicketsRequest payload.
type BulkUpdateTicketsRequest struct {
	IDs        []int64                `json:"ids"`
	Stage      *domain.TicketStage    `json:"stage"`
	Priority   *domain.TicketPriority `json:"priority"`
	TeamID     *int64                 `json:"team_id"`
	EmployeeID *int64                 `json:"employee_id"`
}

// BulkDeleteTicketsRequest payload.
type BulkDeleteTicketsRequest struct {
	IDs []int64 `json:"ids"`
}

// BulkResultResponse reports how many tickets a bulk operation touched.
type BulkResultResponse struct {
	Requested int `json:"requested"`
	Affected  int `json:"affected"`
	Skipped   int `json:"skipped"`
}

// TicketResponse represents a ticket.
type TicketResponse struct {
	ID          int64                 `json:"id"`
	Subject     string                `json:"subject"`
	Description string                `json:"description"`
	CustomerID  int64                 `json:"customer_id"`
	TeamID      *int64                `json:"team_id"`
	EmployeeID  *int64                `json:"employee_id"`
	Priority    domain.TicketPriority `json:"priority"`
	Stage       domain.TicketStage    `json:"stage"`
	Deadline    *time.Time            `json:"deadline"`
	ClosedAt    *time.Time            `json:"closed_at"`
	TagIDs      []int64               `json:"tag_ids"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// NewTicketResponse maps a domain ticket.
func NewTicketResponse(ticket *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:          ticket.ID,
		Subject:     ticket.Subject,
		Description: ticket.Description,
		CustomerID:  ticket.CustomerID,
		TeamID:      ticket.TeamID,
		EmployeeID:  ticket.EmployeeID,
		Priority:    ticket.Priority,
		Stage:       ticket.Stage,
		Deadline:    ticket.Deadline,
		ClosedAt:    ticket.ClosedAt,
		TagIDs:      ticket.TagIDs,
		CreatedAt:   ticket.CreatedAt,
		UpdatedAt:   ticket.UpdatedAt,
	}
}

// TeamResponse represents a helpdesk team.
type TeamResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	TicketCount int64  `json:"ticket_count"`
}

// TagResponse represents a tag.
type TagResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
