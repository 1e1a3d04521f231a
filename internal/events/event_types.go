package events

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated      EventType = "ticket_created"
	EventTicketUpdated      EventType = "ticket_updated"
	EventTicketDeleted      EventType = "ticket_deleted"
	EventTicketMessageAdded EventType = "ticket_message_added"
	EventRatingSubmitted    EventType = "rating_submitted"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  int64       `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Subject  string                `json:"subject"`
	TeamID   *int64                `json:"team_id,omitempty"`
	Priority domain.TicketPriority `json:"priority"`
	Stage    domain.TicketStage    `json:"stage"`
}

// TicketUpdatedPayload payload.
type TicketUpdatedPayload struct {
	OldStage    domain.TicketStage `json:"old_stage"`
	NewStage    domain.TicketStage `json:"new_stage"`
	OldAssignee *int64             `json:"old_assignee,omitempty"`
	NewAssignee *int64             `json:"new_assignee,omitempty"`
}

// TicketDeletedPayload payload.
type TicketDeletedPayload struct {
	Subject string `json:"subject"`
}

// TicketMessageAddedPayload payload.
type TicketMessageAddedPayload struct {
	MessageID   int64  `json:"message_id"`
	BodyPreview string `json:"body_preview"`
}

// RatingSubmittedPayload payload.
type RatingSubmittedPayload struct {
	RatingID int64  `json:"rating_id"`
	Rating   int    `json:"rating"`
	TeamID   *int64 `json:"team_id,omitempty"`
}
