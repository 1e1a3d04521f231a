package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CreateMessageRequest payload.
type CreateMessageRequest struct {
	Body           string  `json:"body"`
	AttachmentPath *string `json:"attachment_path"`
	AttachmentName *string `json:"attachment_name"`
}

// MessageResponse represents one thread message.
type MessageResponse struct {
	ID             int64     `json:"id"`
	TicketID       int64     `json:"ticket_id"`
	UserID         int64     `json:"user_id"`
	Body           string    `json:"body"`
	AttachmentPath *string   `json:"attachment_path"`
	AttachmentName *string   `json:"attachment_name"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewMessageResponse maps a domain message.
func NewMessageResponse(message *domain.TicketMessage) MessageResponse {
	return MessageResponse{
		ID:             message.ID,
		TicketID:       message.TicketID,
		UserID:         message.UserID,
		Body:           message.Body,
		AttachmentPath: message.AttachmentPath,
		AttachmentName: message.AttachmentName,
		CreatedAt:      message.CreatedAt,
	}
}
