package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/policy"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// MessageService manages ticket conversation threads. Both reading and
// posting require ticket visibility, which already covers the filing customer
// through the ownership carve-out.
type MessageService struct {
	messages   repository.TicketMessageRepository
	tickets    repository.TicketRepository
	policy     *policy.Evaluator
	dispatcher events.Dispatcher
}

// MessageDependencies bundles collaborators for the message service.
type MessageDependencies struct {
	MessageRepo repository.TicketMessageRepository
	TicketRepo  repository.TicketRepository
	Policy      *policy.Evaluator
	Dispatcher  events.Dispatcher
}

// NewMessageService constructs the service.
func NewMessageService(deps MessageDependencies) *MessageService {
	return &MessageService{
		messages:   deps.MessageRepo,
		tickets:    deps.TicketRepo,
		policy:     deps.Policy,
		dispatcher: deps.Dispatcher,
	}
}

// MessagePostInput describes a new thread message.
type MessagePostInput struct {
	TicketID       int64
	Body           string
	AttachmentPath *string
	AttachmentName *string
}

// Post appends a message to the ticket thread.
func (s *MessageService) Post(ctx context.Context, user *domain.User, input MessagePostInput) (*domain.TicketMessage, error) {
	body := strings.TrimSpace(input.Body)
	if body == "" && input.AttachmentPath == nil {
		return nil, apperrors.NewValidationError("message body or attachment required", nil)
	}

	ticket, err := s.loadVisible(ctx, user, input.TicketID)
	if err != nil {
		return nil, err
	}

	message := &domain.TicketMessage{
		TicketID:       ticket.ID,
		UserID:         user.ID,
		Body:           body,
		AttachmentPath: input.AttachmentPath,
		AttachmentName: input.AttachmentName,
	}
	if err := s.messages.Create(ctx, message); err != nil {
		return nil, apperrors.MapError(err)
	}

	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventTicketMessageAdded,
		TicketID:  ticket.ID,
		Actor:     events.Actor{UserID: user.ID, Email: user.Email},
		Timestamp: time.Now().UTC(),
		Payload: events.TicketMessageAddedPayload{
			MessageID:   message.ID,
			BodyPreview: preview(body, 120),
		},
	})
	return message, nil
}

// List returns the ticket's messages, newest first.
func (s *MessageService) List(ctx context.Context, user *domain.User, ticketID int64, limit, offset int) ([]domain.TicketMessage, error) {
	if _, err := s.loadVisible(ctx, user, ticketID); err != nil {
		return nil, err
	}
	messages, err := s.messages.ListByTicket(ctx, ticketID, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return messages, nil
}

func (s *MessageService) loadVisible(ctx context.Context, user *domain.User, ticketID int64) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	visible, err := s.policy.CanView(ctx, user, ticket)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, apperrors.NewForbidden("ticket not accessible")
	}
	return ticket, nil
}

func preview(body string, max int) string {
	if len(body) <= max {
		return body
	}
	return body[:max]
}
