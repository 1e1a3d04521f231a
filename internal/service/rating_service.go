package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/identity"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// RatingService handles customer satisfaction ratings.
type RatingService struct {
	ratings    repository.RatingRepository
	tickets    repository.TicketRepository
	customers  repository.CustomerRepository
	resolver   *identity.Resolver
	dispatcher events.Dispatcher
}

// RatingDependencies bundles collaborators for the rating service.
type RatingDependencies struct {
	RatingRepo   repository.RatingRepository
	TicketRepo   repository.TicketRepository
	CustomerRepo repository.CustomerRepository
	Resolver     *identity.Resolver
	Dispatcher   events.Dispatcher
}

// NewRatingService constructs the service.
func NewRatingService(deps RatingDependencies) *RatingService {
	return &RatingService{
		ratings:    deps.RatingRepo,
		tickets:    deps.TicketRepo,
		customers:  deps.CustomerRepo,
		resolver:   deps.Resolver,
		dispatcher: deps.Dispatcher,
	}
}

// RatingSubmitInput describes a rating submission.
type RatingSubmitInput struct {
	TicketID int64
	Rating   int
	Comment  string
}

// Submit records a one-time rating by the ticket's customer. The ticket must
// already be resolved or closed. The second submission for the same ticket and
// customer fails with a conflict, backed by a unique constraint so the rule
// holds under concurrent requests.
func (s *RatingService) Submit(ctx context.Context, user *domain.User, input RatingSubmitInput) (*domain.CustomerRating, error) {
	if input.Rating < 1 || input.Rating > 5 {
		return nil, apperrors.NewValidationError("rating must be between 1 and 5", map[string]any{"rating": input.Rating})
	}

	customer, err := s.customers.GetByUserID(ctx, user.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewForbidden("only customers can rate tickets")
		}
		return nil, apperrors.MapError(err)
	}

	ticket, err := s.tickets.GetByID(ctx, input.TicketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"id": input.TicketID})
		}
		return nil, apperrors.MapError(err)
	}
	if ticket.CustomerID != customer.ID {
		return nil, apperrors.NewForbidden("ticket belongs to another customer")
	}
	if !ticket.Stage.ClosesTicket() {
		return nil, apperrors.NewValidationError("ticket must be resolved or closed before rating", map[string]any{"stage": ticket.Stage})
	}

	rating := &domain.CustomerRating{
		TicketID:           ticket.ID,
		CustomerID:         customer.ID,
		AssignedEmployeeID: ticket.EmployeeID,
		TeamID:             ticket.TeamID,
		Rating:             input.Rating,
		Comment:            input.Comment,
		SubmittedOn:        time.Now().UTC(),
	}
	if err := s.ratings.Create(ctx, rating); err != nil {
		if apperrors.IsUniqueViolation(err) {
			return nil, apperrors.NewConflict("ticket already rated", map[string]any{"ticket_id": ticket.ID})
		}
		return nil, apperrors.MapError(err)
	}

	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventRatingSubmitted,
		TicketID:  ticket.ID,
		Actor:     events.Actor{UserID: user.ID, Email: user.Email},
		Timestamp: time.Now().UTC(),
		Payload: events.RatingSubmittedPayload{
			RatingID: rating.ID,
			Rating:   rating.Rating,
			TeamID:   rating.TeamID,
		},
	})
	return rating, nil
}

// List returns ratings for review staff, gated on the all-tickets surface.
func (s *RatingService) List(ctx context.Context, user *domain.User, filter repository.RatingFilter) ([]domain.CustomerRating, error) {
	if err := s.requireReviewer(ctx, user); err != nil {
		return nil, err
	}
	ratings, err := s.ratings.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return ratings, nil
}

// Statistics summarizes the rating population for review staff.
func (s *RatingService) Statistics(ctx context.Context, user *domain.User) (*repository.RatingStats, error) {
	if err := s.requireReviewer(ctx, user); err != nil {
		return nil, err
	}
	stats, err := s.ratings.Statistics(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return stats, nil
}

func (s *RatingService) requireReviewer(ctx context.Context, user *domain.User) error {
	allowed, err := s.resolver.HasPermissionTo(ctx, user, domain.PermShowAllTickets)
	if err != nil {
		return err
	}
	if !allowed {
		return apperrors.NewForbidden("missing permission to review ratings")
	}
	return nil
}
