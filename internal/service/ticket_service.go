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
	"github.com/spec-kit/helpdesk-service/internal/identity"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/policy"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// TicketService coordinates ticket workflows. Every read and write goes
// through the policy evaluator; the service never widens what the caller's
// restriction allows.
type TicketService struct {
	tickets    repository.TicketRepository
	tags       repository.TagRepository
	teams      repository.TeamRepository
	resolver   *identity.Resolver
	policy     *policy.Evaluator
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
}

// TicketDependencies bundles collaborators for ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	TagRepo    repository.TagRepository
	TeamRepo   repository.TeamRepository
	Resolver   *identity.Resolver
	Policy     *policy.Evaluator
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		tags:       deps.TagRepo,
		teams:      deps.TeamRepo,
		resolver:   deps.Resolver,
		policy:     deps.Policy,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
	}
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Subject     string
	Description string
	CustomerID  int64
	TeamID      *int64
	EmployeeID  *int64
	Priority    domain.TicketPriority
	Stage       domain.TicketStage
	Deadline    *time.Time
	TagIDs      []int64
}

// TicketUpdateInput is a partial update; nil fields are left untouched.
type TicketUpdateInput struct {
	Subject       *string
	Description   *string
	TeamID        *int64
	ClearTeam     bool
	EmployeeID    *int64
	ClearAssignee bool
	Priority      *domain.TicketPriority
	Stage         *domain.TicketStage
	Deadline      *time.Time
	TagIDs        []int64
}

// TicketBulkPatch describes the fields a bulk update may change.
type TicketBulkPatch struct {
	Stage      *domain.TicketStage
	Priority   *domain.TicketPriority
	TeamID     *int64
	EmployeeID *int64
}

// visibleScope authorizes surface access and returns the restriction for the
// given surface: the policy restriction ANDed with the surface narrowing.
func (s *TicketService) visibleScope(ctx context.Context, user *domain.User, surface policy.Surface) (policy.TicketRestriction, error) {
	perm, ok := surface.Permission(policy.ActionShow)
	if !ok {
		return policy.TicketRestriction{}, apperrors.NewValidationError("unknown ticket surface", nil)
	}
	allowed, err := s.resolver.HasPermissionTo(ctx, user, perm)
	if err != nil {
		return policy.TicketRestriction{}, err
	}
	if !allowed {
		s.metrics.RecordAccessDenied(string(surface), string(policy.ActionShow))
		return policy.TicketRestriction{}, apperrors.NewForbidden("missing permission for this ticket surface")
	}

	restriction, err := s.policy.VisibleTo(ctx, user)
	if err != nil {
		return policy.TicketRestriction{}, err
	}

	switch surface {
	case policy.SurfaceMy:
		employee, err := s.resolver.ResolveEmployee(ctx, user)
		if err != nil {
			return policy.TicketRestriction{}, err
		}
		if employee == nil {
			return policy.TicketRestriction{Empty: true}, nil
		}
		restriction = restriction.NarrowToAssignee(employee.ID)
	case policy.SurfaceTeam:
		employee, err := s.resolver.ResolveEmployee(ctx, user)
		if err != nil {
			return policy.TicketRestriction{}, err
		}
		if employee == nil {
			return policy.TicketRestriction{Empty: true}, nil
		}
		restriction = restriction.NarrowToTeams(employee.TeamIDs)
	}
	return restriction, nil
}

// List returns the tickets on a surface the user may see, filtered.
func (s *TicketService) List(ctx context.Context, user *domain.User, surface policy.Surface, filter repository.TicketFilter) ([]domain.Ticket, error) {
	restriction, err := s.visibleScope(ctx, user, surface)
	if err != nil {
		return nil, err
	}
	tickets, err := s.tickets.ListWithFilter(ctx, restriction, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// Get loads one ticket, enforcing single-ticket visibility.
func (s *TicketService) Get(ctx context.Context, user *domain.User, id int64) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"id": id})
		}
		return nil, apperrors.MapError(err)
	}
	visible, err := s.policy.CanView(ctx, user, ticket)
	if err != nil {
		return nil, err
	}
	if !visible {
		s.metrics.RecordAccessDenied("ticket", string(policy.ActionShow))
		return nil, apperrors.NewForbidden("ticket not accessible")
	}
	return ticket, nil
}

// Create files a new ticket through the given surface.
func (s *TicketService) Create(ctx context.Context, user *domain.User, surface policy.Surface, input TicketCreateInput) (*domain.Ticket, error) {
	perm, ok := surface.Permission(policy.ActionCreate)
	if !ok {
		return nil, apperrors.NewValidationError("unknown ticket surface", nil)
	}
	allowed, err := s.resolver.HasPermissionTo(ctx, user, perm)
	if err != nil {
		return nil, err
	}
	if !allowed {
		s.metrics.RecordAccessDenied(string(surface), string(policy.ActionCreate))
		return nil, apperrors.NewForbidden("missing permission to create tickets")
	}

	subject := strings.TrimSpace(input.Subject)
	if subject == "" {
		return nil, apperrors.NewValidationError("subject is required", nil)
	}
	if input.Priority == "" {
		input.Priority = domain.PriorityMedium
	}
	if !input.Priority.Valid() {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": input.Priority})
	}
	if input.Stage == "" {
		input.Stage = domain.StageOpen
	}
	if !input.Stage.Valid() {
		return nil, apperrors.NewValidationError("invalid stage", map[string]any{"stage": input.Stage})
	}

	ticket := &domain.Ticket{
		Subject:     subject,
		Description: input.Description,
		CustomerID:  input.CustomerID,
		TeamID:      input.TeamID,
		EmployeeID:  input.EmployeeID,
		Priority:    input.Priority,
		Stage:       input.Stage,
		Deadline:    input.Deadline,
	}
	ticket.SyncClosedAt(time.Now().UTC())

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	if len(input.TagIDs) > 0 {
		if err := s.tags.SyncTicketTags(ctx, ticket.ID, input.TagIDs); err != nil {
			return nil, apperrors.MapError(err)
		}
		ticket.TagIDs = append([]int64(nil), input.TagIDs...)
	}

	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventTicketCreated,
		TicketID:  ticket.ID,
		Actor:     events.Actor{UserID: user.ID, Email: user.Email},
		Timestamp: time.Now().UTC(),
		Payload: events.TicketCreatedPayload{
			Subject:  ticket.Subject,
			TeamID:   ticket.TeamID,
			Priority: ticket.Priority,
			Stage:    ticket.Stage,
		},
	})
	return ticket, nil
}

// Update modifies a ticket when the caller passes the mutation policy.
func (s *TicketService) Update(ctx context.Context, user *domain.User, surface policy.Surface, id int64, input TicketUpdateInput) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"id": id})
		}
		return nil, apperrors.MapError(err)
	}

	allowed, err := s.policy.CanMutate(ctx, user, ticket, policy.ActionEdit, surface)
	if err != nil {
		return nil, err
	}
	if !allowed {
		s.metrics.RecordAccessDenied(string(surface), string(policy.ActionEdit))
		return nil, apperrors.NewForbidden("not allowed to edit this ticket")
	}

	oldStage := ticket.Stage
	oldAssignee := ticket.EmployeeID
	if err := applyTicketUpdate(ticket, input); err != nil {
		return nil, err
	}
	ticket.SyncClosedAt(time.Now().UTC())

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	if input.TagIDs != nil {
		if err := s.tags.SyncTicketTags(ctx, ticket.ID, input.TagIDs); err != nil {
			return nil, apperrors.MapError(err)
		}
		ticket.TagIDs = append([]int64(nil), input.TagIDs...)
	}

	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventTicketUpdated,
		TicketID:  ticket.ID,
		Actor:     events.Actor{UserID: user.ID, Email: user.Email},
		Timestamp: time.Now().UTC(),
		Payload: events.TicketUpdatedPayload{
			OldStage:    oldStage,
			NewStage:    ticket.Stage,
			OldAssignee: oldAssignee,
			NewAssignee: ticket.EmployeeID,
		},
	})
	return ticket, nil
}

// Delete removes a ticket when the caller passes the mutation policy.
func (s *TicketService) Delete(ctx context.Context, user *domain.User, surface policy.Surface, id int64) error {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("ticket", map[string]any{"id": id})
		}
		return apperrors.MapError(err)
	}

	allowed, err := s.policy.CanMutate(ctx, user, ticket, policy.ActionDelete, surface)
	if err != nil {
		return err
	}
	if !allowed {
		s.metrics.RecordAccessDenied(string(surface), string(policy.ActionDelete))
		return apperrors.NewForbidden("not allowed to delete this ticket")
	}

	if err := s.tickets.Delete(ctx, ticket.ID); err != nil {
		return apperrors.MapError(err)
	}

	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventTicketDeleted,
		TicketID:  ticket.ID,
		Actor:     events.Actor{UserID: user.ID, Email: user.Email},
		Timestamp: time.Now().UTC(),
		Payload:   events.TicketDeletedPayload{Subject: ticket.Subject},
	})
	return nil
}

// BulkUpdate applies the patch to every authorized ticket in ids and returns
// how many were changed. Unauthorized and missing tickets are skipped, not
// errors; infrastructure failures abort the whole run.
func (s *TicketService) BulkUpdate(ctx context.Context, user *domain.User, surface policy.Surface, ids []int64, patch TicketBulkPatch) (int, error) {
	if patch.Stage != nil && !patch.Stage.Valid() {
		return 0, apperrors.NewValidationError("invalid stage", map[string]any{"stage": *patch.Stage})
	}
	if patch.Priority != nil && !patch.Priority.Valid() {
		return 0, apperrors.NewValidationError("invalid priority", map[string]any{"priority": *patch.Priority})
	}

	updated := 0
	for _, id := range ids {
		ticket, err := s.tickets.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				continue
			}
			return updated, apperrors.MapError(err)
		}

		allowed, err := s.policy.CanMutate(ctx, user, ticket, policy.ActionEdit, surface)
		if err != nil {
			return updated, err
		}
		if !allowed {
			s.metrics.RecordAccessDenied(string(surface), string(policy.ActionEdit))
			continue
		}

		if patch.Stage != nil {
			ticket.Stage = *patch.Stage
		}
		if patch.Priority != nil {
			ticket.Priority = *patch.Priority
		}
		if patch.TeamID != nil {
			ticket.TeamID = patch.TeamID
		}
		if patch.EmployeeID != nil {
			ticket.EmployeeID = patch.EmployeeID
		}
		ticket.SyncClosedAt(time.Now().UTC())

		if err := s.tickets.Update(ctx, ticket); err != nil {
			return updated, apperrors.MapError(err)
		}
		updated++
	}
	return updated, nil
}

// BulkDelete removes every authorized ticket in ids and returns how many were
// deleted, with the same skip semantics as BulkUpdate.
func (s *TicketService) BulkDelete(ctx context.Context, user *domain.User, surface policy.Surface, ids []int64) (int, error) {
	deleted := 0
	for _, id := range ids {
		ticket, err := s.tickets.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				continue
			}
			return deleted, apperrors.MapError(err)
		}

		allowed, err := s.policy.CanMutate(ctx, user, ticket, policy.ActionDelete, surface)
		if err != nil {
			return deleted, err
		}
		if !allowed {
			s.metrics.RecordAccessDenied(string(surface), string(policy.ActionDelete))
			continue
		}

		if err := s.tickets.Delete(ctx, ticket.ID); err != nil {
			return deleted, apperrors.MapError(err)
		}
		deleted++
	}
	return deleted, nil
}

// AuthorizeChannel decides whether the user may join the ticket's realtime
// channel.
func (s *TicketService) AuthorizeChannel(ctx context.Context, user *domain.User, ticketID int64) (bool, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, apperrors.NewNotFound("ticket", map[string]any{"id": ticketID})
		}
		return false, apperrors.MapError(err)
	}
	return s.policy.CanJoinTicketChannel(ctx, user, ticket)
}

// TeamSummary pairs a helpdesk team with the count of tickets the requesting
// user can see in it.
type TeamSummary struct {
	Team        domain.HelpdeskTeam
	TicketCount int64
}

// ListTeams returns all helpdesk teams with per-team visible ticket counts.
func (s *TicketService) ListTeams(ctx context.Context, user *domain.User) ([]TeamSummary, error) {
	teams, err := s.teams.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	restriction, err := s.policy.VisibleTo(ctx, user)
	if err != nil {
		return nil, err
	}
	counts, err := s.tickets.CountByTeam(ctx, restriction)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	summaries := make([]TeamSummary, 0, len(teams))
	for _, team := range teams {
		summaries = append(summaries, TeamSummary{Team: team, TicketCount: counts[team.ID]})
	}
	return summaries, nil
}

// ListTags returns all tags.
func (s *TicketService) ListTags(ctx context.Context) ([]domain.Tag, error) {
	tags, err := s.tags.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tags, nil
}

func applyTicketUpdate(ticket *domain.Ticket, input TicketUpdateInput) error {
	if input.Subject != nil {
		subject := strings.TrimSpace(*input.Subject)
		if subject == "" {
			return apperrors.NewValidationError("subject cannot be empty", nil)
		}
		ticket.Subject = subject
	}
	if input.Description != nil {
		ticket.Description = *input.Description
	}
	if input.ClearTeam {
		ticket.TeamID = nil
	} else if input.TeamID != nil {
		ticket.TeamID = input.TeamID
	}
	if input.ClearAssignee {
		ticket.EmployeeID = nil
	} else if input.EmployeeID != nil {
		ticket.EmployeeID = input.EmployeeID
	}
	if input.Priority != nil {
		if !input.Priority.Valid() {
			return apperrors.NewValidationError("invalid priority", map[string]any{"priority": *input.Priority})
		}
		ticket.Priority = *input.Priority
	}
	if input.Stage != nil {
		if !input.Stage.Valid() {
			return apperrors.NewValidationError("invalid stage", map[string]any{"stage": *input.Stage})
		}
		ticket.Stage = *input.Stage
	}
	if input.Deadline != nil {
		ticket.Deadline = input.Deadline
	}
	return nil
}
