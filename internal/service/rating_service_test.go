package service

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/identity"
	"github.com/spec-kit/helpdesk-service/internal/policy"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

type memRatingRepo struct {
	ratings map[[2]int64]*domain.CustomerRating
	nextID  int64
}

func newMemRatingRepo() *memRatingRepo {
	return &memRatingRepo{ratings: make(map[[2]int64]*domain.CustomerRating), nextID: 1}
}

func (r *memRatingRepo) Create(_ context.Context, rating *domain.CustomerRating) error {
	key := [2]int64{rating.TicketID, rating.CustomerID}
	if _, exists := r.ratings[key]; exists {
		return &pgconn.PgError{Code: "23505", ConstraintName: "uq_customer_ratings_ticket_customer"}
	}
	rating.ID = r.nextID
	r.nextID++
	copied := *rating
	r.ratings[key] = &copied
	return nil
}

func (r *memRatingRepo) GetByTicketAndCustomer(_ context.Context, ticketID, customerID int64) (*domain.CustomerRating, error) {
	if rating, ok := r.ratings[[2]int64{ticketID, customerID}]; ok {
		copied := *rating
		return &copied, nil
	}
	return nil, pgx.ErrNoRows
}

func (r *memRatingRepo) ListWithFilter(_ context.Context, _ repository.RatingFilter) ([]domain.CustomerRating, error) {
	var result []domain.CustomerRating
	for _, rating := range r.ratings {
		result = append(result, *rating)
	}
	return result, nil
}

func (r *memRatingRepo) Statistics(_ context.Context) (*repository.RatingStats, error) {
	return &repository.RatingStats{ByStar: map[int]int64{}}, nil
}

func (r *memRatingRepo) AverageByTeam(_ context.Context, _ policy.TicketRestriction) (map[int64]float64, error) {
	return nil, nil
}

func fixedTime() time.Time {
	return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
}

func newRatingServiceUnderTest(tickets *memTicketRepo, customers *memCustomerStore, grants []domain.Permission) (*RatingService, *memRatingRepo) {
	ratings := newMemRatingRepo()
	employees := &memEmployeeStore{byID: map[int64]*domain.Employee{}, byUserID: map[int64]*domain.Employee{}}
	resolver := identity.NewResolver(employees, &memGrantStore{perms: grants})
	svc := NewRatingService(RatingDependencies{
		RatingRepo:   ratings,
		TicketRepo:   tickets,
		CustomerRepo: customers,
		Resolver:     resolver,
		Dispatcher:   events.NewInMemoryDispatcher(),
	})
	return svc, ratings
}

func TestRatingSubmit(t *testing.T) {
	userID := int64(42)
	customers := &memCustomerStore{byID: map[int64]*domain.Customer{
		9: {ID: 9, UserID: &userID},
	}}
	closedAt := fixedTime()
	tickets := newMemTicketRepo(
		&domain.Ticket{ID: 1, CustomerID: 9, TeamID: int64ptr(3), EmployeeID: int64ptr(7), Stage: domain.StageResolved, ClosedAt: &closedAt},
		&domain.Ticket{ID: 2, CustomerID: 9, Stage: domain.StageOpen},
		&domain.Ticket{ID: 3, CustomerID: 8, Stage: domain.StageClosed, ClosedAt: &closedAt},
	)
	svc, _ := newRatingServiceUnderTest(tickets, customers, nil)
	user := &domain.User{ID: 42}

	t.Run("happy path denormalizes team and assignee", func(t *testing.T) {
		rating, err := svc.Submit(context.Background(), user, RatingSubmitInput{TicketID: 1, Rating: 5, Comment: "fast"})
		if err != nil {
			t.Fatalf("Submit error: %v", err)
		}
		if rating.TeamID == nil || *rating.TeamID != 3 {
			t.Fatalf("TeamID = %v, want 3", rating.TeamID)
		}
		if rating.AssignedEmployeeID == nil || *rating.AssignedEmployeeID != 7 {
			t.Fatalf("AssignedEmployeeID = %v, want 7", rating.AssignedEmployeeID)
		}
	})

	t.Run("duplicate is a conflict", func(t *testing.T) {
		_, err := svc.Submit(context.Background(), user, RatingSubmitInput{TicketID: 1, Rating: 4})
		if err == nil {
			t.Fatal("second Submit succeeded, want conflict")
		}
		if code := apperrors.ToDomainError(err).Code; code != "CONFLICT" {
			t.Fatalf("error code = %q, want CONFLICT", code)
		}
	})

	t.Run("open ticket cannot be rated", func(t *testing.T) {
		_, err := svc.Submit(context.Background(), user, RatingSubmitInput{TicketID: 2, Rating: 5})
		if err == nil {
			t.Fatal("Submit on open ticket succeeded, want validation error")
		}
		if code := apperrors.ToDomainError(err).Code; code != "VALIDATION_FAILED" {
			t.Fatalf("error code = %q, want VALIDATION_FAILED", code)
		}
	})

	t.Run("other customer's ticket is forbidden", func(t *testing.T) {
		_, err := svc.Submit(context.Background(), user, RatingSubmitInput{TicketID: 3, Rating: 5})
		if err == nil {
			t.Fatal("Submit on foreign ticket succeeded, want forbidden")
		}
		if code := apperrors.ToDomainError(err).Code; code != "FORBIDDEN" {
			t.Fatalf("error code = %q, want FORBIDDEN", code)
		}
	})

	t.Run("non customer is forbidden", func(t *testing.T) {
		_, err := svc.Submit(context.Background(), &domain.User{ID: 77}, RatingSubmitInput{TicketID: 1, Rating: 5})
		if err == nil {
			t.Fatal("Submit by non-customer succeeded, want forbidden")
		}
		if code := apperrors.ToDomainError(err).Code; code != "FORBIDDEN" {
			t.Fatalf("error code = %q, want FORBIDDEN", code)
		}
	})

	t.Run("rating range is validated", func(t *testing.T) {
		for _, value := range []int{0, 6, -1} {
			if _, err := svc.Submit(context.Background(), user, RatingSubmitInput{TicketID: 1, Rating: value}); err == nil {
				t.Fatalf("Submit with rating %d succeeded, want validation error", value)
			}
		}
	})
}

func TestRatingListRequiresPermission(t *testing.T) {
	customers := &memCustomerStore{byID: map[int64]*domain.Customer{}}
	svc, _ := newRatingServiceUnderTest(newMemTicketRepo(), customers, nil)

	_, err := svc.List(context.Background(), &domain.User{ID: 1}, repository.RatingFilter{})
	if err == nil {
		t.Fatal("List without permission succeeded, want forbidden")
	}

	svc, _ = newRatingServiceUnderTest(newMemTicketRepo(), customers, []domain.Permission{domain.PermShowAllTickets})
	if _, err := svc.List(context.Background(), &domain.User{ID: 1}, repository.RatingFilter{}); err != nil {
		t.Fatalf("List with permission error: %v", err)
	}
}
