package service

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/identity"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/policy"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

func int64ptr(v int64) *int64 { return &v }

type memTicketRepo struct {
	tickets map[int64]*domain.Ticket
	nextID  int64
}

func newMemTicketRepo(tickets ...*domain.Ticket) *memTicketRepo {
	repo := &memTicketRepo{tickets: make(map[int64]*domain.Ticket), nextID: 1}
	for _, ticket := range tickets {
		copied := *ticket
		repo.tickets[ticket.ID] = &copied
		if ticket.ID >= repo.nextID {
			repo.nextID = ticket.ID + 1
		}
	}
	return repo
}

func (r *memTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	ticket.ID = r.nextID
	r.nextID++
	copied := *ticket
	r.tickets[ticket.ID] = &copied
	return nil
}

func (r *memTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	if _, ok := r.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	copied := *ticket
	r.tickets[ticket.ID] = &copied
	return nil
}

func (r *memTicketRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.tickets[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.tickets, id)
	return nil
}

func (r *memTicketRepo) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *ticket
	return &copied, nil
}

func (r *memTicketRepo) ListWithFilter(_ context.Context, restriction policy.TicketRestriction, _ repository.TicketFilter) ([]domain.Ticket, error) {
	if restriction.Empty {
		return nil, nil
	}
	var result []domain.Ticket
	for _, ticket := range r.tickets {
		if restriction.Unrestricted {
			result = append(result, *ticket)
			continue
		}
		if restriction.AssigneeID != nil {
			if ticket.EmployeeID == nil || *ticket.EmployeeID != *restriction.AssigneeID {
				continue
			}
		}
		if !restriction.MatchesTeam(ticket.TeamID) {
			continue
		}
		result = append(result, *ticket)
	}
	return result, nil
}

func (r *memTicketRepo) CountVisible(ctx context.Context, restriction policy.TicketRestriction) (int64, error) {
	tickets, err := r.ListWithFilter(ctx, restriction, repository.TicketFilter{})
	return int64(len(tickets)), err
}

func (r *memTicketRepo) CountByTeam(ctx context.Context, restriction policy.TicketRestriction) (map[int64]int64, error) {
	tickets, err := r.ListWithFilter(ctx, restriction, repository.TicketFilter{})
	if err != nil {
		return nil, err
	}
	counts := make(map[int64]int64)
	for _, ticket := range tickets {
		if ticket.TeamID != nil {
			counts[*ticket.TeamID]++
		}
	}
	return counts, nil
}

func (r *memTicketRepo) StageStatistics(_ context.Context, _ policy.TicketRestriction) (*repository.StageStats, error) {
	return &repository.StageStats{}, nil
}

func (r *memTicketRepo) PriorityBreakdown(_ context.Context, _ policy.TicketRestriction) (map[domain.TicketPriority]int64, error) {
	return nil, nil
}

func (r *memTicketRepo) MonthlyTrend(_ context.Context, _ policy.TicketRestriction, _ int) ([]repository.MonthlyTrendPoint, error) {
	return nil, nil
}

func (r *memTicketRepo) TeamPerformanceStats(_ context.Context, _ policy.TicketRestriction) ([]repository.TeamPerformance, error) {
	return nil, nil
}

type memTagRepo struct{}

func (memTagRepo) List(_ context.Context) ([]domain.Tag, error)               { return nil, nil }
func (memTagRepo) SyncTicketTags(_ context.Context, _ int64, _ []int64) error { return nil }

type memTeamRepo struct{}

func (memTeamRepo) GetByID(_ context.Context, _ int64) (*domain.HelpdeskTeam, error) {
	return nil, pgx.ErrNoRows
}
func (memTeamRepo) List(_ context.Context) ([]domain.HelpdeskTeam, error) { return nil, nil }

type memEmployeeStore struct {
	byID     map[int64]*domain.Employee
	byUserID map[int64]*domain.Employee
}

func (s *memEmployeeStore) GetByID(_ context.Context, id int64) (*domain.Employee, error) {
	if emp, ok := s.byID[id]; ok {
		return emp, nil
	}
	return nil, pgx.ErrNoRows
}

func (s *memEmployeeStore) GetByUserID(_ context.Context, userID int64) (*domain.Employee, error) {
	if emp, ok := s.byUserID[userID]; ok {
		return emp, nil
	}
	return nil, pgx.ErrNoRows
}

func (s *memEmployeeStore) GetByEmail(_ context.Context, _ string) (*domain.Employee, error) {
	return nil, pgx.ErrNoRows
}

type memGrantStore struct {
	perms []domain.Permission
}

func (s *memGrantStore) ListRoleNames(_ context.Context, _ int64) ([]string, error) { return nil, nil }
func (s *memGrantStore) ListPermissions(_ context.Context, _ int64) ([]domain.Permission, error) {
	return s.perms, nil
}

type memCustomerStore struct {
	byID map[int64]*domain.Customer
}

func (s *memCustomerStore) GetByID(_ context.Context, id int64) (*domain.Customer, error) {
	if customer, ok := s.byID[id]; ok {
		return customer, nil
	}
	return nil, pgx.ErrNoRows
}

func (s *memCustomerStore) GetByUserID(_ context.Context, userID int64) (*domain.Customer, error) {
	for _, customer := range s.byID {
		if customer.UserID != nil && *customer.UserID == userID {
			return customer, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func newServiceUnderTest(tickets *memTicketRepo, employee *domain.Employee, grants []domain.Permission) *TicketService {
	employees := &memEmployeeStore{
		byID:     map[int64]*domain.Employee{},
		byUserID: map[int64]*domain.Employee{},
	}
	if employee != nil {
		employees.byID[employee.ID] = employee
		employees.byUserID[1] = employee
	}
	resolver := identity.NewResolver(employees, &memGrantStore{perms: grants})
	evaluator := policy.NewEvaluator(policy.Config{}, resolver, employees, &memCustomerStore{byID: map[int64]*domain.Customer{}})

	return NewTicketService(TicketDependencies{
		TicketRepo: tickets,
		TagRepo:    memTagRepo{},
		TeamRepo:   memTeamRepo{},
		Resolver:   resolver,
		Policy:     evaluator,
		Dispatcher: events.NewInMemoryDispatcher(),
		Metrics:    observability.NewMetrics(),
	})
}

func TestBulkUpdateSkipsUnauthorizedAndCounts(t *testing.T) {
	me := &domain.Employee{ID: 7, TeamIDs: []int64{1}}
	repo := newMemTicketRepo(
		&domain.Ticket{ID: 1, CustomerID: 100, TeamID: int64ptr(1), Stage: domain.StageOpen, Priority: domain.PriorityLow},
		&domain.Ticket{ID: 2, CustomerID: 100, EmployeeID: int64ptr(7), Stage: domain.StageOpen, Priority: domain.PriorityLow},
		&domain.Ticket{ID: 3, CustomerID: 100, TeamID: int64ptr(9), EmployeeID: int64ptr(8), Stage: domain.StageOpen, Priority: domain.PriorityLow},
	)
	svc := newServiceUnderTest(repo, me, nil)
	user := &domain.User{ID: 1, Email: "agent@example.com"}

	stage := domain.StageClosed
	updated, err := svc.BulkUpdate(context.Background(), user, policy.SurfaceTeam, []int64{1, 2, 3, 99}, TicketBulkPatch{Stage: &stage})
	if err != nil {
		t.Fatalf("BulkUpdate error: %v", err)
	}
	if updated != 2 {
		t.Fatalf("BulkUpdate = %d, want 2", updated)
	}

	for _, id := range []int64{1, 2} {
		ticket, _ := repo.GetByID(context.Background(), id)
		if ticket.Stage != domain.StageClosed {
			t.Errorf("ticket %d stage = %q, want Closed", id, ticket.Stage)
		}
		if ticket.ClosedAt == nil {
			t.Errorf("ticket %d closed_at = nil after closing", id)
		}
	}
	untouched, _ := repo.GetByID(context.Background(), 3)
	if untouched.Stage != domain.StageOpen {
		t.Fatalf("unauthorized ticket stage = %q, want Open", untouched.Stage)
	}
}

func TestBulkDeleteSkipsUnauthorizedAndCounts(t *testing.T) {
	me := &domain.Employee{ID: 7, TeamIDs: []int64{1}}
	repo := newMemTicketRepo(
		&domain.Ticket{ID: 1, CustomerID: 100, TeamID: int64ptr(1), Stage: domain.StageOpen},
		&domain.Ticket{ID: 2, CustomerID: 100, EmployeeID: int64ptr(7), Stage: domain.StageOpen},
		&domain.Ticket{ID: 3, CustomerID: 100, TeamID: int64ptr(9), Stage: domain.StageOpen},
	)
	svc := newServiceUnderTest(repo, me, nil)
	user := &domain.User{ID: 1, Email: "agent@example.com"}

	deleted, err := svc.BulkDelete(context.Background(), user, policy.SurfaceTeam, []int64{1, 2, 3})
	if err != nil {
		t.Fatalf("BulkDelete error: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("BulkDelete = %d, want 2", deleted)
	}
	if _, err := repo.GetByID(context.Background(), 3); err != nil {
		t.Fatal("unauthorized ticket was deleted")
	}
	if _, err := repo.GetByID(context.Background(), 1); !errors.Is(err, pgx.ErrNoRows) {
		t.Fatal("authorized ticket 1 was not deleted")
	}
}

func TestListRequiresSurfacePermission(t *testing.T) {
	me := &domain.Employee{ID: 7, TeamIDs: []int64{1}}
	repo := newMemTicketRepo()
	svc := newServiceUnderTest(repo, me, nil)

	_, err := svc.List(context.Background(), &domain.User{ID: 1}, policy.SurfaceAll, repository.TicketFilter{})
	if err == nil {
		t.Fatal("List without show permission succeeded, want forbidden")
	}
	domainErr := apperrors.ToDomainError(err)
	if domainErr.Code != "FORBIDDEN" {
		t.Fatalf("error code = %q, want FORBIDDEN", domainErr.Code)
	}
}

func TestListMySurfaceNarrowsToOwnAssignments(t *testing.T) {
	me := &domain.Employee{ID: 7, TeamIDs: []int64{1}}
	repo := newMemTicketRepo(
		&domain.Ticket{ID: 1, CustomerID: 100, TeamID: int64ptr(1), EmployeeID: int64ptr(7), Stage: domain.StageOpen},
		&domain.Ticket{ID: 2, CustomerID: 100, TeamID: int64ptr(1), EmployeeID: int64ptr(8), Stage: domain.StageOpen},
	)
	grants := []domain.Permission{
		domain.PermShowMyTickets,
		domain.PermViewOtherUsersTickets,
		domain.PermViewOtherTeamsTickets,
		domain.PermViewOtherLocationsTickets,
	}
	svc := newServiceUnderTest(repo, me, grants)

	tickets, err := svc.List(context.Background(), &domain.User{ID: 1}, policy.SurfaceMy, repository.TicketFilter{})
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(tickets) != 1 || tickets[0].ID != 1 {
		t.Fatalf("List = %+v, want only the caller's assignment", tickets)
	}
}

func TestUpdateForbiddenForOutsider(t *testing.T) {
	me := &domain.Employee{ID: 7, TeamIDs: []int64{1}}
	repo := newMemTicketRepo(
		&domain.Ticket{ID: 3, CustomerID: 100, TeamID: int64ptr(9), EmployeeID: int64ptr(8), Stage: domain.StageOpen},
	)
	svc := newServiceUnderTest(repo, me, nil)

	subject := "hijack"
	_, err := svc.Update(context.Background(), &domain.User{ID: 1}, policy.SurfaceAll, 3, TicketUpdateInput{Subject: &subject})
	if err == nil {
		t.Fatal("Update succeeded, want forbidden")
	}
	if code := apperrors.ToDomainError(err).Code; code != "FORBIDDEN" {
		t.Fatalf("error code = %q, want FORBIDDEN", code)
	}
}

func TestCreateSyncsClosedAt(t *testing.T) {
	me := &domain.Employee{ID: 7, TeamIDs: []int64{1}}
	repo := newMemTicketRepo()
	svc := newServiceUnderTest(repo, me, []domain.Permission{domain.PermCreateAllTickets})

	ticket, err := svc.Create(context.Background(), &domain.User{ID: 1}, policy.SurfaceAll, TicketCreateInput{
		Subject:    "printer on fire",
		CustomerID: 100,
		Stage:      domain.StageResolved,
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if ticket.ClosedAt == nil {
		t.Fatal("ClosedAt = nil for resolved ticket, want set")
	}

	open, err := svc.Create(context.Background(), &domain.User{ID: 1}, policy.SurfaceAll, TicketCreateInput{
		Subject:    "keyboard sticky",
		CustomerID: 100,
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if open.Stage != domain.StageOpen {
		t.Fatalf("default stage = %q, want Open", open.Stage)
	}
	if open.ClosedAt != nil {
		t.Fatalf("ClosedAt = %v for open ticket, want nil", open.ClosedAt)
	}
}
