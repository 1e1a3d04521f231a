package policy

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

type stubResolver struct {
	employee *domain.Employee
	empErr   error
	perms    domain.PermissionSet
	permErr  error
}

func (s *stubResolver) ResolveEmployee(_ context.Context, _ *domain.User) (*domain.Employee, error) {
	return s.employee, s.empErr
}

func (s *stubResolver) EffectivePermissions(_ context.Context, _ *domain.User) (domain.PermissionSet, error) {
	if s.permErr != nil {
		return nil, s.permErr
	}
	return s.perms, nil
}

type fakeEmployeeFinder map[int64]*domain.Employee

func (f fakeEmployeeFinder) GetByID(_ context.Context, id int64) (*domain.Employee, error) {
	if emp, ok := f[id]; ok {
		return emp, nil
	}
	return nil, pgx.ErrNoRows
}

type fakeCustomerFinder map[int64]*domain.Customer

func (f fakeCustomerFinder) GetByID(_ context.Context, id int64) (*domain.Customer, error) {
	if customer, ok := f[id]; ok {
		return customer, nil
	}
	return nil, pgx.ErrNoRows
}

func perms(list ...domain.Permission) domain.PermissionSet {
	return domain.NewPermissionSet(list)
}

var allViewGrants = []domain.Permission{
	domain.PermViewOtherLocationsTickets,
	domain.PermViewOtherTeamsTickets,
	domain.PermViewOtherUsersTickets,
}

func newTestEvaluator(cfg Config, resolver *stubResolver, employees fakeEmployeeFinder, customers fakeCustomerFinder) *Evaluator {
	if employees == nil {
		employees = fakeEmployeeFinder{}
	}
	if customers == nil {
		customers = fakeCustomerFinder{}
	}
	return NewEvaluator(cfg, resolver, employees, customers)
}

func TestVisibleToAllGrantsIsUnrestricted(t *testing.T) {
	ev := newTestEvaluator(Config{}, &stubResolver{perms: perms(allViewGrants...)}, nil, nil)

	got, err := ev.VisibleTo(context.Background(), &domain.User{ID: 1})
	if err != nil {
		t.Fatalf("VisibleTo error: %v", err)
	}
	if !got.Unrestricted {
		t.Fatalf("VisibleTo = %+v, want unrestricted", got)
	}
}

func TestVisibleToNoGrantsActivatesAllClauses(t *testing.T) {
	companyID := int64(4)
	employee := &domain.Employee{ID: 7, TeamIDs: []int64{1, 2}, CompanyID: &companyID}
	ev := newTestEvaluator(Config{}, &stubResolver{employee: employee, perms: perms()}, nil, nil)

	got, err := ev.VisibleTo(context.Background(), &domain.User{ID: 1})
	if err != nil {
		t.Fatalf("VisibleTo error: %v", err)
	}
	if got.Unrestricted || got.Empty {
		t.Fatalf("VisibleTo = %+v, want active clauses", got)
	}
	if got.AssigneeID == nil || *got.AssigneeID != 7 {
		t.Fatalf("AssigneeID = %v, want 7", got.AssigneeID)
	}
	if len(got.TeamIDs) != 2 {
		t.Fatalf("TeamIDs = %v, want employee's teams", got.TeamIDs)
	}
	if got.AssigneeCompanyID == nil || *got.AssigneeCompanyID != 4 {
		t.Fatalf("AssigneeCompanyID = %v, want 4", got.AssigneeCompanyID)
	}
}

func TestVisibleToPartialGrants(t *testing.T) {
	companyID := int64(4)
	employee := &domain.Employee{ID: 7, TeamIDs: []int64{1}, CompanyID: &companyID}
	ev := newTestEvaluator(Config{}, &stubResolver{
		employee: employee,
		perms: perms(
			domain.PermViewOtherUsersTickets,
			domain.PermViewOtherTeamsTickets,
		),
	}, nil, nil)

	got, err := ev.VisibleTo(context.Background(), &domain.User{ID: 1})
	if err != nil {
		t.Fatalf("VisibleTo error: %v", err)
	}
	if got.AssigneeID != nil {
		t.Fatalf("AssigneeID = %v, want nil with user grant held", got.AssigneeID)
	}
	if len(got.TeamIDs) != 0 {
		t.Fatalf("TeamIDs = %v, want empty with team grant held", got.TeamIDs)
	}
	if got.AssigneeCompanyID == nil || *got.AssigneeCompanyID != 4 {
		t.Fatalf("AssigneeCompanyID = %v, want 4 with location grant missing", got.AssigneeCompanyID)
	}
}

func TestVisibleToNoEmployee(t *testing.T) {
	t.Run("default is empty", func(t *testing.T) {
		ev := newTestEvaluator(Config{}, &stubResolver{perms: perms()}, nil, nil)
		got, err := ev.VisibleTo(context.Background(), &domain.User{ID: 1})
		if err != nil {
			t.Fatalf("VisibleTo error: %v", err)
		}
		if !got.Empty {
			t.Fatalf("VisibleTo = %+v, want empty", got)
		}
	})

	t.Run("override honored when configured", func(t *testing.T) {
		ev := newTestEvaluator(Config{AllowWithoutEmployee: true}, &stubResolver{
			perms: perms(domain.PermViewTicketsEvenNotEmployee),
		}, nil, nil)
		got, err := ev.VisibleTo(context.Background(), &domain.User{ID: 1})
		if err != nil {
			t.Fatalf("VisibleTo error: %v", err)
		}
		if !got.Unrestricted {
			t.Fatalf("VisibleTo = %+v, want unrestricted via override", got)
		}
	})

	t.Run("override permission ignored when config off", func(t *testing.T) {
		ev := newTestEvaluator(Config{}, &stubResolver{
			perms: perms(domain.PermViewTicketsEvenNotEmployee),
		}, nil, nil)
		got, err := ev.VisibleTo(context.Background(), &domain.User{ID: 1})
		if err != nil {
			t.Fatalf("VisibleTo error: %v", err)
		}
		if !got.Empty {
			t.Fatalf("VisibleTo = %+v, want empty with config off", got)
		}
	})
}

func TestVisibleToTeamClauseWithNoTeams(t *testing.T) {
	employee := &domain.Employee{ID: 7}
	ev := newTestEvaluator(Config{}, &stubResolver{
		employee: employee,
		perms:    perms(domain.PermViewOtherUsersTickets, domain.PermViewOtherLocationsTickets),
	}, nil, nil)

	got, err := ev.VisibleTo(context.Background(), &domain.User{ID: 1})
	if err != nil {
		t.Fatalf("VisibleTo error: %v", err)
	}
	if !got.Empty {
		t.Fatalf("VisibleTo = %+v, want empty for teamless employee", got)
	}
}

func TestVisibleToLocationClauseWithNoCompany(t *testing.T) {
	employee := &domain.Employee{ID: 7, TeamIDs: []int64{1}}
	ev := newTestEvaluator(Config{}, &stubResolver{
		employee: employee,
		perms:    perms(domain.PermViewOtherUsersTickets, domain.PermViewOtherTeamsTickets),
	}, nil, nil)

	got, err := ev.VisibleTo(context.Background(), &domain.User{ID: 1})
	if err != nil {
		t.Fatalf("VisibleTo error: %v", err)
	}
	if !got.Empty {
		t.Fatalf("VisibleTo = %+v, want empty for companyless employee", got)
	}
}

func TestVisibleToIsIdempotent(t *testing.T) {
	companyID := int64(4)
	employee := &domain.Employee{ID: 7, TeamIDs: []int64{1, 2}, CompanyID: &companyID}
	ev := newTestEvaluator(Config{}, &stubResolver{employee: employee, perms: perms()}, nil, nil)

	first, err := ev.VisibleTo(context.Background(), &domain.User{ID: 1})
	if err != nil {
		t.Fatalf("VisibleTo error: %v", err)
	}
	second, err := ev.VisibleTo(context.Background(), &domain.User{ID: 1})
	if err != nil {
		t.Fatalf("VisibleTo error: %v", err)
	}
	if *first.AssigneeID != *second.AssigneeID || len(first.TeamIDs) != len(second.TeamIDs) {
		t.Fatalf("VisibleTo not stable: %+v vs %+v", first, second)
	}
}

func TestVisibleToPropagatesErrors(t *testing.T) {
	permErr := errors.New("grants unavailable")
	ev := newTestEvaluator(Config{}, &stubResolver{permErr: permErr}, nil, nil)
	if _, err := ev.VisibleTo(context.Background(), &domain.User{ID: 1}); !errors.Is(err, permErr) {
		t.Fatalf("VisibleTo error = %v, want %v", err, permErr)
	}

	empErr := errors.New("employees unavailable")
	ev = newTestEvaluator(Config{}, &stubResolver{perms: perms(), empErr: empErr}, nil, nil)
	if _, err := ev.VisibleTo(context.Background(), &domain.User{ID: 1}); !errors.Is(err, empErr) {
		t.Fatalf("VisibleTo error = %v, want %v", err, empErr)
	}
}

func TestCanViewCustomerCarveOut(t *testing.T) {
	userID := int64(42)
	customers := fakeCustomerFinder{9: {ID: 9, UserID: &userID}}
	// No employee record, no permissions: restriction alone would be empty.
	ev := newTestEvaluator(Config{}, &stubResolver{perms: perms()}, nil, customers)

	ticket := &domain.Ticket{ID: 1, CustomerID: 9}
	got, err := ev.CanView(context.Background(), &domain.User{ID: 42}, ticket)
	if err != nil {
		t.Fatalf("CanView error: %v", err)
	}
	if !got {
		t.Fatal("CanView = false, want true for the filing customer")
	}

	got, err = ev.CanView(context.Background(), &domain.User{ID: 43}, ticket)
	if err != nil {
		t.Fatalf("CanView error: %v", err)
	}
	if got {
		t.Fatal("CanView = true for unrelated user, want false")
	}
}

func TestCanViewMatchesRestrictionSemantics(t *testing.T) {
	companyID := int64(4)
	otherCompany := int64(5)
	me := &domain.Employee{ID: 7, TeamIDs: []int64{1}, CompanyID: &companyID}
	colleague := &domain.Employee{ID: 8, CompanyID: &companyID}
	outsider := &domain.Employee{ID: 9, CompanyID: &otherCompany}
	employees := fakeEmployeeFinder{7: me, 8: colleague, 9: outsider}

	// Team and location grants held, user grant missing: only the assignee
	// clause is active.
	ev := newTestEvaluator(Config{}, &stubResolver{
		employee: me,
		perms:    perms(domain.PermViewOtherTeamsTickets, domain.PermViewOtherLocationsTickets),
	}, employees, nil)

	mine := &domain.Ticket{ID: 1, CustomerID: 100, EmployeeID: int64ptr(7)}
	theirs := &domain.Ticket{ID: 2, CustomerID: 100, EmployeeID: int64ptr(8)}

	got, err := ev.CanView(context.Background(), &domain.User{ID: 1}, mine)
	if err != nil {
		t.Fatalf("CanView error: %v", err)
	}
	if !got {
		t.Fatal("CanView(own assignment) = false, want true")
	}

	got, err = ev.CanView(context.Background(), &domain.User{ID: 1}, theirs)
	if err != nil {
		t.Fatalf("CanView error: %v", err)
	}
	if got {
		t.Fatal("CanView(other assignee) = true, want false")
	}

	// Location clause active: assignee company decides.
	ev = newTestEvaluator(Config{}, &stubResolver{
		employee: me,
		perms:    perms(domain.PermViewOtherTeamsTickets, domain.PermViewOtherUsersTickets),
	}, employees, nil)

	sameCompany := &domain.Ticket{ID: 3, CustomerID: 100, EmployeeID: int64ptr(8)}
	crossCompany := &domain.Ticket{ID: 4, CustomerID: 100, EmployeeID: int64ptr(9)}
	unassigned := &domain.Ticket{ID: 5, CustomerID: 100}

	if got, _ := ev.CanView(context.Background(), &domain.User{ID: 1}, sameCompany); !got {
		t.Fatal("CanView(same company assignee) = false, want true")
	}
	if got, _ := ev.CanView(context.Background(), &domain.User{ID: 1}, crossCompany); got {
		t.Fatal("CanView(cross company assignee) = true, want false")
	}
	if got, _ := ev.CanView(context.Background(), &domain.User{ID: 1}, unassigned); got {
		t.Fatal("CanView(unassigned with active location clause) = true, want false")
	}
}

func TestCanMutate(t *testing.T) {
	me := &domain.Employee{ID: 7, TeamIDs: []int64{1}}
	teamTicket := &domain.Ticket{ID: 1, CustomerID: 100, TeamID: int64ptr(1)}
	myTicket := &domain.Ticket{ID: 2, CustomerID: 100, EmployeeID: int64ptr(7)}
	foreignTicket := &domain.Ticket{ID: 3, CustomerID: 100, TeamID: int64ptr(9), EmployeeID: int64ptr(8)}

	t.Run("team membership allows edit", func(t *testing.T) {
		ev := newTestEvaluator(Config{}, &stubResolver{employee: me, perms: perms()}, nil, nil)
		got, err := ev.CanMutate(context.Background(), &domain.User{ID: 1}, teamTicket, ActionEdit, SurfaceAll)
		if err != nil {
			t.Fatalf("CanMutate error: %v", err)
		}
		if !got {
			t.Fatal("CanMutate = false, want true via team membership")
		}
	})

	t.Run("direct assignment allows delete", func(t *testing.T) {
		ev := newTestEvaluator(Config{}, &stubResolver{employee: me, perms: perms()}, nil, nil)
		got, err := ev.CanMutate(context.Background(), &domain.User{ID: 1}, myTicket, ActionDelete, SurfaceMy)
		if err != nil {
			t.Fatalf("CanMutate error: %v", err)
		}
		if !got {
			t.Fatal("CanMutate = false, want true via assignment")
		}
	})

	t.Run("surface permission allows edit of foreign ticket", func(t *testing.T) {
		ev := newTestEvaluator(Config{}, &stubResolver{
			employee: me,
			perms:    perms(domain.PermEditAllTickets),
		}, nil, nil)
		got, err := ev.CanMutate(context.Background(), &domain.User{ID: 1}, foreignTicket, ActionEdit, SurfaceAll)
		if err != nil {
			t.Fatalf("CanMutate error: %v", err)
		}
		if !got {
			t.Fatal("CanMutate = false, want true via edit_alltickets")
		}
	})

	t.Run("no alternative matches", func(t *testing.T) {
		ev := newTestEvaluator(Config{}, &stubResolver{employee: me, perms: perms()}, nil, nil)
		got, err := ev.CanMutate(context.Background(), &domain.User{ID: 1}, foreignTicket, ActionEdit, SurfaceAll)
		if err != nil {
			t.Fatalf("CanMutate error: %v", err)
		}
		if got {
			t.Fatal("CanMutate = true, want false with no alternative satisfied")
		}
	})

	t.Run("works without employee record via permission", func(t *testing.T) {
		ev := newTestEvaluator(Config{}, &stubResolver{perms: perms(domain.PermDeleteAllTickets)}, nil, nil)
		got, err := ev.CanMutate(context.Background(), &domain.User{ID: 1}, foreignTicket, ActionDelete, SurfaceAll)
		if err != nil {
			t.Fatalf("CanMutate error: %v", err)
		}
		if !got {
			t.Fatal("CanMutate = false, want true via delete_alltickets")
		}
	})

	t.Run("rejects non-mutating actions", func(t *testing.T) {
		ev := newTestEvaluator(Config{}, &stubResolver{employee: me, perms: perms(domain.PermShowAllTickets)}, nil, nil)
		got, err := ev.CanMutate(context.Background(), &domain.User{ID: 1}, foreignTicket, ActionShow, SurfaceAll)
		if err != nil {
			t.Fatalf("CanMutate error: %v", err)
		}
		if got {
			t.Fatal("CanMutate(show) = true, want false")
		}
	})
}

func TestCanJoinTicketChannel(t *testing.T) {
	userID := int64(42)
	customers := fakeCustomerFinder{9: {ID: 9, UserID: &userID}}
	ev := newTestEvaluator(Config{}, &stubResolver{perms: perms()}, nil, customers)

	ticket := &domain.Ticket{ID: 1, CustomerID: 9}
	got, err := ev.CanJoinTicketChannel(context.Background(), &domain.User{ID: 42}, ticket)
	if err != nil {
		t.Fatalf("CanJoinTicketChannel error: %v", err)
	}
	if !got {
		t.Fatal("CanJoinTicketChannel = false, want true for the customer")
	}

	got, err = ev.CanJoinTicketChannel(context.Background(), &domain.User{ID: 77}, ticket)
	if err != nil {
		t.Fatalf("CanJoinTicketChannel error: %v", err)
	}
	if got {
		t.Fatal("CanJoinTicketChannel = true for stranger, want false")
	}
}
