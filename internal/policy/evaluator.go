package policy

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// Config carries the policy knobs that differ between deployments.
type Config struct {
	// AllowWithoutEmployee decides whether can_view_tickets_even_not_employee
	// is honored as an escape hatch for users with no employee record. When
	// false (the default), employee-less users see nothing.
	AllowWithoutEmployee bool
}

// IdentityResolver is the slice of the identity package the evaluator needs.
type IdentityResolver interface {
	ResolveEmployee(ctx context.Context, user *domain.User) (*domain.Employee, error)
	EffectivePermissions(ctx context.Context, user *domain.User) (domain.PermissionSet, error)
}

// EmployeeFinder loads an employee by id, for resolving a ticket assignee's
// company in single-ticket checks.
type EmployeeFinder interface {
	GetByID(ctx context.Context, id int64) (*domain.Employee, error)
}

// CustomerFinder loads a customer by id, for the customer-ownership carve-out.
type CustomerFinder interface {
	GetByID(ctx context.Context, id int64) (*domain.Customer, error)
}

// Evaluator is the ticket visibility and action-authorization policy. All
// entry points take the user explicitly; there is no ambient current-user
// state. Infrastructure errors propagate to the caller and are never folded
// into a deny.
type Evaluator struct {
	cfg       Config
	resolver  IdentityResolver
	employees EmployeeFinder
	customers CustomerFinder
}

// NewEvaluator constructs the policy evaluator.
func NewEvaluator(cfg Config, resolver IdentityResolver, employees EmployeeFinder, customers CustomerFinder) *Evaluator {
	return &Evaluator{cfg: cfg, resolver: resolver, employees: employees, customers: customers}
}

// VisibleTo computes the restriction narrowing any ticket query to exactly
// the tickets the user may see.
//
// The permissions are grants to see MORE than your own corner: each
// restriction clause activates on the ABSENCE of its permission, and holding
// all three view grants lifts every clause.
func (e *Evaluator) VisibleTo(ctx context.Context, user *domain.User) (TicketRestriction, error) {
	perms, err := e.resolver.EffectivePermissions(ctx, user)
	if err != nil {
		return TicketRestriction{}, err
	}

	if perms.HasAll(
		domain.PermViewOtherLocationsTickets,
		domain.PermViewOtherTeamsTickets,
		domain.PermViewOtherUsersTickets,
	) {
		return unrestricted(), nil
	}

	employee, err := e.resolver.ResolveEmployee(ctx, user)
	if err != nil {
		return TicketRestriction{}, err
	}
	if employee == nil {
		if e.cfg.AllowWithoutEmployee && perms.Has(domain.PermViewTicketsEvenNotEmployee) {
			return unrestricted(), nil
		}
		return nothing(), nil
	}

	var restriction TicketRestriction
	if !perms.Has(domain.PermViewOtherUsersTickets) {
		id := employee.ID
		restriction.AssigneeID = &id
	}
	if !perms.Has(domain.PermViewOtherTeamsTickets) {
		if len(employee.TeamIDs) == 0 {
			return nothing(), nil
		}
		restriction.TeamIDs = append([]int64(nil), employee.TeamIDs...)
	}
	if !perms.Has(domain.PermViewOtherLocationsTickets) {
		// Strict by design: with no company on record the clause cannot be
		// satisfied, so the result is empty rather than unrestricted.
		if employee.CompanyID == nil {
			return nothing(), nil
		}
		companyID := *employee.CompanyID
		restriction.AssigneeCompanyID = &companyID
	}
	return restriction, nil
}

// CanView is the single-ticket equivalent of VisibleTo, with one addition:
// the customer who filed the ticket can always see it, regardless of the
// employee-based clauses.
func (e *Evaluator) CanView(ctx context.Context, user *domain.User, ticket *domain.Ticket) (bool, error) {
	owns, err := e.ownsAsCustomer(ctx, user, ticket)
	if err != nil {
		return false, err
	}
	if owns {
		return true, nil
	}

	restriction, err := e.VisibleTo(ctx, user)
	if err != nil {
		return false, err
	}
	return e.matches(ctx, restriction, ticket)
}

// CanMutate gates edit and delete on a single ticket. Unlike the AND-composed
// visibility clauses these conditions are alternatives: team membership, or
// direct assignment, or the surface permission for the action.
func (e *Evaluator) CanMutate(ctx context.Context, user *domain.User, ticket *domain.Ticket, action Action, surface Surface) (bool, error) {
	if action != ActionEdit && action != ActionDelete {
		return false, nil
	}

	employee, err := e.resolver.ResolveEmployee(ctx, user)
	if err != nil {
		return false, err
	}
	if employee != nil {
		if ticket.TeamID != nil && employee.MemberOf(*ticket.TeamID) {
			return true, nil
		}
		if ticket.EmployeeID != nil && *ticket.EmployeeID == employee.ID {
			return true, nil
		}
	}

	perm, ok := surface.Permission(action)
	if !ok {
		return false, nil
	}
	perms, err := e.resolver.EffectivePermissions(ctx, user)
	if err != nil {
		return false, err
	}
	return perms.Has(perm), nil
}

// CanJoinTicketChannel authorizes joining the per-ticket chat channel: the
// requester is the ticket's customer, or an employee with view access. The
// realtime transport itself lives outside this core.
func (e *Evaluator) CanJoinTicketChannel(ctx context.Context, user *domain.User, ticket *domain.Ticket) (bool, error) {
	return e.CanView(ctx, user, ticket)
}

func (e *Evaluator) ownsAsCustomer(ctx context.Context, user *domain.User, ticket *domain.Ticket) (bool, error) {
	customer, err := e.customers.GetByID(ctx, ticket.CustomerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return customer.UserID != nil && *customer.UserID == user.ID, nil
}

// matches evaluates a restriction against one ticket, consistent with the
// SQL the repository compiles from the same restriction.
func (e *Evaluator) matches(ctx context.Context, r TicketRestriction, ticket *domain.Ticket) (bool, error) {
	if r.Unrestricted {
		return true, nil
	}
	if r.Empty {
		return false, nil
	}
	if r.AssigneeID != nil {
		if ticket.EmployeeID == nil || *ticket.EmployeeID != *r.AssigneeID {
			return false, nil
		}
	}
	if !r.MatchesTeam(ticket.TeamID) {
		return false, nil
	}
	if r.AssigneeCompanyID != nil {
		if ticket.EmployeeID == nil {
			return false, nil
		}
		assignee, err := e.employees.GetByID(ctx, *ticket.EmployeeID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return false, nil
			}
			return false, err
		}
		if assignee.CompanyID == nil || *assignee.CompanyID != *r.AssigneeCompanyID {
			return false, nil
		}
	}
	return true, nil
}
