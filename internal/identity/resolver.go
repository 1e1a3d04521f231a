package identity

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// EmployeeStore is the slice of employee persistence the resolver needs.
// Implementations return pgx.ErrNoRows on a miss and load team memberships
// eagerly.
type EmployeeStore interface {
	GetByUserID(ctx context.Context, userID int64) (*domain.Employee, error)
	GetByEmail(ctx context.Context, email string) (*domain.Employee, error)
}

// GrantStore provides the role/permission graph for a user.
type GrantStore interface {
	ListRoleNames(ctx context.Context, userID int64) ([]string, error)
	ListPermissions(ctx context.Context, userID int64) ([]domain.Permission, error)
}

// Resolver produces the identity facts policy decisions are made from: the
// user's linked employee, role names and effective permission set. It is
// read-only and computes everything fresh per call.
type Resolver struct {
	employees EmployeeStore
	grants    GrantStore
}

// NewResolver constructs the resolver.
func NewResolver(employees EmployeeStore, grants GrantStore) *Resolver {
	return &Resolver{employees: employees, grants: grants}
}

// ResolveEmployee looks up the employee linked to the user, preferring the
// user_id foreign key and falling back to email equality. The fallback covers
// environments where account linkage lags behind HR onboarding. A miss is a
// valid state and returns (nil, nil); store errors propagate untouched so
// callers cannot mistake an outage for a permission-less user.
func (r *Resolver) ResolveEmployee(ctx context.Context, user *domain.User) (*domain.Employee, error) {
	employee, err := r.employees.GetByUserID(ctx, user.ID)
	if err == nil {
		return employee, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if user.Email == "" {
		return nil, nil
	}
	employee, err = r.employees.GetByEmail(ctx, user.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return employee, nil
}

// EffectivePermissions returns the union of permission names across all roles
// assigned to the user.
func (r *Resolver) EffectivePermissions(ctx context.Context, user *domain.User) (domain.PermissionSet, error) {
	perms, err := r.grants.ListPermissions(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return domain.NewPermissionSet(perms), nil
}

// HasRole checks an exact, case-sensitive match against the user's role names.
func (r *Resolver) HasRole(ctx context.Context, user *domain.User, name string) (bool, error) {
	names, err := r.grants.ListRoleNames(ctx, user.ID)
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

// HasPermissionTo is a membership test against EffectivePermissions.
func (r *Resolver) HasPermissionTo(ctx context.Context, user *domain.User, perm domain.Permission) (bool, error) {
	set, err := r.EffectivePermissions(ctx, user)
	if err != nil {
		return false, err
	}
	return set.Has(perm), nil
}
