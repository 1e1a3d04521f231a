package domain

import "fmt"

// Permission is an enumerated capability identifier. The catalog below is a
// stable contract with the stored role/permission tables; unknown names are
// rejected at load time instead of silently failing string comparisons.
type Permission string

const (
	// Visibility grants. Each one widens what a user can see; the ABSENCE of
	// a grant is what activates the matching restriction clause.
	PermViewOtherLocationsTickets Permission = "can_view_other_locations_tickets"
	PermViewOtherTeamsTickets     Permission = "can_view_other_teams_tickets"
	PermViewOtherUsersTickets     Permission = "can_view_other_users_tickets"

	// Escape hatch for accounts with no employee record. Only honored when
	// policy.Config.AllowWithoutEmployee is set.
	PermViewTicketsEvenNotEmployee Permission = "can_view_tickets_even_not_employee"

	// Per-surface CRUD permissions for the All tickets list.
	PermShowAllTickets   Permission = "show_alltickets"
	PermCreateAllTickets Permission = "create_alltickets"
	PermEditAllTickets   Permission = "edit_alltickets"
	PermDeleteAllTickets Permission = "delete_alltickets"

	// Per-surface CRUD permissions for the Team tickets list.
	PermShowTeamTickets   Permission = "show_teamtickets"
	PermCreateTeamTickets Permission = "create_teamtickets"
	PermEditTeamTickets   Permission = "edit_teamtickets"
	PermDeleteTeamTickets Permission = "delete_teamtickets"

	// Per-surface CRUD permissions for the My tickets list.
	PermShowMyTickets   Permission = "show_mytickets"
	PermCreateMyTickets Permission = "create_mytickets"
	PermEditMyTickets   Permission = "edit_mytickets"
	PermDeleteMyTickets Permission = "delete_mytickets"
)

var permissionCatalog = map[Permission]struct{}{
	PermViewOtherLocationsTickets:  {},
	PermViewOtherTeamsTickets:      {},
	PermViewOtherUsersTickets:      {},
	PermViewTicketsEvenNotEmployee: {},
	PermShowAllTickets:             {},
	PermCreateAllTickets:           {},
	PermEditAllTickets:             {},
	PermDeleteAllTickets:           {},
	PermShowTeamTickets:            {},
	PermCreateTeamTickets:          {},
	PermEditTeamTickets:            {},
	PermDeleteTeamTickets:          {},
	PermShowMyTickets:              {},
	PermCreateMyTickets:            {},
	PermEditMyTickets:              {},
	PermDeleteMyTickets:            {},
}

// ParsePermission validates a stored permission name against the catalog.
func ParsePermission(name string) (Permission, error) {
	p := Permission(name)
	if _, ok := permissionCatalog[p]; !ok {
		return "", fmt.Errorf("unknown permission %q", name)
	}
	return p, nil
}

// PermissionSet is a user's effective permission set: the union of the
// permissions of every role assigned to the user.
type PermissionSet map[Permission]struct{}

// NewPermissionSet builds a set from a slice.
func NewPermissionSet(perms []Permission) PermissionSet {
	set := make(PermissionSet, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}

// Has reports membership.
func (s PermissionSet) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

// HasAll reports whether every given permission is present.
func (s PermissionSet) HasAll(perms ...Permission) bool {
	for _, p := range perms {
		if !s.Has(p) {
			return false
		}
	}
	return true
}
