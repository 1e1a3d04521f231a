package policy

import "github.com/spec-kit/helpdesk-service/internal/domain"

// Surface identifies one of the parallel ticket-list views. Each surface has
// its own CRUD permission namespace.
type Surface string

const (
	SurfaceAll  Surface = "alltickets"
	SurfaceTeam Surface = "teamtickets"
	SurfaceMy   Surface = "mytickets"
)

// Action is a gated ticket operation.
type Action string

const (
	ActionShow   Action = "show"
	ActionCreate Action = "create"
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
)

var surfacePermissions = map[Surface]map[Action]domain.Permission{
	SurfaceAll: {
		ActionShow:   domain.PermShowAllTickets,
		ActionCreate: domain.PermCreateAllTickets,
		ActionEdit:   domain.PermEditAllTickets,
		ActionDelete: domain.PermDeleteAllTickets,
	},
	SurfaceTeam: {
		ActionShow:   domain.PermShowTeamTickets,
		ActionCreate: domain.PermCreateTeamTickets,
		ActionEdit:   domain.PermEditTeamTickets,
		ActionDelete: domain.PermDeleteTeamTickets,
	},
	SurfaceMy: {
		ActionShow:   domain.PermShowMyTickets,
		ActionCreate: domain.PermCreateMyTickets,
		ActionEdit:   domain.PermEditMyTickets,
		ActionDelete: domain.PermDeleteMyTickets,
	},
}

// Permission returns the catalog permission gating the action on this surface.
func (s Surface) Permission(a Action) (domain.Permission, bool) {
	actions, ok := surfacePermissions[s]
	if !ok {
		return "", false
	}
	perm, ok := actions[a]
	return perm, ok
}

// Valid reports whether the surface is known.
func (s Surface) Valid() bool {
	_, ok := surfacePermissions[s]
	return ok
}
