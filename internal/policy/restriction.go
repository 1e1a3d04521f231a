package policy

// TicketRestriction is the visibility policy expressed as a composable
// predicate. The ticket repository ANDs it into any query alongside
// caller-supplied filters, so the policy never forces materializing the full
// ticket set. Active clauses combine with logical AND.
type TicketRestriction struct {
	// Unrestricted short-circuits all clauses: the user sees everything.
	Unrestricted bool

	// Empty means no ticket can match. Set when the user has no employee
	// record (and no honored override), when the team clause is active with
	// an empty membership set, or when the location clause is active with a
	// nil company.
	Empty bool

	// AssigneeID, when set, restricts to tickets assigned to this employee
	// (user-scope clause).
	AssigneeID *int64

	// TeamIDs, when non-empty, restricts to tickets whose team_id is in the
	// set (team-scope clause).
	TeamIDs []int64

	// AssigneeCompanyID, when set, restricts to tickets whose assignee
	// belongs to this company (location-scope clause). Unassigned tickets
	// cannot satisfy it.
	AssigneeCompanyID *int64
}

// Unrestricted and Empty restrictions for readability at call sites.
func unrestricted() TicketRestriction { return TicketRestriction{Unrestricted: true} }
func nothing() TicketRestriction      { return TicketRestriction{Empty: true} }

// NarrowToAssignee ANDs an assignee clause onto the restriction. Used by the
// personal ticket surface, which only ever shows the caller's own assignments.
func (r TicketRestriction) NarrowToAssignee(employeeID int64) TicketRestriction {
	if r.Empty {
		return r
	}
	if r.Unrestricted {
		return TicketRestriction{AssigneeID: &employeeID}
	}
	if r.AssigneeID != nil && *r.AssigneeID != employeeID {
		return nothing()
	}
	r.AssigneeID = &employeeID
	return r
}

// NarrowToTeams ANDs a team-membership clause onto the restriction. An empty
// team set can match nothing.
func (r TicketRestriction) NarrowToTeams(teamIDs []int64) TicketRestriction {
	if r.Empty {
		return r
	}
	if len(teamIDs) == 0 {
		return nothing()
	}
	if r.Unrestricted {
		return TicketRestriction{TeamIDs: append([]int64(nil), teamIDs...)}
	}
	if len(r.TeamIDs) == 0 {
		r.TeamIDs = append([]int64(nil), teamIDs...)
		return r
	}
	existing := make(map[int64]struct{}, len(r.TeamIDs))
	for _, id := range r.TeamIDs {
		existing[id] = struct{}{}
	}
	var intersection []int64
	for _, id := range teamIDs {
		if _, ok := existing[id]; ok {
			intersection = append(intersection, id)
		}
	}
	if len(intersection) == 0 {
		return nothing()
	}
	r.TeamIDs = intersection
	return r
}

// MatchesTeam reports whether the given nullable team id satisfies the
// team-scope clause (vacuously true when the clause is inactive).
func (r TicketRestriction) MatchesTeam(teamID *int64) bool {
	if len(r.TeamIDs) == 0 {
		return true
	}
	if teamID == nil {
		return false
	}
	for _, id := range r.TeamIDs {
		if id == *teamID {
			return true
		}
	}
	return false
}
