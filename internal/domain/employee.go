package domain

import "time"

// Employee is the operational identity of a staff member, distinct from the
// login-capable User. UserID is nullable (staff not yet given a login) and a
// User may exist without an Employee; policy code must treat both absences as
// valid states, not errors.
type Employee struct {
	ID         int64
	UserID     *int64
	FirstName  string
	MiddleName *string
	LastName   string
	Email      string
	Position   string
	CompanyID  *int64
	TeamIDs    []int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// MemberOf reports whether the employee belongs to the given team.
func (e *Employee) MemberOf(teamID int64) bool {
	for _, id := range e.TeamIDs {
		if id == teamID {
			return true
		}
	}
	return false
}

// Company is a location/tenant grouping for employees and customers.
// Scoping compares company ids; Address is plain data.
type Company struct {
	ID        int64
	Name      string
	Address   string
	CreatedAt time.Time
	UpdatedAt time.Time
}
