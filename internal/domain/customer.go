package domain

import "time"

// Customer is a ticket submitter. It may link to a User for self-service
// logins and to a Company for tenant grouping; both links are optional.
type Customer struct {
	ID         int64
	UserID     *int64
	CompanyID  *int64
	FirstName  string
	MiddleName *string
	LastName   string
	Email      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CustomerRating is per-ticket feedback, at most one per (ticket, customer)
// and only after the ticket reaches a closing stage. TeamID and
// AssignedEmployeeID are denormalized at creation time for reporting.
type CustomerRating struct {
	ID                 int64
	TicketID           int64
	CustomerID         int64
	AssignedEmployeeID *int64
	TeamID             *int64
	Rating             int
	Comment            string
	SubmittedOn        time.Time
	CreatedAt          time.Time
}
