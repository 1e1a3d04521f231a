package domain

import "time"

// HelpdeskTeam is a named ticket queue. Membership is many-to-many with
// employees; tickets reference a team by nullable team_id.
type HelpdeskTeam struct {
	ID          int64
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Tag labels tickets, many-to-many.
type Tag struct {
	ID   int64
	Name string
}
