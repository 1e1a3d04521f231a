package domain

import (
	"strings"
	"time"
)

// User is the authentication identity. It may or may not be linked to an
// Employee (staff operational identity) or a Customer; both links are
// resolved lazily, never stored here.
type User struct {
	ID           int64
	FirstName    string
	MiddleName   *string
	LastName     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FullName joins the name parts for display.
func (u *User) FullName() string {
	parts := []string{u.FirstName}
	if u.MiddleName != nil && *u.MiddleName != "" {
		parts = append(parts, *u.MiddleName)
	}
	parts = append(parts, u.LastName)
	return strings.Join(parts, " ")
}

// Role is a named permission bundle. Role names are load-bearing: code-level
// checks match against them exactly.
type Role struct {
	ID          int64
	Name        string
	Description string
}
