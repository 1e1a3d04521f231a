package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// SubmitRatingRequest payload.
type SubmitRatingRequest struct {
	TicketID int64  `json:"ticket_id"`
	Rating   int    `json:"rating"`
	Comment  string `json:"comment"`
}

// RatingResponse represents a customer rating.
type RatingResponse struct {
	ID                 int64     `json:"id"`
	TicketID           int64     `json:"ticket_id"`
	CustomerID         int64     `json:"customer_id"`
	AssignedEmployeeID *int64    `json:"assigned_to_employee_id"`
	TeamID             *int64    `json:"team_id"`
	Rating             int       `json:"rating"`
	Comment            string    `json:"comment"`
	SubmittedOn        time.Time `json:"submitted_on"`
}

// NewRatingResponse maps a domain rating.
func NewRatingResponse(rating *domain.CustomerRating) RatingResponse {
	return RatingResponse{
		ID:                 rating.ID,
		TicketID:           rating.TicketID,
		CustomerID:         rating.CustomerID,
		AssignedEmployeeID: rating.AssignedEmployeeID,
		TeamID:             rating.TeamID,
		Rating:             rating.Rating,
		Comment:            rating.Comment,
		SubmittedOn:        rating.SubmittedOn,
	}
}

// RatingStatsResponse summarizes ratings.
type RatingStatsResponse struct {
	Total   int64         `json:"total"`
	Average float64       `json:"average"`
	ByStar  map[int]int64 `json:"by_star"`
}
