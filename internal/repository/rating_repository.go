package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/policy"
)

// RatingFilter captures rating list parameters.
type RatingFilter struct {
	Rating *int
	TeamID *int64
	Search *string
	Limit  int
	Offset int
}

// RatingStats summarizes the rating population.
type RatingStats struct {
	Total   int64
	Average float64
	ByStar  map[int]int64
}

// RatingRepository handles persistence for customer ratings. Uniqueness on
// (ticket_id, customer_id) is enforced by a storage constraint, not an
// application lock, so it holds under concurrent submission; Create surfaces
// the violation unchanged for the caller to map to a conflict.
type RatingRepository interface {
	Create(ctx context.Context, rating *domain.CustomerRating) error
	GetByTicketAndCustomer(ctx context.Context, ticketID, customerID int64) (*domain.CustomerRating, error)
	ListWithFilter(ctx context.Context, filter RatingFilter) ([]domain.CustomerRating, error)
	Statistics(ctx context.Context) (*RatingStats, error)
	AverageByTeam(ctx context.Context, restriction policy.TicketRestriction) (map[int64]float64, error)
}

type ratingRepository struct {
	pool *pgxpool.Pool
}

// NewRatingRepository instantiates the repository.
func NewRatingRepository(pool *pgxpool.Pool) RatingRepository {
	return &ratingRepository{pool: pool}
}

const ratingColumns = `id, ticket_id, customer_id, assigned_to_employee_id, team_id, rating, comment, submitted_on, created_at`

func (r *ratingRepository) Create(ctx context.Context, rating *domain.CustomerRating) error {
	const query = `
        INSERT INTO customer_ratings (ticket_id, customer_id, assigned_to_employee_id, team_id, rating, comment, submitted_on)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		rating.TicketID,
		rating.CustomerID,
		rating.AssignedEmployeeID,
		rating.TeamID,
		rating.Rating,
		rating.Comment,
		rating.SubmittedOn,
	).Scan(&rating.ID, &rating.CreatedAt)
}

func (r *ratingRepository) GetByTicketAndCustomer(ctx context.Context, ticketID, customerID int64) (*domain.CustomerRating, error) {
	query := `SELECT ` + ratingColumns + ` FROM customer_ratings WHERE ticket_id=$1 AND customer_id=$2`
	var rating domain.CustomerRating
	if err := r.pool.QueryRow(ctx, query, ticketID, customerID).Scan(
		&rating.ID,
		&rating.TicketID,
		&rating.CustomerID,
		&rating.AssignedEmployeeID,
		&rating.TeamID,
		&rating.Rating,
		&rating.Comment,
		&rating.SubmittedOn,
		&rating.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &rating, nil
}

func (r *ratingRepository) ListWithFilter(ctx context.Context, filter RatingFilter) ([]domain.CustomerRating, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Rating != nil {
		args = append(args, *filter.Rating)
		clauses = append(clauses, fmt.Sprintf("rating=$%d", len(args)))
	}
	if filter.TeamID != nil {
		args = append(args, *filter.TeamID)
		clauses = append(clauses, fmt.Sprintf("team_id=$%d", len(args)))
	}
	if filter.Search != nil && strings.TrimSpace(*filter.Search) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.Search)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("LOWER(comment) LIKE %s", placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 15
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM customer_ratings WHERE %s ORDER BY submitted_on DESC LIMIT %d OFFSET %d`,
		ratingColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.CustomerRating
	for rows.Next() {
		var rating domain.CustomerRating
		if err := rows.Scan(
			&rating.ID,
			&rating.TicketID,
			&rating.CustomerID,
			&rating.AssignedEmployeeID,
			&rating.TeamID,
			&rating.Rating,
			&rating.Comment,
			&rating.SubmittedOn,
			&rating.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, rating)
	}
	return result, rows.Err()
}

func (r *ratingRepository) Statistics(ctx context.Context) (*RatingStats, error) {
	const query = `SELECT COUNT(*), COALESCE(AVG(rating), 0) FROM customer_ratings`
	stats := &RatingStats{ByStar: make(map[int]int64)}
	if err := r.pool.QueryRow(ctx, query).Scan(&stats.Total, &stats.Average); err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `SELECT rating, COUNT(*) FROM customer_ratings GROUP BY rating`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var star int
		var count int64
		if err := rows.Scan(&star, &count); err != nil {
			return nil, err
		}
		stats.ByStar[star] = count
	}
	return stats, rows.Err()
}

func (r *ratingRepository) AverageByTeam(ctx context.Context, restriction policy.TicketRestriction) (map[int64]float64, error) {
	clauses := []string{"cr.team_id IS NOT NULL"}
	args := []any{}
	clauses, args = appendRestriction(clauses, args, restriction, "tickets.")

	// appendRestriction emits ticket-table columns; scope them through the
	// join on the rated ticket.
	query := fmt.Sprintf(`
        SELECT cr.team_id, AVG(cr.rating)
        FROM customer_ratings cr
        JOIN tickets ON tickets.id = cr.ticket_id
        WHERE %s
        GROUP BY cr.team_id`, strings.Join(clauses, " AND "))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	averages := make(map[int64]float64)
	for rows.Next() {
		var teamID int64
		var avg float64
		if err := rows.Scan(&teamID, &avg); err != nil {
			return nil, err
		}
		averages[teamID] = avg
	}
	return averages, rows.Err()
}
