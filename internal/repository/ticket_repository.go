package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/policy"
)

// TicketFilter captures caller-supplied list parameters. It is always applied
// on top of a policy restriction, never instead of one.
type TicketFilter struct {
	Search       *string
	Stage        *domain.TicketStage
	Priority     *domain.TicketPriority
	TeamID       *int64
	AssigneeID   *int64
	Unassigned   bool
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
	DeadlineFrom *time.Time
	DeadlineTo   *time.Time
	SortField    string
	SortDesc     bool
	Limit        int
	Offset       int
}

// StageStats aggregates visible ticket counts per stage.
type StageStats struct {
	Total      int64
	Open       int64
	InProgress int64
	Resolved   int64
	Closed     int64
}

// MonthlyTrendPoint is one month of created/resolved counts.
type MonthlyTrendPoint struct {
	Month    string
	Created  int64
	Resolved int64
}

// TeamPerformance aggregates visible tickets per team.
type TeamPerformance struct {
	TeamID   int64
	TeamName string
	Total    int64
	Resolved int64
}

// TicketRepository encapsulates ticket persistence. Every read takes the
// caller's policy restriction and compiles it into the query.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, restriction policy.TicketRestriction, filter TicketFilter) ([]domain.Ticket, error)
	CountVisible(ctx context.Context, restriction policy.TicketRestriction) (int64, error)
	CountByTeam(ctx context.Context, restriction policy.TicketRestriction) (map[int64]int64, error)
	StageStatistics(ctx context.Context, restriction policy.TicketRestriction) (*StageStats, error)
	PriorityBreakdown(ctx context.Context, restriction policy.TicketRestriction) (map[domain.TicketPriority]int64, error)
	MonthlyTrend(ctx context.Context, restriction policy.TicketRestriction, months int) ([]MonthlyTrendPoint, error)
	TeamPerformanceStats(ctx context.Context, restriction policy.TicketRestriction) ([]TeamPerformance, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates the repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, subject, description, customer_id, team_id, employee_id, priority, stage, deadline, closed_at, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (subject, description, customer_id, team_id, employee_id, priority, stage, deadline, closed_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.Subject,
		ticket.Description,
		ticket.CustomerID,
		ticket.TeamID,
		ticket.EmployeeID,
		ticket.Priority,
		ticket.Stage,
		ticket.Deadline,
		ticket.ClosedAt,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET subject=$1, description=$2, customer_id=$3, team_id=$4, employee_id=$5,
            priority=$6, stage=$7, deadline=$8, closed_at=$9, updated_at=NOW()
        WHERE id=$10`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.Subject,
		ticket.Description,
		ticket.CustomerID,
		ticket.TeamID,
		ticket.EmployeeID,
		ticket.Priority,
		ticket.Stage,
		ticket.Deadline,
		ticket.ClosedAt,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id=$1`, id).Scan(
		&ticket.ID,
		&ticket.Subject,
		&ticket.Description,
		&ticket.CustomerID,
		&ticket.TeamID,
		&ticket.EmployeeID,
		&ticket.Priority,
		&ticket.Stage,
		&ticket.Deadline,
		&ticket.ClosedAt,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	tagIDs, err := r.tagIDs(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}
	ticket.TagIDs = tagIDs
	return &ticket, nil
}

func (r *ticketRepository) tagIDs(ctx context.Context, ticketID int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT tag_id FROM tag_ticket WHERE ticket_id=$1 ORDER BY tag_id`, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// appendRestriction compiles the visibility restriction into WHERE clauses
// against the ticket table named by prefix (empty for unjoined queries).
// Clause AND-composition mirrors policy.Evaluator.matches exactly.
func appendRestriction(clauses []string, args []any, restriction policy.TicketRestriction, prefix string) ([]string, []any) {
	if restriction.Unrestricted {
		return clauses, args
	}
	if restriction.Empty {
		return append(clauses, "1=0"), args
	}
	if restriction.AssigneeID != nil {
		args = append(args, *restriction.AssigneeID)
		clauses = append(clauses, fmt.Sprintf("%semployee_id=$%d", prefix, len(args)))
	}
	if len(restriction.TeamIDs) > 0 {
		placeholders := make([]string, len(restriction.TeamIDs))
		for i, teamID := range restriction.TeamIDs {
			args = append(args, teamID)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("%steam_id IN (%s)", prefix, strings.Join(placeholders, ",")))
	}
	if restriction.AssigneeCompanyID != nil {
		args = append(args, *restriction.AssigneeCompanyID)
		clauses = append(clauses, fmt.Sprintf(
			"%semployee_id IN (SELECT id FROM employees WHERE company_id=$%d)", prefix, len(args)))
	}
	return clauses, args
}

var ticketSortFields = map[string]string{
	"id":         "id",
	"subject":    "subject",
	"priority":   "priority",
	"stage":      "stage",
	"deadline":   "deadline",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, restriction policy.TicketRestriction, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}
	clauses, args = appendRestriction(clauses, args, restriction, "")

	if filter.Search != nil && strings.TrimSpace(*filter.Search) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.Search)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf(
			"(LOWER(subject) LIKE %s OR CAST(id AS TEXT) LIKE %s)", placeholder, placeholder))
	}
	if filter.Stage != nil {
		args = append(args, *filter.Stage)
		clauses = append(clauses, fmt.Sprintf("stage=$%d", len(args)))
	}
	if filter.Priority != nil {
		args = append(args, *filter.Priority)
		clauses = append(clauses, fmt.Sprintf("priority=$%d", len(args)))
	}
	if filter.TeamID != nil {
		args = append(args, *filter.TeamID)
		clauses = append(clauses, fmt.Sprintf("team_id=$%d", len(args)))
	}
	if filter.AssigneeID != nil {
		args = append(args, *filter.AssigneeID)
		clauses = append(clauses, fmt.Sprintf("employee_id=$%d", len(args)))
	}
	if filter.Unassigned {
		clauses = append(clauses, "employee_id IS NULL")
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.DeadlineFrom != nil {
		args = append(args, *filter.DeadlineFrom)
		clauses = append(clauses, fmt.Sprintf("deadline >= $%d", len(args)))
	}
	if filter.DeadlineTo != nil {
		args = append(args, *filter.DeadlineTo)
		clauses = append(clauses, fmt.Sprintf("deadline <= $%d", len(args)))
	}

	orderBy := "created_at DESC"
	if column, ok := ticketSortFields[filter.SortField]; ok {
		direction := "ASC"
		if filter.SortDesc {
			direction = "DESC"
		}
		orderBy = column + " " + direction
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 15
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY %s LIMIT %d OFFSET %d`,
		ticketColumns, strings.Join(clauses, " AND "), orderBy, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) CountVisible(ctx context.Context, restriction policy.TicketRestriction) (int64, error) {
	clauses := []string{"1=1"}
	args := []any{}
	clauses, args = appendRestriction(clauses, args, restriction, "")

	query := fmt.Sprintf(`SELECT COUNT(*) FROM tickets WHERE %s`, strings.Join(clauses, " AND "))
	var count int64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ticketRepository) CountByTeam(ctx context.Context, restriction policy.TicketRestriction) (map[int64]int64, error) {
	clauses := []string{"team_id IS NOT NULL"}
	args := []any{}
	clauses, args = appendRestriction(clauses, args, restriction, "")

	query := fmt.Sprintf(`SELECT team_id, COUNT(*) FROM tickets WHERE %s GROUP BY team_id`,
		strings.Join(clauses, " AND "))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[int64]int64)
	for rows.Next() {
		var teamID, count int64
		if err := rows.Scan(&teamID, &count); err != nil {
			return nil, err
		}
		counts[teamID] = count
	}
	return counts, rows.Err()
}

func (r *ticketRepository) StageStatistics(ctx context.Context, restriction policy.TicketRestriction) (*StageStats, error) {
	clauses := []string{"1=1"}
	args := []any{}
	clauses, args = appendRestriction(clauses, args, restriction, "")

	query := fmt.Sprintf(`
        SELECT COUNT(*),
               COUNT(*) FILTER (WHERE stage = 'Open'),
               COUNT(*) FILTER (WHERE stage = 'In Progress'),
               COUNT(*) FILTER (WHERE stage = 'Resolved'),
               COUNT(*) FILTER (WHERE stage = 'Closed')
        FROM tickets WHERE %s`, strings.Join(clauses, " AND "))

	var stats StageStats
	if err := r.pool.QueryRow(ctx, query, args...).Scan(
		&stats.Total,
		&stats.Open,
		&stats.InProgress,
		&stats.Resolved,
		&stats.Closed,
	); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (r *ticketRepository) PriorityBreakdown(ctx context.Context, restriction policy.TicketRestriction) (map[domain.TicketPriority]int64, error) {
	clauses := []string{"1=1"}
	args := []any{}
	clauses, args = appendRestriction(clauses, args, restriction, "")

	query := fmt.Sprintf(`SELECT priority, COUNT(*) FROM tickets WHERE %s GROUP BY priority`,
		strings.Join(clauses, " AND "))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	breakdown := make(map[domain.TicketPriority]int64)
	for rows.Next() {
		var priority domain.TicketPriority
		var count int64
		if err := rows.Scan(&priority, &count); err != nil {
			return nil, err
		}
		breakdown[priority] = count
	}
	return breakdown, rows.Err()
}

func (r *ticketRepository) MonthlyTrend(ctx context.Context, restriction policy.TicketRestriction, months int) ([]MonthlyTrendPoint, error) {
	if months <= 0 {
		months = 6
	}
	clauses := []string{"1=1"}
	args := []any{}
	clauses, args = appendRestriction(clauses, args, restriction, "")

	args = append(args, months)
	clauses = append(clauses, fmt.Sprintf("created_at >= NOW() - ($%d || ' months')::interval", len(args)))

	query := fmt.Sprintf(`
        SELECT TO_CHAR(created_at, 'YYYY-MM') AS month,
               COUNT(*),
               COUNT(*) FILTER (WHERE stage = 'Resolved')
        FROM tickets WHERE %s
        GROUP BY month ORDER BY month`, strings.Join(clauses, " AND "))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trend []MonthlyTrendPoint
	for rows.Next() {
		var point MonthlyTrendPoint
		if err := rows.Scan(&point.Month, &point.Created, &point.Resolved); err != nil {
			return nil, err
		}
		trend = append(trend, point)
	}
	return trend, rows.Err()
}

func (r *ticketRepository) TeamPerformanceStats(ctx context.Context, restriction policy.TicketRestriction) ([]TeamPerformance, error) {
	clauses := []string{"1=1"}
	args := []any{}
	clauses, args = appendRestriction(clauses, args, restriction, "t.")

	query := fmt.Sprintf(`
        SELECT t.team_id, ht.team_name,
               COUNT(t.id),
               COUNT(t.id) FILTER (WHERE t.stage = 'Resolved')
        FROM tickets t
        JOIN helpdesk_teams ht ON ht.id = t.team_id
        WHERE %s
        GROUP BY t.team_id, ht.team_name
        ORDER BY ht.team_name`, strings.Join(clauses, " AND "))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []TeamPerformance
	for rows.Next() {
		var perf TeamPerformance
		if err := rows.Scan(&perf.TeamID, &perf.TeamName, &perf.Total, &perf.Resolved); err != nil {
			return nil, err
		}
		result = append(result, perf)
	}
	return result, rows.Err()
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.Subject,
			&ticket.Description,
			&ticket.CustomerID,
			&ticket.TeamID,
			&ticket.EmployeeID,
			&ticket.Priority,
			&ticket.Stage,
			&ticket.Deadline,
			&ticket.ClosedAt,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
