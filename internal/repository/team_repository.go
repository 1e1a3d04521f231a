package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// TeamRepository handles persistence for helpdesk teams.
type TeamRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.HelpdeskTeam, error)
	List(ctx context.Context) ([]domain.HelpdeskTeam, error)
}

type teamRepository struct {
	pool *pgxpool.Pool
}

// NewTeamRepository instantiates the repository.
func NewTeamRepository(pool *pgxpool.Pool) TeamRepository {
	return &teamRepository{pool: pool}
}

func (r *teamRepository) GetByID(ctx context.Context, id int64) (*domain.HelpdeskTeam, error) {
	const query = `SELECT id, team_name, description, created_at, updated_at FROM helpdesk_teams WHERE id=$1`
	var team domain.HelpdeskTeam
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&team.ID,
		&team.Name,
		&team.Description,
		&team.CreatedAt,
		&team.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &team, nil
}

func (r *teamRepository) List(ctx context.Context) ([]domain.HelpdeskTeam, error) {
	const query = `SELECT id, team_name, description, created_at, updated_at FROM helpdesk_teams ORDER BY team_name`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.HelpdeskTeam
	for rows.Next() {
		var team domain.HelpdeskTeam
		if err := rows.Scan(
			&team.ID,
			&team.Name,
			&team.Description,
			&team.CreatedAt,
			&team.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, team)
	}
	return result, rows.Err()
}
