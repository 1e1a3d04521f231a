package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// TagRepository handles tags and the tag/ticket join table.
type TagRepository interface {
	List(ctx context.Context) ([]domain.Tag, error)
	SyncTicketTags(ctx context.Context, ticketID int64, tagIDs []int64) error
}

type tagRepository struct {
	pool *pgxpool.Pool
}

// NewTagRepository instantiates the repository.
func NewTagRepository(pool *pgxpool.Pool) TagRepository {
	return &tagRepository{pool: pool}
}

func (r *tagRepository) List(ctx context.Context) ([]domain.Tag, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM tags ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Tag
	for rows.Next() {
		var tag domain.Tag
		if err := rows.Scan(&tag.ID, &tag.Name); err != nil {
			return nil, err
		}
		result = append(result, tag)
	}
	return result, rows.Err()
}

// SyncTicketTags replaces the ticket's tag set with the given ids.
func (r *tagRepository) SyncTicketTags(ctx context.Context, ticketID int64, tagIDs []int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM tag_ticket WHERE ticket_id=$1`, ticketID); err != nil {
		return err
	}
	if len(tagIDs) > 0 {
		values := make([]string, len(tagIDs))
		args := []any{ticketID}
		for i, tagID := range tagIDs {
			args = append(args, tagID)
			values[i] = fmt.Sprintf("($1,$%d)", len(args))
		}
		query := `INSERT INTO tag_ticket (ticket_id, tag_id) VALUES ` + strings.Join(values, ",")
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
