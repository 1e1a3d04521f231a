package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// TicketMessageRepository handles persistence for ticket conversation threads.
type TicketMessageRepository interface {
	Create(ctx context.Context, message *domain.TicketMessage) error
	ListByTicket(ctx context.Context, ticketID int64, limit, offset int) ([]domain.TicketMessage, error)
	CountByTicket(ctx context.Context, ticketID int64) (int64, error)
}

type ticketMessageRepository struct {
	pool *pgxpool.Pool
}

// NewTicketMessageRepository instantiates the repository.
func NewTicketMessageRepository(pool *pgxpool.Pool) TicketMessageRepository {
	return &ticketMessageRepository{pool: pool}
}

func (r *ticketMessageRepository) Create(ctx context.Context, message *domain.TicketMessage) error {
	const query = `
        INSERT INTO ticket_messages (ticket_id, user_id, body, attachment_path, attachment_name)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		message.TicketID,
		message.UserID,
		message.Body,
		message.AttachmentPath,
		message.AttachmentName,
	).Scan(&message.ID, &message.CreatedAt)
}

// ListByTicket returns messages newest first; callers reverse for display.
func (r *ticketMessageRepository) ListByTicket(ctx context.Context, ticketID int64, limit, offset int) ([]domain.TicketMessage, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT id, ticket_id, user_id, body, attachment_path, attachment_name, created_at
        FROM ticket_messages WHERE ticket_id=$1
        ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, ticketID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketMessage
	for rows.Next() {
		var message domain.TicketMessage
		if err := rows.Scan(
			&message.ID,
			&message.TicketID,
			&message.UserID,
			&message.Body,
			&message.AttachmentPath,
			&message.AttachmentName,
			&message.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, message)
	}
	return result, rows.Err()
}

func (r *ticketMessageRepository) CountByTicket(ctx context.Context, ticketID int64) (int64, error) {
	var count int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM ticket_messages WHERE ticket_id=$1`, ticketID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
