package adapter

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	call "charla/internal/pkg/call/domain"
	repository "charla/internal/pkg/call/persistence/repository/port"
)

// PgCallRepository implements the call archive on PostgreSQL.
type PgCallRepository struct {
	pool *pgxpool.Pool
}

func NewPgCallRepository(pool *pgxpool.Pool) *PgCallRepository {
	return &PgCallRepository{pool: pool}
}

var _ repository.CallRepository = (*PgCallRepository)(nil)

func (r *PgCallRepository) SaveRecord(ctx context.Context, rec call.Record) error {
	const q = `
		INSERT INTO calls (id, conversation_id, caller_id, callee_id, media, status, started_at, ended_at, duration, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING`
	var conversationID *string
	if rec.ConversationID != "" {
		conversationID = &rec.ConversationID
	}
	_, err := r.pool.Exec(ctx, q,
		rec.ID, conversationID, rec.CallerID, rec.CalleeID,
		string(rec.Media), string(rec.Status), rec.StartedAt, rec.EndedAt, rec.Duration, rec.Reason,
	)
	if err != nil {
		return fmt.Errorf("pg: save call: %w", err)
	}
	return nil
}

func (r *PgCallRepository) ListByConversation(ctx context.Context, conversationID string, limit int) ([]call.Record, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	const q = `
		SELECT id, conversation_id, caller_id, callee_id, media, status, started_at, ended_at, duration, reason, created_at
		FROM calls WHERE conversation_id = $1
		ORDER BY created_at DESC LIMIT $2`
	rows, err := r.pool.Query(ctx, q, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("pg: list calls: %w", err)
	}
	defer rows.Close()

	var out []call.Record
	for rows.Next() {
		var rec call.Record
		var media, status string
		err := rows.Scan(&rec.ID, &rec.ConversationID, &rec.CallerID, &rec.CalleeID,
			&media, &status, &rec.StartedAt, &rec.EndedAt, &rec.Duration, &rec.Reason, &rec.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("pg: list calls scan: %w", err)
		}
		rec.Media = call.Media(media)
		rec.Status = call.Status(status)
		out = append(out, rec)
	}
	return out, rows.Err()
}
