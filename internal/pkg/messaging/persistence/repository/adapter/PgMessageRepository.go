package adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	messaging "charla/internal/pkg/messaging/domain"
	repository "charla/internal/pkg/messaging/persistence/repository/port"
)

// PgMessageRepository implements the message repository on PostgreSQL.
type PgMessageRepository struct {
	pool *pgxpool.Pool
}

func NewPgMessageRepository(pool *pgxpool.Pool) *PgMessageRepository {
	return &PgMessageRepository{pool: pool}
}

var _ repository.MessageRepository = (*PgMessageRepository)(nil)

func (r *PgMessageRepository) IsMember(ctx context.Context, conversationID string, userID string) (bool, error) {
	const q = `SELECT EXISTS(
		SELECT 1 FROM conversation_members WHERE conversation_id = $1 AND user_id = $2
	)`
	var ok bool
	if err := r.pool.QueryRow(ctx, q, conversationID, userID).Scan(&ok); err != nil {
		return false, fmt.Errorf("pg: is member: %w", err)
	}
	return ok, nil
}

func (r *PgMessageRepository) MemberIDs(ctx context.Context, conversationID string) ([]string, error) {
	const q = `SELECT user_id FROM conversation_members WHERE conversation_id = $1`
	rows, err := r.pool.Query(ctx, q, conversationID)
	if err != nil {
		return nil, fmt.Errorf("pg: member ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("pg: member ids scan: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *PgMessageRepository) SaveMessage(ctx context.Context, m messaging.Message) (string, time.Time, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("pg: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const insert = `
		INSERT INTO messages (conversation_id, sender_id, msg_type, body, media_ref, reply_to, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`
	var (
		id        string
		createdAt time.Time
	)
	err = tx.QueryRow(ctx, insert,
		m.ConversationID, m.From, string(m.Type), m.Text, m.MediaRef, m.ReplyTo, string(m.Status),
	).Scan(&id, &createdAt)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("pg: insert message: %w", err)
	}

	const touch = `UPDATE conversations SET last_message_at = $2 WHERE id = $1`
	if _, err := tx.Exec(ctx, touch, m.ConversationID, createdAt); err != nil {
		return "", time.Time{}, fmt.Errorf("pg: touch conversation: %w", err)
	}

	const bump = `
		UPDATE conversation_members SET unread_count = unread_count + 1
		WHERE conversation_id = $1 AND user_id <> $2`
	if _, err := tx.Exec(ctx, bump, m.ConversationID, m.From); err != nil {
		return "", time.Time{}, fmt.Errorf("pg: bump unread: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", time.Time{}, fmt.Errorf("pg: commit: %w", err)
	}
	return id, createdAt, nil
}

func (r *PgMessageRepository) AdvanceStatus(ctx context.Context, conversationID string, messageIDs []string, to messaging.MessageStatus) ([]string, error) {
	rank := to.Rank()
	if rank < 0 {
		return nil, fmt.Errorf("pg: advance status: unknown status %q", to)
	}

	// The CASE keeps ordering in SQL so concurrent acks can never move a
	// message backwards.
	const q = `
		UPDATE messages SET status = $3
		WHERE conversation_id = $1
		  AND id = ANY($2)
		  AND CASE status
		        WHEN 'pending' THEN 0
		        WHEN 'sent' THEN 1
		        WHEN 'delivered' THEN 2
		        WHEN 'read' THEN 3
		      END < $4
		RETURNING id`
	rows, err := r.pool.Query(ctx, q, conversationID, messageIDs, string(to), rank)
	if err != nil {
		return nil, fmt.Errorf("pg: advance status: %w", err)
	}
	defer rows.Close()

	var advanced []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("pg: advance status scan: %w", err)
		}
		advanced = append(advanced, id)
	}
	return advanced, rows.Err()
}

func (r *PgMessageRepository) ResetUnread(ctx context.Context, conversationID string, userID string) error {
	const q = `
		UPDATE conversation_members SET unread_count = 0
		WHERE conversation_id = $1 AND user_id = $2`
	if _, err := r.pool.Exec(ctx, q, conversationID, userID); err != nil {
		return fmt.Errorf("pg: reset unread: %w", err)
	}
	return nil
}
