package adapter

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	repository "charla/internal/repository/port"
)

// PgUserRepository implements the user repository on PostgreSQL.
type PgUserRepository struct {
	pool *pgxpool.Pool
}

func NewPgUserRepository(pool *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{pool: pool}
}

var _ repository.UserRepository = (*PgUserRepository)(nil)

func (r *PgUserRepository) Upsert(ctx context.Context, u repository.User) error {
	const q = `
		INSERT INTO users (id, display_name, username, photo_url, about)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			username = EXCLUDED.username,
			photo_url = EXCLUDED.photo_url,
			about = EXCLUDED.about,
			updated_at = now()`
	if _, err := r.pool.Exec(ctx, q, u.ID, u.DisplayName, u.Username, u.PhotoURL, u.About); err != nil {
		return fmt.Errorf("pg: upsert user: %w", err)
	}
	return nil
}

func (r *PgUserRepository) FindByID(ctx context.Context, id string) (*repository.User, error) {
	const q = `
		SELECT id, display_name, username, photo_url, about, created_at, updated_at
		FROM users WHERE id = $1`
	var u repository.User
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&u.ID, &u.DisplayName, &u.Username, &u.PhotoURL, &u.About, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pg: find user: %w", err)
	}
	return &u, nil
}
