package adapter

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	notify "charla/internal/pkg/notify/domain"
	repository "charla/internal/pkg/notify/persistence/repository/port"
)

// PgDeviceRepository implements the device repository on PostgreSQL.
type PgDeviceRepository struct {
	pool *pgxpool.Pool
}

func NewPgDeviceRepository(pool *pgxpool.Pool) *PgDeviceRepository {
	return &PgDeviceRepository{pool: pool}
}

var _ repository.DeviceRepository = (*PgDeviceRepository)(nil)

func (r *PgDeviceRepository) Upsert(ctx context.Context, d notify.Device) error {
	const q = `
		INSERT INTO devices (user_id, device_id, fcm_token, platform, user_agent, app_version, last_seen)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (user_id, device_id) DO UPDATE SET
			fcm_token = EXCLUDED.fcm_token,
			platform = EXCLUDED.platform,
			user_agent = EXCLUDED.user_agent,
			app_version = EXCLUDED.app_version,
			last_seen = now()`
	if _, err := r.pool.Exec(ctx, q, d.UserID, d.DeviceID, d.Token, d.Platform, d.UserAgent, d.AppVersion); err != nil {
		return fmt.Errorf("pg: upsert device: %w", err)
	}
	return nil
}

func (r *PgDeviceRepository) TokensOf(ctx context.Context, userID string) ([]string, error) {
	const q = `SELECT fcm_token FROM devices WHERE user_id = $1`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("pg: tokens of: %w", err)
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("pg: tokens scan: %w", err)
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

func (r *PgDeviceRepository) Delete(ctx context.Context, userID string, deviceID string) error {
	const q = `DELETE FROM devices WHERE user_id = $1 AND device_id = $2`
	if _, err := r.pool.Exec(ctx, q, userID, deviceID); err != nil {
		return fmt.Errorf("pg: delete device: %w", err)
	}
	return nil
}
