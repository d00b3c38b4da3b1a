package repository

import (
	"context"

	notify "charla/internal/pkg/notify/domain"
)

// DeviceRepository persists push-token registrations.
type DeviceRepository interface {
	Upsert(ctx context.Context, d notify.Device) error
	TokensOf(ctx context.Context, userID string) ([]string, error)
	Delete(ctx context.Context, userID string, deviceID string) error
}
