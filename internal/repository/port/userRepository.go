package repository

import (
	"context"
	"errors"
	"time"
)

// ErrUserNotFound is returned when no profile exists for the given id.
var ErrUserNotFound = errors.New("repository: user not found")

// User is a profile record. The id is the user's phone number in E.164 form,
// which is the stable identity across the whole system.
type User struct {
	ID          string    `db:"id"`
	DisplayName string    `db:"display_name"`
	Username    string    `db:"username"`
	PhotoURL    *string   `db:"photo_url"`
	About       *string   `db:"about"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// UserRepository persists user profiles.
type UserRepository interface {
	Upsert(ctx context.Context, u User) error
	FindByID(ctx context.Context, id string) (*User, error)
}
