package token

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verification errors surfaced to the session gateway.
var (
	ErrMissingSecret = errors.New("token: JWT_SECRET environment variable is not set")
	ErrInvalidToken  = errors.New("token: invalid or expired token")
)

// Manager issues and verifies HS256 session tokens. The subject claim carries
// the user id (phone number); a token is minted once the OTP flow succeeds
// and presented again on every websocket handshake.
type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewManagerFromEnv reads the signing secret from JWT_SECRET.
func NewManagerFromEnv() (*Manager, error) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, ErrMissingSecret
	}
	return NewManager(secret, 30*24*time.Hour), nil
}

func NewManager(secret string, ttl time.Duration) *Manager {
	return &Manager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue mints a session token for the user.
func (m *Manager) Issue(userID string) (string, error) {
	if userID == "" {
		return "", errors.New("token: user id is required")
	}
	now := m.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return signed, nil
}

// Verify validates the token and returns the user id it was issued for.
func (m *Manager) Verify(ctx context.Context, tokenString string) (string, error) {
	if tokenString == "" {
		return "", ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("token: unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
