package usecase

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"

	cacheport "charla/internal/infrastructure/cache/port"
	"charla/internal/pkg/auth/token"
)

const maxVerifyAttempts = 5

// VerifyResult is returned on a successful OTP verification.
type VerifyResult struct {
	Phone        string
	SessionToken string
}

// VerifyPhoneSessionUseCase checks the submitted code against the stored
// session. Sessions are single-use: on success or after too many failed
// attempts they are deleted.
type VerifyPhoneSessionUseCase struct {
	Cache  cacheport.Cache
	Tokens *token.Manager
}

func NewVerifyPhoneSessionUseCase(cache cacheport.Cache, tokens *token.Manager) *VerifyPhoneSessionUseCase {
	return &VerifyPhoneSessionUseCase{Cache: cache, Tokens: tokens}
}

func (uc *VerifyPhoneSessionUseCase) Execute(ctx context.Context, sessionID string, code string) (*VerifyResult, error) {
	if sessionID == "" || code == "" {
		return nil, ErrInvalidSession
	}

	key := sessionKeyPrefix + sessionID
	raw, err := uc.Cache.Get(ctx, key)
	if errors.Is(err, cacheport.ErrMiss) {
		return nil, ErrInvalidSession
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}

	var session phoneSession
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		_, _ = uc.Cache.Del(ctx, key)
		return nil, ErrInvalidSession
	}

	if subtle.ConstantTimeCompare([]byte(session.Code), []byte(code)) != 1 {
		session.Attempts++
		if session.Attempts >= maxVerifyAttempts {
			_, _ = uc.Cache.Del(ctx, key)
			return nil, ErrTooManyAttempts
		}
		if updated, err := json.Marshal(session); err == nil {
			_ = uc.Cache.Set(ctx, key, string(updated), sessionTTL)
		}
		return nil, ErrInvalidCode
	}

	if _, err := uc.Cache.Del(ctx, key); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}

	sessionToken, err := uc.Tokens.Issue(session.Phone)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}
	return &VerifyResult{Phone: session.Phone, SessionToken: sessionToken}, nil
}
