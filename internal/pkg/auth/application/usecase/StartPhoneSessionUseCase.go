package usecase

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"
	"regexp"
	"time"

	"github.com/google/uuid"

	cacheport "charla/internal/infrastructure/cache/port"
	smsport "charla/internal/pkg/auth/sms/port"
)

var phonePattern = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)

const (
	sessionTTL       = 10 * time.Minute
	rateLimitWindow  = time.Hour
	rateLimitMax     = 3
	sessionKeyPrefix = "otp:session:"
	ratelimitPrefix  = "otp:rate:"
)

// phoneSession is the JSON shape stored in the cache for one OTP attempt.
type phoneSession struct {
	Phone     string    `json:"phone"`
	Code      string    `json:"code"`
	Attempts  int       `json:"attempts"`
	CreatedAt time.Time `json:"createdAt"`
}

// StartPhoneSessionUseCase begins the phone OTP flow: validates the number,
// enforces the per-phone rate limit, stores a single-use session and hands
// the 6-digit code to the SMS sender.
type StartPhoneSessionUseCase struct {
	Cache cacheport.Cache
	SMS   smsport.Sender
}

func NewStartPhoneSessionUseCase(cache cacheport.Cache, sms smsport.Sender) *StartPhoneSessionUseCase {
	return &StartPhoneSessionUseCase{Cache: cache, SMS: sms}
}

// Execute returns the opaque session id the client must present on verify.
func (uc *StartPhoneSessionUseCase) Execute(ctx context.Context, phone string) (string, error) {
	if !phonePattern.MatchString(phone) {
		return "", ErrInvalidPhone
	}

	// Max 3 starts per phone per hour.
	count, err := uc.Cache.Incr(ctx, ratelimitPrefix+phone, rateLimitWindow)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStore, err)
	}
	if count > rateLimitMax {
		return "", ErrRateLimited
	}

	code, err := sixDigitCode()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStore, err)
	}

	sessionID := uuid.NewString()
	session := phoneSession{Phone: phone, Code: code, CreatedAt: time.Now().UTC()}
	raw, err := json.Marshal(session)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStore, err)
	}
	if err := uc.Cache.Set(ctx, sessionKeyPrefix+sessionID, string(raw), sessionTTL); err != nil {
		return "", fmt.Errorf("%w: %v", ErrStore, err)
	}

	if err := uc.SMS.Send(ctx, phone, "Tu código es "+code); err != nil {
		_, _ = uc.Cache.Del(ctx, sessionKeyPrefix+sessionID)
		return "", fmt.Errorf("%w: %v", ErrSMSDelivery, err)
	}
	return sessionID, nil
}

func sixDigitCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
