package usecase

import "errors"

// OTP flow errors mapped to HTTP responses by the controllers.
var (
	ErrInvalidPhone    = errors.New("auth: phone must be in E.164 format")
	ErrRateLimited     = errors.New("auth: too many verification requests for this phone")
	ErrInvalidSession  = errors.New("auth: unknown or expired verification session")
	ErrInvalidCode     = errors.New("auth: verification code does not match")
	ErrTooManyAttempts = errors.New("auth: too many failed attempts for this session")
	ErrSMSDelivery     = errors.New("auth: sms delivery failed")
	ErrStore           = errors.New("auth: session store failure")
)
