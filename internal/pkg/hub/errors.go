package hub

import (
	"errors"
	"fmt"

	"charla/internal/pkg/messaging/application/usecase"
	messaging "charla/internal/pkg/messaging/domain"
)

// Error codes carried in the "error" frame. Only auth failures terminate the
// connection; everything else is reported to the sender and the session
// continues.
const (
	CodeAuth       = "auth_failed"
	CodeValidation = "bad_request"
	CodeForbidden  = "forbidden"
	CodeNotFound   = "not_found"
	CodeConflict   = "conflict"
	CodeUpstream   = "upstream_error"
)

// Error is a handler failure addressed to the offending sender. Ref carries
// the client correlation id (tempId for sends, callId for call ops) so the
// client can reconcile and retry idempotently.
type Error struct {
	Code    string
	Message string
	Ref     string
}

func (e *Error) Error() string {
	return fmt.Sprintf("hub: %s: %s", e.Code, e.Message)
}

func NewValidationError(msg string, ref string) *Error {
	return &Error{Code: CodeValidation, Message: msg, Ref: ref}
}

func NewForbiddenError(msg string, ref string) *Error {
	return &Error{Code: CodeForbidden, Message: msg, Ref: ref}
}

func NewNotFoundError(msg string, ref string) *Error {
	return &Error{Code: CodeNotFound, Message: msg, Ref: ref}
}

func NewConflictError(msg string, ref string) *Error {
	return &Error{Code: CodeConflict, Message: msg, Ref: ref}
}

func NewUpstreamError(msg string, ref string) *Error {
	return &Error{Code: CodeUpstream, Message: msg, Ref: ref}
}

// asError normalizes any handler error into an *Error for the error frame.
func asError(err error, ref string) *Error {
	var he *Error
	if errors.As(err, &he) {
		return he
	}
	switch {
	case errors.Is(err, messaging.ErrNotMember):
		return NewForbiddenError("user is not a member of this conversation", ref)
	case errors.Is(err, usecase.ErrPersistence):
		return NewUpstreamError("persistence failure, retry with the same correlation id", ref)
	case errors.Is(err, messaging.ErrMissingConversation),
		errors.Is(err, messaging.ErrMissingTempID),
		errors.Is(err, messaging.ErrMissingSender),
		errors.Is(err, messaging.ErrUnknownType),
		errors.Is(err, messaging.ErrEmptyText):
		return NewValidationError(err.Error(), ref)
	default:
		return NewUpstreamError(err.Error(), ref)
	}
}
