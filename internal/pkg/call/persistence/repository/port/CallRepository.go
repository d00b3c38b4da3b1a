package repository

import (
	"context"

	call "charla/internal/pkg/call/domain"
)

// CallRepository archives terminal call attempts (ended, rejected, missed)
// for history and billing-style queries.
type CallRepository interface {
	SaveRecord(ctx context.Context, rec call.Record) error
	ListByConversation(ctx context.Context, conversationID string, limit int) ([]call.Record, error)
}
