package repository

import (
	"context"
	"time"

	messaging "charla/internal/pkg/messaging/domain"
)

// MessageRepository defines the persistence operations the relay depends on.
// SaveMessage must, in one transaction: insert the message (assigning a
// durable id and timestamp), advance the conversation's last-message metadata
// and bump unread counters for every member except the sender.
type MessageRepository interface {
	IsMember(ctx context.Context, conversationID string, userID string) (bool, error)
	MemberIDs(ctx context.Context, conversationID string) ([]string, error)

	SaveMessage(ctx context.Context, m messaging.Message) (id string, createdAt time.Time, err error)

	// AdvanceStatus moves the given messages forward to the target status and
	// returns the ids that actually changed. Messages already at or past the
	// target are left untouched so acks stay monotonic and idempotent.
	AdvanceStatus(ctx context.Context, conversationID string, messageIDs []string, to messaging.MessageStatus) ([]string, error)

	// ResetUnread zeroes the member's unread counter for the conversation.
	ResetUnread(ctx context.Context, conversationID string, userID string) error
}
