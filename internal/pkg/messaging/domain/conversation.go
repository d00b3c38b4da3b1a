package messaging

import "time"

// Conversation is a thread between two or more members.
type Conversation struct {
	ID            string     `db:"id"`
	CreatedAt     time.Time  `db:"created_at"`
	LastMessageAt *time.Time `db:"last_message_at"`
}

// Member captures one user's membership and read state in a conversation.
// Primary key: (ConversationID, UserID).
type Member struct {
	ConversationID string     `db:"conversation_id"`
	UserID         string     `db:"user_id"`
	UnreadCount    int        `db:"unread_count"`
	LastReadMsg    *string    `db:"last_read_msg"`
	MutedUntil     *time.Time `db:"muted_until"`
}
