package messaging

import (
	"errors"
	"strings"
	"time"
)

// MessageType enumerates the content kinds a conversation accepts.
type MessageType string

const (
	MessageTypeText     MessageType = "text"
	MessageTypeImage    MessageType = "image"
	MessageTypeAudio    MessageType = "audio"
	MessageTypeVoice    MessageType = "voice"
	MessageTypeDocument MessageType = "document"
	MessageTypeSticker  MessageType = "sticker"
	MessageTypeSystem   MessageType = "system"
)

// Valid reports whether t is a known message type.
func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeAudio, MessageTypeVoice,
		MessageTypeDocument, MessageTypeSticker, MessageTypeSystem:
		return true
	}
	return false
}

// MessageStatus tracks delivery progress. Transitions are monotonic:
// pending -> sent -> delivered -> read. A later status never reverts to an
// earlier one; a read ack that arrives before a delivered ack implies the
// message was delivered.
type MessageStatus string

const (
	StatusPending   MessageStatus = "pending"
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusRead      MessageStatus = "read"
)

var statusRank = map[MessageStatus]int{
	StatusPending:   0,
	StatusSent:      1,
	StatusDelivered: 2,
	StatusRead:      3,
}

// Rank returns the position of s in the delivery ordering, -1 if unknown.
func (s MessageStatus) Rank() int {
	r, ok := statusRank[s]
	if !ok {
		return -1
	}
	return r
}

// Advance returns the forward-most of s and to, enforcing monotonicity.
func (s MessageStatus) Advance(to MessageStatus) MessageStatus {
	if to.Rank() > s.Rank() {
		return to
	}
	return s
}

// Domain-level validation errors for inbound envelopes.
var (
	ErrMissingConversation = errors.New("messaging: conversation id is required")
	ErrMissingTempID       = errors.New("messaging: temp id is required")
	ErrMissingSender       = errors.New("messaging: sender id is required")
	ErrUnknownType         = errors.New("messaging: unknown message type")
	ErrEmptyText           = errors.New("messaging: text message requires text")
	ErrNotMember           = errors.New("messaging: sender is not a member of the conversation")
)

// Envelope is the as-sent, not-yet-persisted representation of a chat message.
// TempID is the client correlation id echoed back in the acknowledgment so
// retries stay idempotent from the client's point of view.
type Envelope struct {
	ConversationID string
	TempID         string
	Type           MessageType
	Text           *string
	MediaRef       *string
	ReplyTo        *string
	SenderID       string
}

// Message is a durable log entry in a conversation, produced once the
// persistence layer has assigned an id and timestamp.
type Message struct {
	ID             string        `db:"id"`
	ConversationID string        `db:"conversation_id"`
	From           string        `db:"sender_id"`
	Type           MessageType   `db:"msg_type"`
	Text           *string       `db:"body"`
	MediaRef       *string       `db:"media_ref"`
	ReplyTo        *string       `db:"reply_to"`
	Status         MessageStatus `db:"status"`
	CreatedAt      time.Time     `db:"created_at"`
}

// NewMessage validates an envelope and shapes it into a Message ready to
// persist. The returned message has no ID; the repository assigns one.
func NewMessage(e Envelope, now time.Time) (Message, error) {
	if e.ConversationID == "" {
		return Message{}, ErrMissingConversation
	}
	if e.TempID == "" {
		return Message{}, ErrMissingTempID
	}
	if e.SenderID == "" {
		return Message{}, ErrMissingSender
	}
	if !e.Type.Valid() {
		return Message{}, ErrUnknownType
	}

	text := e.Text
	if text != nil {
		trimmed := strings.TrimSpace(*text)
		if trimmed == "" {
			text = nil
		} else {
			text = &trimmed
		}
	}
	if e.Type == MessageTypeText && text == nil {
		return Message{}, ErrEmptyText
	}

	if now.IsZero() {
		now = time.Now()
	}
	return Message{
		ConversationID: e.ConversationID,
		From:           e.SenderID,
		Type:           e.Type,
		Text:           text,
		MediaRef:       e.MediaRef,
		ReplyTo:        e.ReplyTo,
		Status:         StatusPending,
		CreatedAt:      now.UTC(),
	}, nil
}

// Preview renders the short conversation-list summary for the message.
func (m Message) Preview() string {
	if m.Text != nil {
		return *m.Text
	}
	return "[" + string(m.Type) + "]"
}
