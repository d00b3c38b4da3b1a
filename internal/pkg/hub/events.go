package hub

import (
	"encoding/json"
	"time"

	messaging "charla/internal/pkg/messaging/domain"
)

// Room id helpers. Every connection is auto-joined to its user room;
// conversation rooms require an authorized join; call rooms are ephemeral.
func UserRoom(userID string) string                 { return "user:" + userID }
func ConversationRoom(conversationID string) string { return "conv:" + conversationID }
func CallRoom(callID string) string                 { return "call:" + callID }

// Inbound event names.
const (
	EventJoin             = "join"
	EventLeave            = "leave"
	EventMessageSend      = "message:send"
	EventMessageDelivered = "message:delivered"
	EventMessageRead      = "message:read"
	EventTypingStart      = "typing:start"
	EventTypingStop       = "typing:stop"
	EventCallInit         = "call:init"
	EventCallAccept       = "call:accept"
	EventCallReject       = "call:reject"
	EventCallEnd          = "call:end"
	EventWebRTCOffer      = "webrtc:offer"
	EventWebRTCAnswer     = "webrtc:answer"
	EventWebRTCICE        = "webrtc:ice-candidate"
)

// Outbound event names.
const (
	EventConnected      = "connected"
	EventJoined         = "joined"
	EventLeft           = "left"
	EventMessageAck     = "message:ack"
	EventMessageNew     = "message:new"
	EventMessageUpdate  = "message:update"
	EventPresenceUpdate = "presence:update"
	EventTypingUpdate   = "typing:update"
	EventCallRinging    = "call:ringing"
	EventCallStatus     = "call:status"
	EventError          = "error"
)

// Frame is the wire envelope for every event in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// encodeFrame marshals an event with its payload. Encoding failures are
// programming errors; callers treat a nil slice as "skip".
func encodeFrame(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Event: event, Data: data})
}

// ---- inbound payloads ----

type joinPayload struct {
	ConversationID string `json:"conversationId"`
}

type messageSendPayload struct {
	ConversationID string  `json:"conversationId"`
	TempID         string  `json:"tempId"`
	Type           string  `json:"type"`
	Text           *string `json:"text,omitempty"`
	MediaRef       *string `json:"mediaRef,omitempty"`
	ReplyTo        *string `json:"replyTo,omitempty"`
}

type messageAckInbound struct {
	ConversationID string   `json:"conversationId"`
	MessageIDs     []string `json:"messageIds"`
}

type typingPayload struct {
	ConversationID string `json:"conversationId"`
}

type callInitPayload struct {
	CalleeID       string `json:"calleeId"`
	Media          string `json:"media"`
	ConversationID string `json:"conversationId"`
}

type callActionPayload struct {
	CallID string  `json:"callId"`
	Reason *string `json:"reason,omitempty"`
}

// signalRef extracts just the call id from a webrtc:* payload; the rest is
// relayed verbatim.
type signalRef struct {
	CallID string `json:"callId"`
}

// ---- outbound payloads ----

type connectedPayload struct {
	UserID       string `json:"userId"`
	ConnectionID string `json:"connectionId"`
}

type roomAckPayload struct {
	ConversationID string `json:"conversationId"`
}

type messageAckPayload struct {
	ConversationID string    `json:"conversationId"`
	TempID         string    `json:"tempId"`
	ID             string    `json:"id"`
	CreatedAt      time.Time `json:"createdAt"`
}

type messageBody struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	From           string    `json:"from"`
	Type           string    `json:"type"`
	Text           *string   `json:"text,omitempty"`
	MediaRef       *string   `json:"mediaRef,omitempty"`
	ReplyTo        *string   `json:"replyTo,omitempty"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"createdAt"`
}

func toMessageBody(m messaging.Message) messageBody {
	return messageBody{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		From:           m.From,
		Type:           string(m.Type),
		Text:           m.Text,
		MediaRef:       m.MediaRef,
		ReplyTo:        m.ReplyTo,
		Status:         string(m.Status),
		CreatedAt:      m.CreatedAt,
	}
}

type messageNewPayload struct {
	ConversationID string      `json:"conversationId"`
	Message        messageBody `json:"message"`
}

type statusPatch struct {
	Status string `json:"status"`
}

type messageUpdatePayload struct {
	ConversationID string      `json:"conversationId"`
	MessageID      string      `json:"messageId"`
	Patch          statusPatch `json:"patch"`
}

type presenceUpdatePayload struct {
	UserID   string    `json:"userId"`
	Online   bool      `json:"online"`
	LastSeen time.Time `json:"lastSeen"`
}

type typingUpdatePayload struct {
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
	IsTyping       bool   `json:"isTyping"`
}

type callerInfo struct {
	DisplayName string  `json:"displayName"`
	PhotoURL    *string `json:"photoURL,omitempty"`
}

type callRingingPayload struct {
	CallID         string     `json:"callId"`
	FromUser       callerInfo `json:"fromUser"`
	Media          string     `json:"media"`
	ConversationID string     `json:"conversationId"`
}

type callStatusPayload struct {
	CallID    string     `json:"callId"`
	Status    string     `json:"status"`
	StartedAt *time.Time `json:"startedAt,omitempty"`
	EndedAt   *time.Time `json:"endedAt,omitempty"`
	Duration  *int       `json:"duration,omitempty"`
	Reason    *string    `json:"reason,omitempty"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Ref     string `json:"ref,omitempty"`
}
