package hub

import (
	"context"
	"log"
	"time"

	"charla/internal/infrastructure/realtime"
	"charla/internal/pkg/messaging/application/usecase"
	messaging "charla/internal/pkg/messaging/domain"
	userrepo "charla/internal/repository/port"
)

// Relay validates and dispatches chat events (send, delivered, read, typing)
// between the room router and the persistence layer. It never emits
// message:new unless persistence succeeded; failures go back to the sender
// only, carrying the original tempId so a retry cannot duplicate.
type Relay struct {
	rooms    *realtime.Rooms
	registry *realtime.Registry

	send      *usecase.SendMessageUseCase
	ack       *usecase.AckMessagesUseCase
	authorize *usecase.AuthorizeJoinUseCase

	typing   *TypingTracker
	users    userrepo.UserRepository
	notifier Notifier

	timeout time.Duration
	logger  *log.Logger
}

func NewRelay(
	rooms *realtime.Rooms,
	registry *realtime.Registry,
	send *usecase.SendMessageUseCase,
	ack *usecase.AckMessagesUseCase,
	authorize *usecase.AuthorizeJoinUseCase,
	typing *TypingTracker,
	users userrepo.UserRepository,
	notifier Notifier,
	logger *log.Logger,
) *Relay {
	return &Relay{
		rooms:     rooms,
		registry:  registry,
		send:      send,
		ack:       ack,
		authorize: authorize,
		typing:    typing,
		users:     users,
		notifier:  notifier,
		timeout:   10 * time.Second,
		logger:    logger,
	}
}

// HandleJoin admits the connection to a conversation room after the
// membership check. Unauthorized joins are rejected with an error frame, not
// silently dropped.
func (r *Relay) HandleJoin(ctx context.Context, conn *realtime.Connection, conversationID string) error {
	if conversationID == "" {
		return NewValidationError("conversationId is required", "")
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if err := r.authorize.Execute(ctx, conversationID, conn.UserID); err != nil {
		return err
	}

	r.rooms.Join(ConversationRoom(conversationID), conn)
	r.reply(conn, EventJoined, roomAckPayload{ConversationID: conversationID})
	return nil
}

// HandleLeave removes the connection from the conversation room.
func (r *Relay) HandleLeave(conn *realtime.Connection, conversationID string) error {
	if conversationID == "" {
		return NewValidationError("conversationId is required", "")
	}
	r.rooms.Leave(ConversationRoom(conversationID), conn.ID)
	r.reply(conn, EventLeft, roomAckPayload{ConversationID: conversationID})
	return nil
}

// HandleSend persists the envelope and fans the durable message out to the
// conversation room, echoing to the sender's other devices too. The
// originating connection additionally receives a direct ack mapping
// tempId -> id.
func (r *Relay) HandleSend(ctx context.Context, conn *realtime.Connection, p messageSendPayload) error {
	env := messaging.Envelope{
		ConversationID: p.ConversationID,
		TempID:         p.TempID,
		Type:           messaging.MessageType(p.Type),
		Text:           p.Text,
		MediaRef:       p.MediaRef,
		ReplyTo:        p.ReplyTo,
		SenderID:       conn.UserID,
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	res, err := r.send.Execute(ctx, env)
	if err != nil {
		return asError(err, p.TempID)
	}
	msg := res.Message

	r.reply(conn, EventMessageAck, messageAckPayload{
		ConversationID: msg.ConversationID,
		TempID:         p.TempID,
		ID:             msg.ID,
		CreatedAt:      msg.CreatedAt,
	})

	if frame, err := encodeFrame(EventMessageNew, messageNewPayload{
		ConversationID: msg.ConversationID,
		Message:        toMessageBody(msg),
	}); err == nil {
		r.rooms.Emit(ConversationRoom(msg.ConversationID), frame, "")
	}

	r.pushOffline(ctx, msg, res.Members)
	return nil
}

// HandleDelivered advances messages to delivered and emits per-message
// patches. Already-delivered or read messages are untouched.
func (r *Relay) HandleDelivered(ctx context.Context, conn *realtime.Connection, p messageAckInbound) error {
	return r.handleAck(ctx, conn, p, messaging.StatusDelivered)
}

// HandleRead advances messages to read (implying delivered) and zeroes the
// reader's unread counter.
func (r *Relay) HandleRead(ctx context.Context, conn *realtime.Connection, p messageAckInbound) error {
	return r.handleAck(ctx, conn, p, messaging.StatusRead)
}

func (r *Relay) handleAck(ctx context.Context, conn *realtime.Connection, p messageAckInbound, to messaging.MessageStatus) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	advanced, err := r.ack.Execute(ctx, usecase.AckMessagesInput{
		ConversationID: p.ConversationID,
		MessageIDs:     p.MessageIDs,
		ByUserID:       conn.UserID,
		Status:         to,
	})
	if err != nil {
		return asError(err, "")
	}

	room := ConversationRoom(p.ConversationID)
	for _, id := range advanced {
		frame, err := encodeFrame(EventMessageUpdate, messageUpdatePayload{
			ConversationID: p.ConversationID,
			MessageID:      id,
			Patch:          statusPatch{Status: string(to)},
		})
		if err != nil {
			continue
		}
		r.rooms.Emit(room, frame, "")
	}
	return nil
}

// HandleTypingStart emits a typing indicator to everyone in the room except
// the originating connection and arms the idle expiry.
func (r *Relay) HandleTypingStart(conn *realtime.Connection, conversationID string) error {
	if conversationID == "" {
		return NewValidationError("conversationId is required", "")
	}
	r.typing.Start(conversationID, conn.UserID)
	r.emitTyping(conversationID, conn.UserID, true, conn.ID)
	return nil
}

// HandleTypingStop clears the indicator if it was set.
func (r *Relay) HandleTypingStop(conn *realtime.Connection, conversationID string) error {
	if conversationID == "" {
		return NewValidationError("conversationId is required", "")
	}
	if r.typing.Stop(conversationID, conn.UserID) {
		r.emitTyping(conversationID, conn.UserID, false, conn.ID)
	}
	return nil
}

// UserWentOffline clears all typing state of a user whose last connection
// dropped, notifying the affected conversations.
func (r *Relay) UserWentOffline(userID string) {
	for _, conversationID := range r.typing.StopAll(userID) {
		r.emitTyping(conversationID, userID, false, "")
	}
}

func (r *Relay) emitTyping(conversationID string, userID string, isTyping bool, excludeConn string) {
	frame, err := encodeFrame(EventTypingUpdate, typingUpdatePayload{
		ConversationID: conversationID,
		UserID:         userID,
		IsTyping:       isTyping,
	})
	if err != nil {
		return
	}
	r.rooms.Emit(ConversationRoom(conversationID), frame, excludeConn)
}

// pushOffline schedules push notifications for members with no live
// connection. Best-effort: enqueue failures are logged only.
func (r *Relay) pushOffline(ctx context.Context, msg messaging.Message, members []string) {
	if r.notifier == nil {
		return
	}
	fromName := r.displayName(ctx, msg.From)
	for _, member := range members {
		if member == msg.From || r.registry.CountOf(member) > 0 {
			continue
		}
		if err := r.notifier.NotifyMessage(ctx, member, msg.ConversationID, fromName, msg.Preview()); err != nil {
			r.logger.Printf("push enqueue for %s failed: %v", member, err)
		}
	}
}

func (r *Relay) displayName(ctx context.Context, userID string) string {
	if r.users != nil {
		if u, err := r.users.FindByID(ctx, userID); err == nil && u.DisplayName != "" {
			return u.DisplayName
		}
	}
	return userID
}

func (r *Relay) reply(conn *realtime.Connection, event string, payload any) {
	frame, err := encodeFrame(event, payload)
	if err != nil {
		return
	}
	_ = conn.Send(frame)
}
