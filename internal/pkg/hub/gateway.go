package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"charla/internal/infrastructure/realtime"
)

// Gateway owns the lifecycle of one websocket session: handshake auth,
// registration, the dispatch loop and teardown. Handler failures other than
// auth are reported back on the error frame; the session keeps running.
type Gateway struct {
	registry *realtime.Registry
	rooms    *realtime.Rooms
	relay    *Relay
	calls    *CallManager
	verifier TokenVerifier
	logger   *log.Logger
}

func NewGateway(
	registry *realtime.Registry,
	rooms *realtime.Rooms,
	relay *Relay,
	calls *CallManager,
	verifier TokenVerifier,
	logger *log.Logger,
) *Gateway {
	return &Gateway{
		registry: registry,
		rooms:    rooms,
		relay:    relay,
		calls:    calls,
		verifier: verifier,
		logger:   logger,
	}
}

// HandleConnection runs the whole session and returns when the socket is
// gone. The credential is the token presented on the handshake; a failed
// verification is the only error that closes the connection.
func (g *Gateway) HandleConnection(ctx context.Context, ws realtime.Socket, credential string) error {
	userID, err := g.verifier.Verify(ctx, credential)
	if err != nil {
		g.refuse(ws, "invalid or expired token")
		return fmt.Errorf("hub: handshake rejected: %w", err)
	}

	conn := realtime.NewConnection(userID, ws)
	conn.Start()

	if err := g.registry.Register(conn); err != nil {
		conn.Close(websocket.ClosePolicyViolation, "duplicate connection")
		return fmt.Errorf("hub: register: %w", err)
	}
	g.rooms.Join(UserRoom(userID), conn)

	if frame, err := encodeFrame(EventConnected, connectedPayload{
		UserID:       userID,
		ConnectionID: conn.ID,
	}); err == nil {
		_ = conn.Send(frame)
	}

	g.logger.Printf("connection %s open for user %s", conn.ID, userID)
	g.readLoop(ctx, conn)
	g.teardown(conn)
	return nil
}

func (g *Gateway) readLoop(ctx context.Context, conn *realtime.Connection) {
	for {
		raw, err := conn.Read()
		if err != nil {
			return
		}
		var frame Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			g.fail(conn, NewValidationError("malformed frame", ""))
			continue
		}
		if err := g.dispatch(ctx, conn, frame); err != nil {
			g.fail(conn, asError(err, refOf(frame)))
		}
	}
}

// dispatch routes one inbound frame. Unknown events are logged and ignored
// so old servers tolerate newer clients.
func (g *Gateway) dispatch(ctx context.Context, conn *realtime.Connection, frame Frame) error {
	switch frame.Event {
	case EventJoin:
		var p joinPayload
		if err := json.Unmarshal(frame.Data, &p); err != nil {
			return NewValidationError("malformed join payload", "")
		}
		return g.relay.HandleJoin(ctx, conn, p.ConversationID)

	case EventLeave:
		var p joinPayload
		if err := json.Unmarshal(frame.Data, &p); err != nil {
			return NewValidationError("malformed leave payload", "")
		}
		return g.relay.HandleLeave(conn, p.ConversationID)

	case EventMessageSend:
		var p messageSendPayload
		if err := json.Unmarshal(frame.Data, &p); err != nil {
			return NewValidationError("malformed message payload", "")
		}
		return g.relay.HandleSend(ctx, conn, p)

	case EventMessageDelivered:
		var p messageAckInbound
		if err := json.Unmarshal(frame.Data, &p); err != nil {
			return NewValidationError("malformed ack payload", "")
		}
		return g.relay.HandleDelivered(ctx, conn, p)

	case EventMessageRead:
		var p messageAckInbound
		if err := json.Unmarshal(frame.Data, &p); err != nil {
			return NewValidationError("malformed ack payload", "")
		}
		return g.relay.HandleRead(ctx, conn, p)

	case EventTypingStart:
		var p typingPayload
		if err := json.Unmarshal(frame.Data, &p); err != nil {
			return NewValidationError("malformed typing payload", "")
		}
		return g.relay.HandleTypingStart(conn, p.ConversationID)

	case EventTypingStop:
		var p typingPayload
		if err := json.Unmarshal(frame.Data, &p); err != nil {
			return NewValidationError("malformed typing payload", "")
		}
		return g.relay.HandleTypingStop(conn, p.ConversationID)

	case EventCallInit:
		var p callInitPayload
		if err := json.Unmarshal(frame.Data, &p); err != nil {
			return NewValidationError("malformed call payload", "")
		}
		return g.calls.HandleInit(ctx, conn, p)

	case EventCallAccept:
		var p callActionPayload
		if err := json.Unmarshal(frame.Data, &p); err != nil {
			return NewValidationError("malformed call payload", "")
		}
		return g.calls.HandleAccept(conn, p.CallID)

	case EventCallReject:
		var p callActionPayload
		if err := json.Unmarshal(frame.Data, &p); err != nil {
			return NewValidationError("malformed call payload", "")
		}
		return g.calls.HandleReject(conn, p)

	case EventCallEnd:
		var p callActionPayload
		if err := json.Unmarshal(frame.Data, &p); err != nil {
			return NewValidationError("malformed call payload", "")
		}
		return g.calls.HandleEnd(conn, p)

	case EventWebRTCOffer, EventWebRTCAnswer, EventWebRTCICE:
		return g.calls.RelaySignal(conn, frame.Event, frame.Data)

	default:
		g.logger.Printf("connection %s sent unknown event %q, ignoring", conn.ID, frame.Event)
		return nil
	}
}

// teardown runs once the read loop exits. Order matters: the registry
// unregister fires the presence hook while the connection still holds its
// room memberships, so the offline fan-out can reach its conversations.
func (g *Gateway) teardown(conn *realtime.Connection) {
	userID, last := g.registry.Unregister(conn.ID)
	if last && userID != "" {
		g.calls.EndAllFor(userID, "disconnected")
		g.relay.UserWentOffline(userID)
	}
	g.rooms.LeaveAll(conn.ID)
	conn.Close(websocket.CloseNormalClosure, "")
	g.logger.Printf("connection %s closed for user %s", conn.ID, userID)
}

// refuse rejects an unauthenticated handshake: one error frame, then close.
func (g *Gateway) refuse(ws realtime.Socket, msg string) {
	if frame, err := encodeFrame(EventError, errorPayload{Code: CodeAuth, Message: msg}); err == nil {
		_ = ws.WriteMessage(websocket.TextMessage, frame)
	}
	_ = ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "authentication failed"),
		time.Now().Add(10*time.Second))
	_ = ws.Close()
}

func (g *Gateway) fail(conn *realtime.Connection, he *Error) {
	frame, err := encodeFrame(EventError, errorPayload{
		Code:    he.Code,
		Message: he.Message,
		Ref:     he.Ref,
	})
	if err != nil {
		return
	}
	_ = conn.Send(frame)
}

// refOf pulls the client correlation id (tempId or callId) out of the frame
// so error frames can reference the operation that failed.
func refOf(frame Frame) string {
	switch frame.Event {
	case EventMessageSend:
		var p struct {
			TempID string `json:"tempId"`
		}
		_ = json.Unmarshal(frame.Data, &p)
		return p.TempID
	case EventCallAccept, EventCallReject, EventCallEnd,
		EventWebRTCOffer, EventWebRTCAnswer, EventWebRTCICE:
		var p signalRef
		_ = json.Unmarshal(frame.Data, &p)
		return p.CallID
	}
	return ""
}
