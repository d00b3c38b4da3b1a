package hub

import "context"

// TokenVerifier validates the credential presented on the websocket
// handshake and resolves it to a user id.
type TokenVerifier interface {
	Verify(ctx context.Context, credential string) (userID string, err error)
}

// Notifier schedules best-effort push notifications for users with no live
// connection. Failures are logged by the hub, never surfaced to the sender.
type Notifier interface {
	NotifyMessage(ctx context.Context, userID string, conversationID string, fromName string, preview string) error
	NotifyCall(ctx context.Context, userID string, callID string, callerName string, media string) error
}
