package port

import "context"

// Push is one notification addressed to a single device token.
type Push struct {
	Token string
	Title string
	Body  string
	Data  map[string]string
}

// Pusher delivers a push notification. Delivery is best-effort from the
// core's perspective: callers log failures and never surface them to the
// user who triggered the notification.
type Pusher interface {
	Push(ctx context.Context, p Push) error
}
