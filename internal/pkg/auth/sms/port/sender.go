package port

import "context"

// Sender delivers a short text message to a phone number in E.164 form.
// Implementations must be safe for concurrent use.
type Sender interface {
	Send(ctx context.Context, to string, body string) error
}
