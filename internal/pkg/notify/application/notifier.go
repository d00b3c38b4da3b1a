package application

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	qport "charla/internal/infrastructure/queue/port"
	"charla/internal/pkg/notify/application/task"
)

// Notifier enqueues push-notification tasks for users with no live
// connection. Delivery itself happens in the background worker; enqueue
// failures are the caller's to log, never to surface to the sender.
type Notifier struct {
	queue qport.Client
}

func NewNotifier(queue qport.Client) *Notifier {
	return &Notifier{queue: queue}
}

// NotifyMessage schedules a "new message" push for the user.
func (n *Notifier) NotifyMessage(ctx context.Context, userID string, conversationID string, fromName string, preview string) error {
	return n.enqueue(ctx, task.PushNotificationTaskPayload{
		UserID: userID,
		Title:  fromName,
		Body:   preview,
		Data:   map[string]string{"kind": "message", "conversationId": conversationID},
	})
}

// NotifyCall schedules an "incoming call" push for the callee.
func (n *Notifier) NotifyCall(ctx context.Context, userID string, callID string, callerName string, media string) error {
	return n.enqueue(ctx, task.PushNotificationTaskPayload{
		UserID: userID,
		Title:  callerName,
		Body:   "Incoming " + media + " call",
		Data:   map[string]string{"kind": "call", "callId": callID, "media": media},
	})
}

func (n *Notifier) enqueue(ctx context.Context, p task.PushNotificationTaskPayload) error {
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("notify: encode payload: %w", err)
	}
	opts := qport.EnqueueOption{Queue: "notify", MaxRetry: 5, UniqueTTL: 30 * time.Second}
	_, err = n.queue.Enqueue(ctx, qport.Task{Type: task.PushNotificationTaskType, Payload: b}, opts)
	if err != nil {
		return fmt.Errorf("notify: enqueue: %w", err)
	}
	return nil
}
