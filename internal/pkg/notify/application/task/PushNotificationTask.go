package task

import (
	"context"
	"encoding/json"
	"log"
	"time"

	qport "charla/internal/infrastructure/queue/port"
	repository "charla/internal/pkg/notify/persistence/repository/port"
	pusherport "charla/internal/pkg/notify/pusher/port"
)

// PushNotificationTaskType is the queue task name for delivering a push to
// all registered devices of one user.
const PushNotificationTaskType = "notify:push"

// PushNotificationTaskPayload is the JSON payload transported via the queue.
type PushNotificationTaskPayload struct {
	UserID string            `json:"userId"`
	Title  string            `json:"title"`
	Body   string            `json:"body"`
	Data   map[string]string `json:"data,omitempty"`
}

// RegisterPushNotificationTask binds the push handler to the worker server.
// Per-token failures are logged and skipped; the task as a whole only retries
// when the device lookup itself fails.
func RegisterPushNotificationTask(srv qport.Server, devices repository.DeviceRepository, pusher pusherport.Pusher, logger *log.Logger) {
	srv.Register(PushNotificationTaskType, func(ctx context.Context, t qport.Task) error {
		var p PushNotificationTaskPayload
		if err := json.Unmarshal(t.Payload, &p); err != nil {
			// malformed payload: retrying cannot help
			return nil
		}

		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		tokens, err := devices.TokensOf(ctx, p.UserID)
		if err != nil {
			return err
		}

		for _, token := range tokens {
			err := pusher.Push(ctx, pusherport.Push{
				Token: token,
				Title: p.Title,
				Body:  p.Body,
				Data:  p.Data,
			})
			if err != nil {
				logger.Printf("push to user %s failed: %v", p.UserID, err)
			}
		}
		return nil
	})
}
