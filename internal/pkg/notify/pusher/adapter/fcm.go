package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"charla/internal/pkg/notify/pusher/port"
)

const fcmEndpoint = "https://fcm.googleapis.com/fcm/send"

// FCMPusher delivers notifications through the Firebase Cloud Messaging
// legacy HTTP endpoint using a server key.
type FCMPusher struct {
	serverKey string
	client    *http.Client
}

// NewFCMPusherFromEnv reads the server key from FCM_SERVER_KEY.
func NewFCMPusherFromEnv() (*FCMPusher, error) {
	key := os.Getenv("FCM_SERVER_KEY")
	if key == "" {
		return nil, errors.New("fcm: FCM_SERVER_KEY environment variable is not set")
	}
	return &FCMPusher{
		serverKey: key,
		client:    &http.Client{Timeout: 10 * time.Second},
	}, nil
}

var _ port.Pusher = (*FCMPusher)(nil)

type fcmMessage struct {
	To           string            `json:"to"`
	Notification fcmNotification   `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

func (p *FCMPusher) Push(ctx context.Context, push port.Push) error {
	payload, err := json.Marshal(fcmMessage{
		To:           push.Token,
		Notification: fcmNotification{Title: push.Title, Body: push.Body},
		Data:         push.Data,
	})
	if err != nil {
		return fmt.Errorf("fcm: encode: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fcmEndpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("fcm: build request: %w", err)
	}
	req.Header.Set("Authorization", "key="+p.serverKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("fcm: push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("fcm: push failed: status=%d body=%s", resp.StatusCode, string(detail))
	}
	return nil
}
