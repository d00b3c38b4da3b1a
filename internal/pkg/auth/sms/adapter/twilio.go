package adapter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"charla/internal/pkg/auth/sms/port"
)

// TwilioSender delivers SMS through the Twilio Messages REST endpoint using
// basic auth and a form-encoded POST.
type TwilioSender struct {
	accountSID string
	authToken  string
	from       string
	client     *http.Client
}

// NewTwilioSenderFromEnv reads TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and
// TWILIO_FROM_NUMBER.
func NewTwilioSenderFromEnv() (*TwilioSender, error) {
	sid := os.Getenv("TWILIO_ACCOUNT_SID")
	tok := os.Getenv("TWILIO_AUTH_TOKEN")
	from := os.Getenv("TWILIO_FROM_NUMBER")
	if sid == "" || tok == "" || from == "" {
		return nil, errors.New("twilio: TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_FROM_NUMBER must be set")
	}
	return &TwilioSender{
		accountSID: sid,
		authToken:  tok,
		from:       from,
		client:     &http.Client{Timeout: 10 * time.Second},
	}, nil
}

var _ port.Sender = (*TwilioSender)(nil)

func (s *TwilioSender) Send(ctx context.Context, to string, body string) error {
	form := url.Values{}
	form.Set("To", to)
	form.Set("From", s.from)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("https://api.twilio.com/2010-04-01/Accounts/%s/Messages.json", s.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("twilio: build request: %w", err)
	}
	req.SetBasicAuth(s.accountSID, s.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("twilio: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("twilio: send failed: status=%d body=%s", resp.StatusCode, string(detail))
	}
	return nil
}
