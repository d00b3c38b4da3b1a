package messaging

import (
	"errors"
	"testing"
	"time"
)

func strptr(s string) *string { return &s }

func TestNewMessageValidation(t *testing.T) {
	base := Envelope{
		ConversationID: "c1",
		TempID:         "t1",
		SenderID:       "alice",
		Type:           MessageTypeText,
		Text:           strptr("hello"),
	}

	tests := []struct {
		name    string
		mutate  func(*Envelope)
		wantErr error
	}{
		{"valid", func(*Envelope) {}, nil},
		{"missing conversation", func(e *Envelope) { e.ConversationID = "" }, ErrMissingConversation},
		{"missing temp id", func(e *Envelope) { e.TempID = "" }, ErrMissingTempID},
		{"missing sender", func(e *Envelope) { e.SenderID = "" }, ErrMissingSender},
		{"unknown type", func(e *Envelope) { e.Type = "gif" }, ErrUnknownType},
		{"text without body", func(e *Envelope) { e.Text = nil }, ErrEmptyText},
		{"text all whitespace", func(e *Envelope) { e.Text = strptr("   ") }, ErrEmptyText},
		{"media without text", func(e *Envelope) { e.Type = MessageTypeImage; e.Text = nil; e.MediaRef = strptr("img/1") }, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := base
			tc.mutate(&env)
			_, err := NewMessage(env, time.Now())
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("NewMessage error = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestNewMessageTrimsTextAndStartsPending(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	msg, err := NewMessage(Envelope{
		ConversationID: "c1",
		TempID:         "t1",
		SenderID:       "alice",
		Type:           MessageTypeText,
		Text:           strptr("  hello  "),
	}, now)
	if err != nil {
		t.Fatalf("NewMessage: %v", err)
	}
	if *msg.Text != "hello" {
		t.Fatalf("text = %q, want trimmed", *msg.Text)
	}
	if msg.Status != StatusPending {
		t.Fatalf("status = %q, want pending", msg.Status)
	}
	if !msg.CreatedAt.Equal(now) {
		t.Fatalf("createdAt = %v, want %v", msg.CreatedAt, now)
	}
	if msg.ID != "" {
		t.Fatal("id must be unset until persistence assigns one")
	}
}

func TestStatusAdvanceIsMonotonic(t *testing.T) {
	tests := []struct {
		from, to, want MessageStatus
	}{
		{StatusPending, StatusSent, StatusSent},
		{StatusSent, StatusDelivered, StatusDelivered},
		{StatusDelivered, StatusRead, StatusRead},
		{StatusSent, StatusRead, StatusRead}, // read implies delivered
		{StatusRead, StatusDelivered, StatusRead},
		{StatusDelivered, StatusSent, StatusDelivered},
		{StatusRead, StatusPending, StatusRead},
		{StatusSent, "bogus", StatusSent},
	}
	for _, tc := range tests {
		if got := tc.from.Advance(tc.to); got != tc.want {
			t.Errorf("%s.Advance(%s) = %s, want %s", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestPreview(t *testing.T) {
	withText := Message{Type: MessageTypeText, Text: strptr("hola")}
	if got := withText.Preview(); got != "hola" {
		t.Fatalf("Preview = %q", got)
	}
	voice := Message{Type: MessageTypeVoice}
	if got := voice.Preview(); got != "[voice]" {
		t.Fatalf("Preview = %q, want [voice]", got)
	}
}
