package hub

import (
	"errors"
	"testing"
	"time"
)

func TestSendMessageAckAndFanOut(t *testing.T) {
	h := newHarness(t, defaultConfig())
	defer h.shutdown(t)
	h.repo.addConversation("c1", "alice", "bob")

	alice := h.connect(t, "alice")
	bob := h.connect(t, "bob")
	h.join(t, alice, "c1")
	h.join(t, bob, "c1")

	text := "hello"
	alice.inject(t, EventMessageSend, messageSendPayload{
		ConversationID: "c1", TempID: "t1", Type: "text", Text: &text,
	})

	var ack messageAckPayload
	decodeInto(t, waitFrame(t, alice, EventMessageAck, 1), &ack)
	if ack.TempID != "t1" {
		t.Fatalf("ack tempId = %q, want t1", ack.TempID)
	}
	if ack.ID != "m1" {
		t.Fatalf("ack id = %q, want m1", ack.ID)
	}

	var got messageNewPayload
	decodeInto(t, waitFrame(t, bob, EventMessageNew, 1), &got)
	if got.Message.ID != ack.ID || got.Message.From != "alice" {
		t.Fatalf("fan-out message = %+v", got.Message)
	}
	if got.Message.Status != "sent" {
		t.Fatalf("fan-out status = %q, want sent", got.Message.Status)
	}

	// The sender's joined connection receives the room copy too.
	waitFrame(t, alice, EventMessageNew, 1)
}

func TestSendMessageEchoesToSendersOtherDevices(t *testing.T) {
	h := newHarness(t, defaultConfig())
	defer h.shutdown(t)
	h.repo.addConversation("c1", "alice", "bob")

	phone := h.connect(t, "alice")
	laptop := h.connect(t, "alice")
	h.join(t, phone, "c1")
	h.join(t, laptop, "c1")

	text := "hi"
	phone.inject(t, EventMessageSend, messageSendPayload{
		ConversationID: "c1", TempID: "t1", Type: "text", Text: &text,
	})

	waitFrame(t, phone, EventMessageAck, 1)
	waitFrame(t, laptop, EventMessageNew, 1)
	expectNoFrame(t, laptop, EventMessageAck, 50*time.Millisecond)
}

func TestSendPersistenceFailureReachesSenderOnly(t *testing.T) {
	h := newHarness(t, defaultConfig())
	defer h.shutdown(t)
	h.repo.addConversation("c1", "alice", "bob")
	h.repo.saveErr = errors.New("pg down")

	alice := h.connect(t, "alice")
	bob := h.connect(t, "bob")
	h.join(t, alice, "c1")
	h.join(t, bob, "c1")

	text := "hello"
	alice.inject(t, EventMessageSend, messageSendPayload{
		ConversationID: "c1", TempID: "t9", Type: "text", Text: &text,
	})

	var e errorPayload
	decodeInto(t, waitFrame(t, alice, EventError, 1), &e)
	if e.Code != CodeUpstream {
		t.Fatalf("error code = %q, want %q", e.Code, CodeUpstream)
	}
	if e.Ref != "t9" {
		t.Fatalf("error ref = %q, want the tempId", e.Ref)
	}
	expectNoFrame(t, bob, EventMessageNew, 50*time.Millisecond)
	expectNoFrame(t, bob, EventError, 0)
}

func TestSendRejectedForNonMember(t *testing.T) {
	h := newHarness(t, defaultConfig())
	defer h.shutdown(t)
	h.repo.addConversation("c1", "alice", "bob")

	mallory := h.connect(t, "mallory")
	text := "hi"
	mallory.inject(t, EventMessageSend, messageSendPayload{
		ConversationID: "c1", TempID: "t1", Type: "text", Text: &text,
	})

	var e errorPayload
	decodeInto(t, waitFrame(t, mallory, EventError, 1), &e)
	if e.Code != CodeForbidden {
		t.Fatalf("error code = %q, want %q", e.Code, CodeForbidden)
	}
}

func TestJoinRequiresMembership(t *testing.T) {
	h := newHarness(t, defaultConfig())
	defer h.shutdown(t)
	h.repo.addConversation("c1", "alice")

	bob := h.connect(t, "bob")
	bob.inject(t, EventJoin, joinPayload{ConversationID: "c1"})

	var e errorPayload
	decodeInto(t, waitFrame(t, bob, EventError, 1), &e)
	if e.Code != CodeForbidden {
		t.Fatalf("error code = %q, want %q", e.Code, CodeForbidden)
	}
}

func TestReadAckAdvancesOnceAndSkipsRegressions(t *testing.T) {
	h := newHarness(t, defaultConfig())
	defer h.shutdown(t)
	h.repo.addConversation("c1", "alice", "bob")

	alice := h.connect(t, "alice")
	bob := h.connect(t, "bob")
	h.join(t, alice, "c1")
	h.join(t, bob, "c1")

	text := "hello"
	alice.inject(t, EventMessageSend, messageSendPayload{
		ConversationID: "c1", TempID: "t1", Type: "text", Text: &text,
	})
	var ack messageAckPayload
	decodeInto(t, waitFrame(t, alice, EventMessageAck, 1), &ack)

	bob.inject(t, EventMessageRead, messageAckInbound{
		ConversationID: "c1", MessageIDs: []string{ack.ID},
	})

	var upd messageUpdatePayload
	decodeInto(t, waitFrame(t, alice, EventMessageUpdate, 1), &upd)
	if upd.MessageID != ack.ID || upd.Patch.Status != "read" {
		t.Fatalf("update = %+v, want read patch for %s", upd, ack.ID)
	}

	// A delivered ack arriving after read must not regress or re-emit.
	bob.inject(t, EventMessageDelivered, messageAckInbound{
		ConversationID: "c1", MessageIDs: []string{ack.ID},
	})
	expectNoFrame(t, alice, EventError, 50*time.Millisecond)
	if frames := alice.decoded(EventMessageUpdate); len(frames) != 1 {
		t.Fatalf("got %d update frames, want exactly 1", len(frames))
	}
}

func TestTypingFanOutExcludesOrigin(t *testing.T) {
	h := newHarness(t, defaultConfig())
	defer h.shutdown(t)
	h.repo.addConversation("c1", "alice", "bob")

	alice := h.connect(t, "alice")
	bob := h.connect(t, "bob")
	h.join(t, alice, "c1")
	h.join(t, bob, "c1")

	alice.inject(t, EventTypingStart, typingPayload{ConversationID: "c1"})

	var ty typingUpdatePayload
	decodeInto(t, waitFrame(t, bob, EventTypingUpdate, 1), &ty)
	if !ty.IsTyping || ty.UserID != "alice" {
		t.Fatalf("typing update = %+v", ty)
	}
	expectNoFrame(t, alice, EventTypingUpdate, 50*time.Millisecond)

	alice.inject(t, EventTypingStop, typingPayload{ConversationID: "c1"})
	decodeInto(t, waitFrame(t, bob, EventTypingUpdate, 2), &ty)
	if ty.IsTyping {
		t.Fatal("expected typing=false after stop")
	}

	// A stop with no prior start emits nothing.
	alice.inject(t, EventTypingStop, typingPayload{ConversationID: "c1"})
	time.Sleep(50 * time.Millisecond)
	if frames := bob.decoded(EventTypingUpdate); len(frames) != 2 {
		t.Fatalf("got %d typing frames, want 2", len(frames))
	}
}

func TestTypingExpiresAfterTTL(t *testing.T) {
	cfg := defaultConfig()
	cfg.TypingTTL = 60 * time.Millisecond
	h := newHarness(t, cfg)
	defer h.shutdown(t)
	h.repo.addConversation("c1", "alice", "bob")

	alice := h.connect(t, "alice")
	bob := h.connect(t, "bob")
	h.join(t, alice, "c1")
	h.join(t, bob, "c1")

	alice.inject(t, EventTypingStart, typingPayload{ConversationID: "c1"})
	waitFrame(t, bob, EventTypingUpdate, 1)

	var ty typingUpdatePayload
	decodeInto(t, waitFrame(t, bob, EventTypingUpdate, 2), &ty)
	if ty.IsTyping {
		t.Fatal("expected expiry to emit typing=false")
	}
}

func TestUnknownEventIgnored(t *testing.T) {
	h := newHarness(t, defaultConfig())
	defer h.shutdown(t)

	alice := h.connect(t, "alice")
	alice.inject(t, "no:such:event", map[string]string{"x": "y"})
	expectNoFrame(t, alice, EventError, 50*time.Millisecond)

	// The session is still live afterwards.
	h.repo.addConversation("c1", "alice")
	h.join(t, alice, "c1")
}
