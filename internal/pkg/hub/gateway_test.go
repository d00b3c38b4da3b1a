package hub

import (
	"context"
	"testing"
	"time"
)

func TestHandshakeRejectedWithoutCredential(t *testing.T) {
	h := newHarness(t, defaultConfig())

	sock := newFakeSocket()
	err := h.hub.Gateway.HandleConnection(context.Background(), sock, "")
	if err == nil {
		t.Fatal("expected handshake error")
	}

	var e errorPayload
	decodeInto(t, waitFrame(t, sock, EventError, 1), &e)
	if e.Code != CodeAuth {
		t.Fatalf("error code = %q, want %q", e.Code, CodeAuth)
	}
	if frames := sock.decoded(EventConnected); len(frames) != 0 {
		t.Fatal("rejected handshake must not produce a connected frame")
	}
}

func TestConnectedFrameCarriesIdentity(t *testing.T) {
	h := newHarness(t, defaultConfig())
	defer h.shutdown(t)

	sock := h.connect(t, "alice")

	var p connectedPayload
	decodeInto(t, waitFrame(t, sock, EventConnected, 1), &p)
	if p.UserID != "alice" || p.ConnectionID == "" {
		t.Fatalf("connected payload = %+v", p)
	}
}

func TestMalformedFrameReportsValidationError(t *testing.T) {
	h := newHarness(t, defaultConfig())
	defer h.shutdown(t)

	sock := h.connect(t, "alice")
	sock.readCh <- []byte("{not json")

	var e errorPayload
	decodeInto(t, waitFrame(t, sock, EventError, 1), &e)
	if e.Code != CodeValidation {
		t.Fatalf("error code = %q, want %q", e.Code, CodeValidation)
	}

	// The session survives the bad frame.
	h.repo.addConversation("c1", "alice")
	h.join(t, sock, "c1")
}

func TestDisconnectCleansRegistryAndRooms(t *testing.T) {
	h := newHarness(t, defaultConfig())
	h.repo.addConversation("c1", "alice", "bob")

	alice := h.connect(t, "alice")
	h.join(t, alice, "c1")
	if n := h.hub.Registry.CountOf("alice"); n != 1 {
		t.Fatalf("CountOf = %d, want 1", n)
	}

	_ = alice.Close()
	h.shutdown(t)

	if n := h.hub.Registry.CountOf("alice"); n != 0 {
		t.Fatalf("CountOf after disconnect = %d, want 0", n)
	}
	if members := h.hub.Rooms.MembersOf(ConversationRoom("c1")); len(members) != 0 {
		t.Fatalf("conversation room still has %d members", len(members))
	}
	if members := h.hub.Rooms.MembersOf(UserRoom("alice")); len(members) != 0 {
		t.Fatalf("user room still has %d members", len(members))
	}
}

func TestMultiDeviceRegistration(t *testing.T) {
	h := newHarness(t, defaultConfig())
	defer h.shutdown(t)

	h.connect(t, "alice")
	h.connect(t, "alice")
	h.connect(t, "alice")

	if n := h.hub.Registry.CountOf("alice"); n != 3 {
		t.Fatalf("CountOf = %d, want 3", n)
	}
	if members := h.hub.Rooms.MembersOf(UserRoom("alice")); len(members) != 3 {
		t.Fatalf("user room has %d members, want 3", len(members))
	}
}

func TestConfigFromEnvDefaults(t *testing.T) {
	t.Setenv("RING_TIMEOUT", "")
	t.Setenv("TYPING_TTL", "")
	t.Setenv("PRESENCE_GRACE", "")

	cfg := ConfigFromEnv()
	if cfg.RingTimeout != 45*time.Second {
		t.Fatalf("RingTimeout = %v, want 45s", cfg.RingTimeout)
	}
	if cfg.TypingTTL != 10*time.Second {
		t.Fatalf("TypingTTL = %v, want 10s", cfg.TypingTTL)
	}
	if cfg.PresenceGrace != 0 {
		t.Fatalf("PresenceGrace = %v, want 0", cfg.PresenceGrace)
	}
}

func TestConfigFromEnvOverridesAndFallbacks(t *testing.T) {
	t.Setenv("RING_TIMEOUT", "30s")
	t.Setenv("TYPING_TTL", "junk")
	t.Setenv("PRESENCE_GRACE", "2s")

	cfg := ConfigFromEnv()
	if cfg.RingTimeout != 30*time.Second {
		t.Fatalf("RingTimeout = %v, want 30s", cfg.RingTimeout)
	}
	if cfg.TypingTTL != 10*time.Second {
		t.Fatalf("TypingTTL = %v, want fallback 10s", cfg.TypingTTL)
	}
	if cfg.PresenceGrace != 2*time.Second {
		t.Fatalf("PresenceGrace = %v, want 2s", cfg.PresenceGrace)
	}
}
