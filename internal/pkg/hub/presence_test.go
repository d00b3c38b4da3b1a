package hub

import (
	"sync"
	"testing"
	"time"
)

type presenceEvent struct {
	userID string
	online bool
}

// recorder collects publisher invocations for direct tracker tests.
type recorder struct {
	mu     sync.Mutex
	events []presenceEvent
}

func (r *recorder) publish(userID string, online bool, _ time.Time) {
	r.mu.Lock()
	r.events = append(r.events, presenceEvent{userID, online})
	r.mu.Unlock()
}

func (r *recorder) snapshot() []presenceEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]presenceEvent(nil), r.events...)
}

func (r *recorder) waitLen(t *testing.T, n int) []presenceEvent {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if evs := r.snapshot(); len(evs) >= n {
			return evs
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d presence events, have %v", n, r.snapshot())
	return nil
}

func TestPresenceFollowsConnectionCount(t *testing.T) {
	rec := &recorder{}
	tr := NewPresenceTracker(0, rec.publish, nil, nil)

	tr.OnRegistryChange("alice", 1)
	if !tr.Online("alice") {
		t.Fatal("alice should be online with one connection")
	}

	// Second device: no transition.
	tr.OnRegistryChange("alice", 2)
	tr.OnRegistryChange("alice", 1)
	if evs := rec.snapshot(); len(evs) != 1 {
		t.Fatalf("got %d events, want only the initial online", len(evs))
	}

	tr.OnRegistryChange("alice", 0)
	if tr.Online("alice") {
		t.Fatal("alice should be offline with zero connections")
	}
	evs := rec.snapshot()
	want := []presenceEvent{{"alice", true}, {"alice", false}}
	if len(evs) != 2 || evs[0] != want[0] || evs[1] != want[1] {
		t.Fatalf("events = %v, want %v", evs, want)
	}
	if _, ok := tr.LastSeen("alice"); !ok {
		t.Fatal("lastSeen should be recorded")
	}
}

func TestPresenceGraceAbsorbsReconnect(t *testing.T) {
	rec := &recorder{}
	tr := NewPresenceTracker(80*time.Millisecond, rec.publish, nil, nil)

	tr.OnRegistryChange("alice", 1)
	tr.OnRegistryChange("alice", 0)
	// Reconnect before the grace window expires.
	time.Sleep(20 * time.Millisecond)
	tr.OnRegistryChange("alice", 1)

	time.Sleep(160 * time.Millisecond)
	evs := rec.snapshot()
	for _, ev := range evs {
		if !ev.online {
			t.Fatalf("offline leaked through the grace window: %v", evs)
		}
	}
}

func TestPresenceGraceExpiresToOffline(t *testing.T) {
	rec := &recorder{}
	tr := NewPresenceTracker(40*time.Millisecond, rec.publish, nil, nil)

	tr.OnRegistryChange("alice", 1)
	tr.OnRegistryChange("alice", 0)

	evs := rec.waitLen(t, 2)
	if evs[1].online {
		t.Fatalf("second event = %v, want offline", evs[1])
	}
}

func TestOfflineFanOutReachesConversationRooms(t *testing.T) {
	h := newHarness(t, defaultConfig())
	defer h.shutdown(t)
	h.repo.addConversation("c1", "alice", "bob")

	alice := h.connect(t, "alice")
	bob := h.connect(t, "bob")
	h.join(t, alice, "c1")
	h.join(t, bob, "c1")

	_ = alice.Close()

	var p presenceUpdatePayload
	decodeInto(t, waitFrame(t, bob, EventPresenceUpdate, 1), &p)
	if p.UserID != "alice" || p.Online {
		t.Fatalf("presence update = %+v, want alice offline", p)
	}
}

func TestSecondDeviceDropKeepsUserOnline(t *testing.T) {
	h := newHarness(t, defaultConfig())
	defer h.shutdown(t)
	h.repo.addConversation("c1", "alice", "bob")

	phone := h.connect(t, "alice")
	laptop := h.connect(t, "alice")
	bob := h.connect(t, "bob")
	h.join(t, phone, "c1")
	h.join(t, bob, "c1")

	_ = laptop.Close()
	expectNoFrame(t, bob, EventPresenceUpdate, 80*time.Millisecond)

	_ = phone.Close()
	var p presenceUpdatePayload
	decodeInto(t, waitFrame(t, bob, EventPresenceUpdate, 1), &p)
	if p.Online {
		t.Fatal("expected offline once the last device dropped")
	}
}
