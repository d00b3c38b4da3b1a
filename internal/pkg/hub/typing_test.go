package hub

import (
	"sort"
	"sync"
	"testing"
	"time"
)

func TestTypingTrackerStopReportsActivity(t *testing.T) {
	tr := NewTypingTracker(time.Hour, nil)

	tr.Start("c1", "alice")
	if !tr.Stop("c1", "alice") {
		t.Fatal("stop after start should report active")
	}
	if tr.Stop("c1", "alice") {
		t.Fatal("second stop should report inactive")
	}
	if tr.Stop("c2", "alice") {
		t.Fatal("stop in another conversation should report inactive")
	}
}

func TestTypingTrackerStartRearmsExpiry(t *testing.T) {
	var (
		mu      sync.Mutex
		expired int
	)
	tr := NewTypingTracker(60*time.Millisecond, func(string, string) {
		mu.Lock()
		expired++
		mu.Unlock()
	})

	tr.Start("c1", "alice")
	time.Sleep(40 * time.Millisecond)
	tr.Start("c1", "alice") // rearm before expiry
	time.Sleep(40 * time.Millisecond)

	mu.Lock()
	n := expired
	mu.Unlock()
	if n != 0 {
		t.Fatalf("expired %d times before the rearmed TTL elapsed", n)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n = expired
		mu.Unlock()
		if n == 1 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expired %d times, want 1", n)
}

func TestTypingTrackerStopAll(t *testing.T) {
	tr := NewTypingTracker(time.Hour, nil)
	tr.Start("c1", "alice")
	tr.Start("c2", "alice")
	tr.Start("c1", "bob")

	got := tr.StopAll("alice")
	sort.Strings(got)
	if len(got) != 2 || got[0] != "c1" || got[1] != "c2" {
		t.Fatalf("StopAll = %v, want [c1 c2]", got)
	}
	if !tr.Stop("c1", "bob") {
		t.Fatal("bob's indicator must survive alice's StopAll")
	}
}

func TestDisconnectClearsTypingIndicators(t *testing.T) {
	h := newHarness(t, defaultConfig())
	defer h.shutdown(t)
	h.repo.addConversation("c1", "alice", "bob")

	alice := h.connect(t, "alice")
	bob := h.connect(t, "bob")
	h.join(t, alice, "c1")
	h.join(t, bob, "c1")

	alice.inject(t, EventTypingStart, typingPayload{ConversationID: "c1"})
	waitFrame(t, bob, EventTypingUpdate, 1)

	_ = alice.Close()

	var ty typingUpdatePayload
	decodeInto(t, waitFrame(t, bob, EventTypingUpdate, 2), &ty)
	if ty.IsTyping || ty.UserID != "alice" {
		t.Fatalf("typing update = %+v, want alice typing=false", ty)
	}
}
