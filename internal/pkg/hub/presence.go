package hub

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	cacheport "charla/internal/infrastructure/cache/port"
)

// PresencePublisher receives every online/offline transition. It runs outside
// the tracker lock, so it may fan out through the room router freely.
type PresencePublisher func(userID string, online bool, lastSeen time.Time)

// PresenceSnapshot is the JSON shape stored in the cache per user so other
// processes can answer last-seen queries without a hub round-trip.
type PresenceSnapshot struct {
	UserID   string    `json:"userId"`
	Online   bool      `json:"online"`
	LastSeen time.Time `json:"lastSeen"`
}

// PresenceKey is the cache key for a user's presence snapshot.
func PresenceKey(userID string) string { return "presence:" + userID }

// PresenceTracker derives online/offline purely from the registry's live
// connection count: online is true exactly while the user owns at least one
// connection. A configurable grace period absorbs reconnect flaps before the
// offline transition is published; the default of zero publishes immediately.
type PresenceTracker struct {
	mu       sync.Mutex
	counts   map[string]int
	lastSeen map[string]time.Time
	timers   map[string]*time.Timer

	grace   time.Duration
	publish PresencePublisher
	cache   cacheport.Cache // optional snapshot store
	logger  *log.Logger
}

func NewPresenceTracker(grace time.Duration, publish PresencePublisher, cache cacheport.Cache, logger *log.Logger) *PresenceTracker {
	return &PresenceTracker{
		counts:   make(map[string]int),
		lastSeen: make(map[string]time.Time),
		timers:   make(map[string]*time.Timer),
		grace:    grace,
		publish:  publish,
		cache:    cache,
		logger:   logger,
	}
}

// OnRegistryChange is the registry hook. It runs synchronously inside
// register/unregister so presence is never stale for a caller that just
// completed either operation.
func (t *PresenceTracker) OnRegistryChange(userID string, connections int) {
	now := time.Now().UTC()

	t.mu.Lock()
	prev := t.counts[userID]
	if connections > 0 {
		t.counts[userID] = connections
	} else {
		delete(t.counts, userID)
	}
	t.lastSeen[userID] = now

	wentOnline := prev == 0 && connections > 0
	wentOffline := prev > 0 && connections == 0

	if wentOnline {
		if timer := t.timers[userID]; timer != nil {
			timer.Stop()
			delete(t.timers, userID)
		}
	}
	if wentOffline && t.grace > 0 {
		t.timers[userID] = time.AfterFunc(t.grace, func() { t.expireOffline(userID) })
	}
	t.mu.Unlock()

	if wentOnline {
		t.emit(userID, true, now)
	}
	if wentOffline && t.grace == 0 {
		t.emit(userID, false, now)
	}
}

// Online reports whether the user currently owns at least one connection.
func (t *PresenceTracker) Online(userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts[userID] > 0
}

// LastSeen returns the user's last transition time.
func (t *PresenceTracker) LastSeen(userID string) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ts, ok := t.lastSeen[userID]
	return ts, ok
}

// expireOffline publishes the delayed offline transition unless the user
// reconnected during the grace window.
func (t *PresenceTracker) expireOffline(userID string) {
	t.mu.Lock()
	delete(t.timers, userID)
	if t.counts[userID] > 0 {
		t.mu.Unlock()
		return
	}
	ts := t.lastSeen[userID]
	t.mu.Unlock()

	t.emit(userID, false, ts)
}

func (t *PresenceTracker) emit(userID string, online bool, lastSeen time.Time) {
	t.snapshot(userID, online, lastSeen)
	if t.publish != nil {
		t.publish(userID, online, lastSeen)
	}
}

func (t *PresenceTracker) snapshot(userID string, online bool, lastSeen time.Time) {
	if t.cache == nil {
		return
	}
	raw, err := json.Marshal(PresenceSnapshot{UserID: userID, Online: online, LastSeen: lastSeen})
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := t.cache.Set(ctx, PresenceKey(userID), string(raw), 0); err != nil && t.logger != nil {
		t.logger.Printf("presence snapshot for %s failed: %v", userID, err)
	}
}
