package hub

import (
	"sync"
	"time"
)

type typingKey struct {
	conversationID string
	userID         string
}

// TypingTracker holds ephemeral typing state per (conversation, user).
// Nothing is persisted; an indicator expires on explicit stop, on the idle
// TTL, or when the user's last connection drops.
type TypingTracker struct {
	mu     sync.Mutex
	timers map[typingKey]*time.Timer

	ttl      time.Duration
	onExpire func(conversationID string, userID string)
}

func NewTypingTracker(ttl time.Duration, onExpire func(conversationID string, userID string)) *TypingTracker {
	return &TypingTracker{
		timers:   make(map[typingKey]*time.Timer),
		ttl:      ttl,
		onExpire: onExpire,
	}
}

// Start marks the user as typing and (re)arms the idle timer.
func (t *TypingTracker) Start(conversationID string, userID string) {
	key := typingKey{conversationID, userID}
	t.mu.Lock()
	if timer := t.timers[key]; timer != nil {
		timer.Stop()
	}
	t.timers[key] = time.AfterFunc(t.ttl, func() { t.expire(key) })
	t.mu.Unlock()
}

// Stop clears the indicator; it reports whether the user was typing so the
// caller can skip redundant fan-out.
func (t *TypingTracker) Stop(conversationID string, userID string) bool {
	key := typingKey{conversationID, userID}
	t.mu.Lock()
	timer, ok := t.timers[key]
	if ok {
		timer.Stop()
		delete(t.timers, key)
	}
	t.mu.Unlock()
	return ok
}

// StopAll clears every indicator of the user and returns the conversations
// that were active. Used when the user's last connection drops.
func (t *TypingTracker) StopAll(userID string) []string {
	t.mu.Lock()
	var conversations []string
	for key, timer := range t.timers {
		if key.userID != userID {
			continue
		}
		timer.Stop()
		delete(t.timers, key)
		conversations = append(conversations, key.conversationID)
	}
	t.mu.Unlock()
	return conversations
}

func (t *TypingTracker) expire(key typingKey) {
	t.mu.Lock()
	_, ok := t.timers[key]
	if ok {
		delete(t.timers, key)
	}
	t.mu.Unlock()
	if ok && t.onExpire != nil {
		t.onExpire(key.conversationID, key.userID)
	}
}
