package port

import (
	"context"
	"time"
)

// Cache is the minimal key-value contract used by the application for OTP
// sessions, rate-limit counters and presence snapshots. Implementations must
// be concurrency-safe and context-aware so callers control timeouts.
//
// Values are stored as strings to keep the port free of serialization
// concerns; callers marshal/unmarshal as needed.
type Cache interface {
	// Get fetches the value for key. Misses are reported as ("", ErrMiss)
	// so callers can distinguish them from transport errors.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value at key with the provided TTL. Zero or negative TTL
	// means no expiration.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error

	// Incr atomically increments the counter at key and returns the new
	// value. The TTL is applied only when the key is created, so a window
	// started by the first increment is not extended by later ones.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// Del removes one or more keys and returns the number of keys removed.
	Del(ctx context.Context, keys ...string) (int64, error)

	// Ping verifies connectivity with the cache backend.
	Ping(ctx context.Context) error

	// Close releases any resources held by the cache.
	Close() error
}

// ErrMiss signals a cache miss in a typed way.
var ErrMiss = errMiss{}

type errMiss struct{}

func (e errMiss) Error() string { return "cache: miss" }
