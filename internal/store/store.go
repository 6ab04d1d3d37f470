package store

import (
	"context"
	"time"
)

// Store is the key-value surface the detection core needs: atomic counters,
// TTL-expiring sets and strings, and plain get/set for global metrics. Redis
// provides it in production; MemoryStore provides it for single-process runs
// and tests with identical semantics.
type Store interface {
	// IncrExpire atomically increments key and re-arms its TTL, returning the
	// new value.
	IncrExpire(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// AddSetExpire adds member to the set at key, re-arms the set's TTL and
	// returns the resulting cardinality.
	AddSetExpire(ctx context.Context, key, member string, ttl time.Duration) (int64, error)

	// SetNXExpire stores value under key with a TTL only if the key is absent.
	// It reports whether the value was written.
	SetNXExpire(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// SetExpire stores value under key with a TTL.
	SetExpire(ctx context.Context, key, value string, ttl time.Duration) error

	// Set stores value under key without expiry.
	Set(ctx context.Context, key, value string) error

	// Get returns the value at key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)

	// Incr atomically increments key without touching its TTL.
	Incr(ctx context.Context, key string) (int64, error)

	// Ping verifies connectivity.
	Ping(ctx context.Context) error

	Close() error
}
