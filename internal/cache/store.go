package cache

import (
	"context"
	"time"
)

// Store is the shared ephemeral key-value surface. The rate limiter keeps
// its counters behind it so a deployment can swap the in-process backend
// for the database-backed one without touching callers.
type Store interface {
	// Get returns the value for key and whether it was present and unexpired.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set upserts key with a value and optional ttl; ttl <= 0 never expires.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes the given keys, ignoring ones that are absent.
	Delete(ctx context.Context, keys ...string) error
	// IncrementWithTTL bumps the counter at key inside the window and
	// reports the new count plus the time left until the window resets.
	IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}
