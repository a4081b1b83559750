package core

import (
	"context"
	"time"
)

// CacheRepository is the shared byte store behind the content info cache.
// Implementations namespace keys themselves; callers pass bare keys.
type CacheRepository interface {
	// Set stores value under key. A zero ttl keeps the entry until evicted.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get returns (nil, nil) on a miss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete reports whether an entry was removed.
	Delete(ctx context.Context, key string) (bool, error)

	// Health pings the backing store.
	Health(ctx context.Context) error
}
