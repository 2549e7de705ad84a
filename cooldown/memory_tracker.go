package cooldown

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryTracker is an in-process Tracker backed by go-cache, whose janitor
// evicts expired hosts.
type MemoryTracker struct {
	cache *cache.Cache
}

// NewMemoryTracker creates a MemoryTracker that purges expired hosts every
// cleanupInterval.
//
// Parameters:
//   - cleanupInterval: Interval at which expired entries are removed
//
// Returns:
//   - A new MemoryTracker
func NewMemoryTracker(cleanupInterval time.Duration) *MemoryTracker {
	return &MemoryTracker{
		cache: cache.New(cache.NoExpiration, cleanupInterval),
	}
}

// Mark implements Tracker.
func (t *MemoryTracker) Mark(ctx context.Context, host string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if ttl <= 0 {
		return nil
	}

	t.cache.Set(host, time.Now().Add(ttl), ttl)
	return nil
}

// Active implements Tracker.
func (t *MemoryTracker) Active(ctx context.Context, host string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	_, found := t.cache.Get(host)
	return found, nil
}

