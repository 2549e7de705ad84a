package cooldown

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces cooldown keys in a shared Redis database.
const DefaultRedisPrefix = "simplechat:cooldown:"

// RedisTracker is a Tracker stored in Redis, letting several relay instances
// behind one address share their cooldown list. Keys expire through Redis TTLs.
type RedisTracker struct {
	client *redis.Client
	prefix string
}

// NewRedisTracker creates a RedisTracker using the given client.
//
// Example:
//
//	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	tracker := NewRedisTracker(client, DefaultRedisPrefix)
func NewRedisTracker(client *redis.Client, prefix string) *RedisTracker {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}

	return &RedisTracker{
		client: client,
		prefix: prefix,
	}
}

// Mark implements Tracker.
func (t *RedisTracker) Mark(ctx context.Context, host string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	if err := t.client.Set(ctx, t.key(host), time.Now().Add(ttl).Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("redis set error: %w", err)
	}

	return nil
}

// Active implements Tracker.
func (t *RedisTracker) Active(ctx context.Context, host string) (bool, error) {
	n, err := t.client.Exists(ctx, t.key(host)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists error: %w", err)
	}

	return n > 0, nil
}

// Close closes the underlying client.
func (t *RedisTracker) Close() error {
	return t.client.Close()
}

func (t *RedisTracker) key(host string) string {
	return t.prefix + host
}
