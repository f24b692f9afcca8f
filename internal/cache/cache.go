// Package cache provides a two-tier config cache: an in-process memory tier
// backed by an optional Redis mirror. The mirror survives process restarts
// and lets sibling instances rehydrate entries without hitting the database.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

const (
	// DefaultTTL applies to tenant-specific configs.
	DefaultTTL = 5 * time.Minute
	// ShortTTL applies to fallback default configs so a late-arriving
	// custom config is picked up sooner.
	ShortTTL = 2 * time.Minute
)

// envelope wraps a mirrored value with its absolute expiry so a reader can
// reject entries that outlived their TTL while sitting in Redis.
type envelope struct {
	Value     json.RawMessage `json:"value"`
	ExpiresAt int64           `json:"expiresAt"`
}

type Cache[T any] struct {
	mem    *gocache.Cache
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// New builds a cache with the given key prefix and default TTL. A nil client
// yields a memory-only cache.
func New[T any](client *redis.Client, prefix string, defaultTTL time.Duration) *Cache[T] {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	return &Cache[T]{
		mem:    gocache.New(defaultTTL, 10*time.Minute),
		client: client,
		prefix: prefix,
		ttl:    defaultTTL,
	}
}

func (c *Cache[T]) key(k string) string {
	return c.prefix + k
}

// Get returns the cached value for key. The memory tier is consulted first;
// on a miss the Redis mirror is checked and, if the entry is still within its
// TTL, rehydrated into memory.
func (c *Cache[T]) Get(ctx context.Context, key string) (T, bool) {
	var zero T
	if v, ok := c.mem.Get(c.key(key)); ok {
		if typed, ok := v.(T); ok {
			return typed, true
		}
	}
	if c.client == nil {
		return zero, false
	}

	raw, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		return zero, false
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		_ = c.client.Del(ctx, c.key(key)).Err()
		return zero, false
	}
	if env.ExpiresAt <= time.Now().UnixMilli() {
		_ = c.client.Del(ctx, c.key(key)).Err()
		return zero, false
	}
	var value T
	if err := json.Unmarshal(env.Value, &value); err != nil {
		_ = c.client.Del(ctx, c.key(key)).Err()
		return zero, false
	}
	c.mem.Set(c.key(key), value, time.Until(time.UnixMilli(env.ExpiresAt)))
	return value, true
}

// Set stores value under key in both tiers. A non-positive ttl falls back to
// the cache default. A mirror write failure does not fail the Set; the memory
// tier is authoritative for this process.
func (c *Cache[T]) Set(ctx context.Context, key string, value T, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.ttl
	}
	c.mem.Set(c.key(key), value, ttl)
	if c.client == nil {
		return nil
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}
	env := envelope{Value: raw, ExpiresAt: time.Now().Add(ttl).UnixMilli()}
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal cache envelope: %w", err)
	}
	if err := c.client.Set(ctx, c.key(key), payload, ttl).Err(); err != nil {
		return fmt.Errorf("mirror cache entry: %w", err)
	}
	return nil
}

// Invalidate removes key from both tiers.
func (c *Cache[T]) Invalidate(ctx context.Context, key string) error {
	c.mem.Delete(c.key(key))
	if c.client == nil {
		return nil
	}
	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		return fmt.Errorf("invalidate mirror entry: %w", err)
	}
	return nil
}

// Drop removes key from the memory tier only. Sync listeners use it so the
// instance that wrote the mirror entry is not also the one deleting it.
func (c *Cache[T]) Drop(key string) {
	c.mem.Delete(c.key(key))
}

// Clear flushes the memory tier and sweeps all prefixed keys from the mirror.
func (c *Cache[T]) Clear(ctx context.Context) error {
	c.mem.Flush()
	if c.client == nil {
		return nil
	}

	iter := c.client.Scan(ctx, 0, c.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("sweep mirror key %s: %w", iter.Val(), err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan mirror keys: %w", err)
	}
	return nil
}
