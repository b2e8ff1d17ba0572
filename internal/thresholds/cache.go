// Package thresholds provides per-station flood stage configuration, served
// through an explicit read-through cache so the cache policy is testable
// independent of the backend.
package thresholds

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned by a KV when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

// KV is the minimal key-value surface the read-through cache needs.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// RedisKV adapts a Redis client to the KV interface.
type RedisKV struct {
	client *redis.Client
}

// NewRedisKV creates a Redis-backed KV.
func NewRedisKV(client *redis.Client) *RedisKV {
	return &RedisKV{client: client}
}

func (r *RedisKV) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", ErrCacheMiss
	}
	if err != nil {
		return "", fmt.Errorf("redis get failed: %w", err)
	}
	return val, nil
}

func (r *RedisKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Loader fetches the authoritative value for a key on cache miss.
type Loader func(ctx context.Context, key string) (string, error)

// ReadThrough is a read-through cache: Get checks the KV first and falls
// back to the loader, populating the KV with the loaded value and TTL.
type ReadThrough struct {
	kv     KV
	prefix string
	ttl    time.Duration
	loader Loader
}

// NewReadThrough creates a read-through cache.
func NewReadThrough(kv KV, prefix string, ttl time.Duration, loader Loader) *ReadThrough {
	return &ReadThrough{
		kv:     kv,
		prefix: prefix,
		ttl:    ttl,
		loader: loader,
	}
}

// Get returns the cached value for key, reporting whether it was a hit.
// On miss the loader is consulted and the result cached. A failed cache
// write is logged, not fatal: the loaded value is still returned.
func (c *ReadThrough) Get(ctx context.Context, key string) (string, bool, error) {
	cacheKey := c.prefix + key

	val, err := c.kv.Get(ctx, cacheKey)
	if err == nil {
		return val, true, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		// Degraded cache: fall through to the loader rather than failing.
		slog.Warn("Cache read failed, falling back to loader", "key", cacheKey, "error", err)
	}

	val, err = c.loader(ctx, key)
	if err != nil {
		return "", false, fmt.Errorf("loader failed for %s: %w", key, err)
	}

	if err := c.kv.Set(ctx, cacheKey, val, c.ttl); err != nil {
		slog.Warn("Cache write failed", "key", cacheKey, "error", err)
	}

	return val, false, nil
}
