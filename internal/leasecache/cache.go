// Package leasecache implements C5: a per-key exclusive lease with TTL,
// plus a serialized result cache with TTL, both backed by Redis. Grounded
// on the teacher's shared/cache package (cache.go's interface shape,
// redis.go's client construction), generalized from a plain key-value
// Cache into the mutex+result-cache contract spec.md §4.6 requires.
package leasecache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds Redis connection configuration.
type Config struct {
	URL          string
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
	MinIdleConns int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig(url string) *Config {
	return &Config{
		URL:          url,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	}
}

// Cache is the distributed mutex and result cache the transfer
// coordinator depends on (C5). Implementations back it with Redis in
// production and an in-memory fake in tests.
type Cache interface {
	// TryAcquire attempts SET key 1 EX ttl NX, returning whether this
	// caller now owns the lease.
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release unconditionally deletes the lease key. No fencing token is
	// used: a caller that stalls past the TTL silently loses the lease.
	Release(ctx context.Context, key string) error

	// PutResult stores a serialized result with a TTL, replacing any prior value.
	PutResult(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// GetResult retrieves a serialized result. ok is false on a cache miss.
	GetResult(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Ping checks connection health.
	Ping(ctx context.Context) error

	// Close releases underlying connections.
	Close() error
}

// RedisCache implements Cache using Redis as the backend.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a new Redis-backed Cache, verifying connectivity.
func NewRedisCache(cfg *Config) (*RedisCache, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("leasecache: failed to parse redis URL: %w", err)
	}

	opts.MaxRetries = cfg.MaxRetries
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout
	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("leasecache: failed to connect to redis: %w", err)
	}

	return &RedisCache{client: client}, nil
}

// TryAcquire issues SET key 1 EX ttl NX.
func (r *RedisCache) TryAcquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("leasecache: acquire error: %w", err)
	}
	return ok, nil
}

// Release unconditionally deletes the lease key.
func (r *RedisCache) Release(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("leasecache: release error: %w", err)
	}
	return nil
}

// PutResult writes value at key with the given TTL via SETEX semantics.
func (r *RedisCache) PutResult(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("leasecache: put result error: %w", err)
	}
	return nil
}

// GetResult reads the value at key, if present.
func (r *RedisCache) GetResult(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("leasecache: get result error: %w", err)
	}
	return val, true, nil
}

// Ping checks connection health.
func (r *RedisCache) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("leasecache: ping error: %w", err)
	}
	return nil
}

// Close closes the underlying Redis client.
func (r *RedisCache) Close() error {
	return r.client.Close()
}

// Keys used against the cache, per spec.md §4.1.
func LeaseKey(idempotencyKey string) string {
	return "lock:" + idempotencyKey
}

func ResultKey(idempotencyKey string) string {
	return "idempotency:" + idempotencyKey
}
