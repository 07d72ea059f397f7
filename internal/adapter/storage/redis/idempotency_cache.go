package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// IdempotencyCache implements ports.IdempotencyCache using Redis.
// Receipts live under "withdrawal:<key>", in-flight claims under "withdrawal:claim:<key>".
type IdempotencyCache struct {
	client goredis.UniversalClient
	prefix string
}

// NewIdempotencyCache creates a new Redis-backed idempotency cache.
func NewIdempotencyCache(client goredis.UniversalClient) *IdempotencyCache {
	return &IdempotencyCache{
		client: client,
		prefix: "withdrawal:",
	}
}

// Get retrieves a cached receipt by idempotency key.
// Returns nil, nil if the key does not exist.
func (c *IdempotencyCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis idempotency get: %w", err)
	}
	return val, nil
}

// Set stores a receipt with TTL.
func (c *IdempotencyCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis idempotency set: %w", err)
	}
	return nil
}

// Claim atomically marks key as in flight with SET NX.
// Returns true if the caller now owns the key, false if it is already claimed.
func (c *IdempotencyCache) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	result, err := c.client.SetArgs(ctx, c.claimKey(key), 1, goredis.SetArgs{
		Mode: "NX",
		TTL:  ttl,
	}).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis idempotency claim: %w", err)
	}
	return result == "OK", nil
}

// Release drops an in-flight claim.
func (c *IdempotencyCache) Release(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.claimKey(key)).Err(); err != nil {
		return fmt.Errorf("redis idempotency release: %w", err)
	}
	return nil
}

func (c *IdempotencyCache) claimKey(key string) string {
	return c.prefix + "claim:" + key
}
