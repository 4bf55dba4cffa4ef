package approval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"runtimeops/internal/config"
	"runtimeops/internal/constants"
	"runtimeops/pkg/circuitbreaker"
)

// PendingIndex maps an approval key to the id of its pending request. It only
// speeds up lookups; postgres stays authoritative.
type PendingIndex interface {
	Reserve(ctx context.Context, key Key, requestID string, ttl time.Duration) (bool, error)
	Lookup(ctx context.Context, key Key) (string, error)
	Release(ctx context.Context, key Key) error
}

type RedisPendingIndex struct {
	client *redis.Client
}

func NewRedisPendingIndex(client *redis.Client) *RedisPendingIndex {
	return &RedisPendingIndex{client: client}
}

func indexKey(key Key) string {
	return constants.CacheKeyPrefixPendingApproval + key.String()
}

func (r *RedisPendingIndex) Reserve(ctx context.Context, key Key, requestID string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, indexKey(key), requestID, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis SetNX failed: %w", err)
	}
	return ok, nil
}

func (r *RedisPendingIndex) Lookup(ctx context.Context, key Key) (string, error) {
	id, err := r.client.Get(ctx, indexKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis GET failed: %w", err)
	}
	return id, nil
}

func (r *RedisPendingIndex) Release(ctx context.Context, key Key) error {
	if err := r.client.Del(ctx, indexKey(key)).Err(); err != nil {
		return fmt.Errorf("redis DEL failed: %w", err)
	}
	return nil
}

type CircuitBreakerIndex struct {
	index PendingIndex
	cb    *circuitbreaker.Wrapper
}

func NewCircuitBreakerIndex(index PendingIndex, cfg config.CircuitBreakerConfig) *CircuitBreakerIndex {
	if !cfg.Enabled {
		return &CircuitBreakerIndex{index: index}
	}
	return &CircuitBreakerIndex{
		index: index,
		cb:    circuitbreaker.NewWrapper(circuitbreaker.DefaultConfig("redis-approvals").WithTuning(cfg.Tuning())),
	}
}

func (c *CircuitBreakerIndex) Reserve(ctx context.Context, key Key, requestID string, ttl time.Duration) (bool, error) {
	if c.cb == nil {
		return c.index.Reserve(ctx, key, requestID, ttl)
	}
	var ok bool
	err := c.cb.Do(ctx, func() error {
		var err error
		ok, err = c.index.Reserve(ctx, key, requestID, ttl)
		return err
	})
	return ok, c.wrap(err)
}

func (c *CircuitBreakerIndex) Lookup(ctx context.Context, key Key) (string, error) {
	if c.cb == nil {
		return c.index.Lookup(ctx, key)
	}
	var id string
	err := c.cb.Do(ctx, func() error {
		var err error
		id, err = c.index.Lookup(ctx, key)
		return err
	})
	return id, c.wrap(err)
}

func (c *CircuitBreakerIndex) Release(ctx context.Context, key Key) error {
	if c.cb == nil {
		return c.index.Release(ctx, key)
	}
	return c.wrap(c.cb.Do(ctx, func() error {
		return c.index.Release(ctx, key)
	}))
}

func (c *CircuitBreakerIndex) wrap(err error) error {
	if err != nil && c.cb.IsOpen() {
		return fmt.Errorf("circuit breaker is open for redis-approvals: %w", err)
	}
	return err
}

func (c *CircuitBreakerIndex) State() string {
	if c.cb == nil {
		return "disabled"
	}
	return c.cb.State().String()
}
