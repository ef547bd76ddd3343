// internal/common/database/redis.go
package database

import (
	"context"
	"fmt"
	"time"

	"marriage-compliance/internal/common/config"

	"github.com/redis/go-redis/v9"
)

// RedisClient wraps the Redis client
type RedisClient struct {
	Client *redis.Client
}

// NewRedis creates a new Redis client
func NewRedis(cfg config.RedisConfig) (*RedisClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	return &RedisClient{Client: rdb}, nil
}

// Ping tests the Redis connection
func (c *RedisClient) Ping(ctx context.Context) error {
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (c *RedisClient) Close() error {
	if c.Client != nil {
		return c.Client.Close()
	}
	return nil
}

// AcquireLock sets a NX lock key with a TTL. Returns true when this caller
// now holds the lock. Used to keep periodic jobs single-flight across
// horizontally scaled instances.
func (c *RedisClient) AcquireLock(ctx context.Context, key, holder string, ttl time.Duration) (bool, error) {
	return c.Client.SetNX(ctx, key, holder, ttl).Result()
}

// ReleaseLock deletes a lock key if this holder still owns it.
func (c *RedisClient) ReleaseLock(ctx context.Context, key, holder string) error {
	owner, err := c.Client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return err
	}
	if owner != holder {
		return nil
	}
	return c.Client.Del(ctx, key).Err()
}
