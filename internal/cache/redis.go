// Package cache wraps the shared Redis connection. Counters are never
// cached here; Redis only carries rate-limit windows.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/zfogg/circle/internal/config"
	"github.com/zfogg/circle/internal/logger"
	"go.uber.org/zap"
)

// RedisClient wraps the redis.Client with centralized connection pooling
type RedisClient struct {
	client *redis.Client
}

// Singleton instance (package-level)
var globalRedis *RedisClient

// NewRedisClient connects to the Redis instance described by cfg and
// installs it as the global client
func NewRedisClient(cfg config.RedisConfig) (*RedisClient, error) {
	host, port := cfg.Host, cfg.Port
	if host == "" {
		host = "localhost"
	}
	if port == "" {
		port = "6379"
	}

	addr := fmt.Sprintf("%s:%s", host, port)

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           0,
		MaxRetries:   3,
		PoolSize:     10,
		MinIdleConns: 2,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		DialTimeout:  5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.ErrorWithFields("Failed to connect to Redis", err)
		_ = client.Close()
		return nil, err
	}

	rc := &RedisClient{client: client}
	globalRedis = rc

	logger.Log.Info("Redis client connected", zap.String("address", addr))
	return rc, nil
}

// NewFromClient wraps an existing client without touching the global
func NewFromClient(client *redis.Client) *RedisClient {
	return &RedisClient{client: client}
}

// GetRedisClient returns the global Redis client instance, or nil when
// Redis was never configured
func GetRedisClient() *RedisClient {
	return globalRedis
}

// Close closes the Redis connection gracefully
func (rc *RedisClient) Close() error {
	if rc == nil || rc.client == nil {
		return nil
	}
	return rc.client.Close()
}

// Ping tests the Redis connection
func (rc *RedisClient) Ping(ctx context.Context) error {
	return rc.client.Ping(ctx).Err()
}

// Hit counts one request against a fixed window starting at the first hit
// and returns the count so far together with the time left in the window
func (rc *RedisClient) Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	count, err := rc.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("incr %s: %w", key, err)
	}

	ttl, err := rc.client.TTL(ctx, key).Result()
	if err != nil {
		return count, 0, fmt.Errorf("ttl %s: %w", key, err)
	}
	// A key without expiry is either new or lost its EXPIRE to a crash
	if count == 1 || ttl < 0 {
		if err := rc.client.Expire(ctx, key, window).Err(); err != nil {
			return count, 0, fmt.Errorf("expire %s: %w", key, err)
		}
		ttl = window
	}
	return count, ttl, nil
}
