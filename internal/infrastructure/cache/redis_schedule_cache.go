package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/harvestpay/backend/internal/domain/pricing"
	"github.com/harvestpay/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisScheduleCache implements pricing.ScheduleCache backed by Redis,
// suitable for deployments where several instances calculate batches against
// the same schedule data. A cache miss is never an error: Redis being down
// degrades to hitting the database, not failing the calculation.
type RedisScheduleCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisScheduleCache creates a Redis-backed schedule cache
func NewRedisScheduleCache(cfg config.RedisConfig, ttl time.Duration, logger *zap.Logger) (*RedisScheduleCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisScheduleCacheWithClient(client, ttl, logger), nil
}

// NewRedisScheduleCacheWithClient creates a cache over an existing client.
// Useful for testing or when sharing a client across components.
func NewRedisScheduleCacheWithClient(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisScheduleCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisScheduleCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// Get returns the cached schedule row for the key, if present
func (c *RedisScheduleCache) Get(ctx context.Context, key pricing.ResolveKey) (*pricing.PriceSchedule, bool) {
	data, err := c.client.Get(ctx, key.String()).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Debug("Schedule cache read failed",
				zap.String("key", key.String()),
				zap.Error(err))
		}
		return nil, false
	}

	var schedule pricing.PriceSchedule
	if err := json.Unmarshal(data, &schedule); err != nil {
		c.logger.Warn("Corrupt schedule cache entry, dropping it",
			zap.String("key", key.String()),
			zap.Error(err))
		c.client.Del(ctx, key.String())
		return nil, false
	}
	return &schedule, true
}

// Set stores a resolved schedule row under the key
func (c *RedisScheduleCache) Set(ctx context.Context, key pricing.ResolveKey, schedule *pricing.PriceSchedule) {
	data, err := json.Marshal(schedule)
	if err != nil {
		c.logger.Warn("Failed to marshal schedule for cache",
			zap.String("key", key.String()),
			zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, key.String(), data, c.ttl).Err(); err != nil {
		c.logger.Debug("Schedule cache write failed",
			zap.String("key", key.String()),
			zap.Error(err))
	}
}

// Close closes the Redis client
func (c *RedisScheduleCache) Close() error {
	return c.client.Close()
}

// Ensure RedisScheduleCache implements ScheduleCache
var _ pricing.ScheduleCache = (*RedisScheduleCache)(nil)
