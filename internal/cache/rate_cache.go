// Package cache keeps resolved exchange rates close to the services that price charges.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/straye-as/fms-api/internal/config"
	"go.uber.org/zap"
)

// RateCache stores exchange rates keyed by pair, date and rate type.
// A miss or a backend failure is never fatal: callers fall back to the database.
type RateCache interface {
	Get(ctx context.Context, key string) (decimal.Decimal, bool)
	Set(ctx context.Context, key string, rate decimal.Decimal)
	Invalidate(ctx context.Context, key string)
}

// RateKey builds the cache key for a rate lookup
func RateKey(base, target string, date time.Time, rateType string) string {
	return fmt.Sprintf("fx:%s:%s:%s:%s", base, target, date.Format("2006-01-02"), rateType)
}

// New returns a redis cache when enabled, otherwise a cache that never hits
func New(cfg *config.RedisConfig, logger *zap.Logger) RateCache {
	if !cfg.Enabled || cfg.Addr == "" {
		return NoopRateCache{}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewRedisRateCache(client, cfg.RateTTLDuration(), logger)
}

// RedisRateCache stores rates as decimal strings in redis
type RedisRateCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisRateCache wraps an existing client
func NewRedisRateCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisRateCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisRateCache{client: client, ttl: ttl, logger: logger}
}

// Get returns the cached rate, if any
func (c *RedisRateCache) Get(ctx context.Context, key string) (decimal.Decimal, bool) {
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return decimal.Zero, false
	}
	if err != nil {
		c.logger.Warn("rate cache get failed", zap.String("key", key), zap.Error(err))
		return decimal.Zero, false
	}
	rate, err := decimal.NewFromString(val)
	if err != nil {
		c.logger.Warn("rate cache holds invalid value", zap.String("key", key), zap.String("value", val))
		return decimal.Zero, false
	}
	return rate, true
}

// Set stores a rate with the configured TTL
func (c *RedisRateCache) Set(ctx context.Context, key string, rate decimal.Decimal) {
	if err := c.client.Set(ctx, key, rate.String(), c.ttl).Err(); err != nil {
		c.logger.Warn("rate cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate removes a cached rate
func (c *RedisRateCache) Invalidate(ctx context.Context, key string) {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.Warn("rate cache delete failed", zap.String("key", key), zap.Error(err))
	}
}

// Ping checks the redis connection
func (c *RedisRateCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// NoopRateCache never stores anything
type NoopRateCache struct{}

func (NoopRateCache) Get(ctx context.Context, key string) (decimal.Decimal, bool) {
	return decimal.Zero, false
}
func (NoopRateCache) Set(ctx context.Context, key string, rate decimal.Decimal) {}
func (NoopRateCache) Invalidate(ctx context.Context, key string)               {}

// MemoryRateCache is an in-process cache for single-instance deployments and tests
type MemoryRateCache struct {
	mu    sync.RWMutex
	rates map[string]decimal.Decimal
}

// NewMemoryRateCache creates an empty in-process cache
func NewMemoryRateCache() *MemoryRateCache {
	return &MemoryRateCache{rates: make(map[string]decimal.Decimal)}
}

func (c *MemoryRateCache) Get(ctx context.Context, key string) (decimal.Decimal, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.rates[key]
	return r, ok
}

func (c *MemoryRateCache) Set(ctx context.Context, key string, rate decimal.Decimal) {
	c.mu.Lock()
	c.rates[key] = rate
	c.mu.Unlock()
}

func (c *MemoryRateCache) Invalidate(ctx context.Context, key string) {
	c.mu.Lock()
	delete(c.rates, key)
	c.mu.Unlock()
}
