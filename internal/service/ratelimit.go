package service

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/totegamma/portfolio/internal/domain"
)

// RateLimiter implements a fixed window counter per key.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Window() time.Duration
}

// RedisRateLimiter shares its counters across every process using the same redis.
type RedisRateLimiter struct {
	rdb    *redis.Client
	config domain.RateLimit
}

func NewRedisRateLimiter(rdb *redis.Client, config domain.RateLimit) *RedisRateLimiter {
	return &RedisRateLimiter{rdb: rdb, config: config}
}

func (l *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	ctx, span := tracer.Start(ctx, "Service.RateLimit.Allow")
	defer span.End()

	key = "portfolio:ratelimit:" + key
	count, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, errors.Wrap(err, "incr rate limit counter")
	}
	if count == 1 {
		if err := l.rdb.Expire(ctx, key, l.config.Window).Err(); err != nil {
			return false, errors.Wrap(err, "expire rate limit counter")
		}
	}
	return count <= int64(l.config.Requests), nil
}

// MemoryRateLimiter keeps counters in process. Limits are per replica.
type MemoryRateLimiter struct {
	mu     sync.Mutex
	cache  *cache.Cache
	config domain.RateLimit
}

func NewMemoryRateLimiter(config domain.RateLimit) *MemoryRateLimiter {
	return &MemoryRateLimiter{
		cache:  cache.New(config.Window, 2*config.Window),
		config: config,
	}
}

func (l *MemoryRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.cache.Add(key, 1, l.config.Window); err == nil {
		return l.config.Requests >= 1, nil
	}
	count, err := l.cache.IncrementInt(key, 1)
	if err != nil {
		// expired between Add and Increment
		l.cache.Set(key, 1, l.config.Window)
		count = 1
	}
	return count <= l.config.Requests, nil
}

// Window reports the configured window, used for Retry-After.
func (l *MemoryRateLimiter) Window() time.Duration {
	return l.config.Window
}

func (l *RedisRateLimiter) Window() time.Duration {
	return l.config.Window
}
