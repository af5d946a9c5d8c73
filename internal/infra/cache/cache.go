package cache

import (
	"errors"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// DefaultTTL bounds staleness when an invalidation is missed.
const DefaultTTL = 5 * time.Minute

// Memory is an in-process list cache.
type Memory struct {
	c *gocache.Cache
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{c: gocache.New(ttl, 2*ttl)}
}

func (m *Memory) Get(key string) ([]byte, bool) {
	v, ok := m.c.Get(key)
	if !ok {
		return nil, false
	}
	return v.([]byte), true
}

func (m *Memory) Set(key string, value []byte) {
	m.c.Set(key, value, gocache.DefaultExpiration)
}

func (m *Memory) Delete(key string) {
	m.c.Delete(key)
}

// Memcached shares cached listings between replicas. Errors degrade to a
// miss so a cache outage never fails a request.
type Memcached struct {
	mc  *memcache.Client
	ttl time.Duration
}

func NewMemcached(mc *memcache.Client, ttl time.Duration) *Memcached {
	return &Memcached{mc: mc, ttl: ttl}
}

func (m *Memcached) Get(key string) ([]byte, bool) {
	item, err := m.mc.Get(key)
	if err != nil {
		if !errors.Is(err, memcache.ErrCacheMiss) {
			zap.L().Warn("memcached get failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return item.Value, true
}

func (m *Memcached) Set(key string, value []byte) {
	err := m.mc.Set(&memcache.Item{
		Key:        key,
		Value:      value,
		Expiration: int32(m.ttl / time.Second),
	})
	if err != nil {
		zap.L().Warn("memcached set failed", zap.String("key", key), zap.Error(err))
	}
}

func (m *Memcached) Delete(key string) {
	err := m.mc.Delete(key)
	if err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
		zap.L().Warn("memcached delete failed", zap.String("key", key), zap.Error(err))
	}
}
