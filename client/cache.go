package client

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/patrickmn/go-cache"
	"github.com/zeebo/xxh3"
)

// ResponseCache stores raw GET response bodies.
type ResponseCache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte)
	Delete(key string)
}

func responseKey(method, path string) string {
	return fmt.Sprintf("chatkit:resp:%016x", xxh3.HashString(method+" "+path))
}

// MemoryCache keeps responses in process.
type MemoryCache struct {
	cache *cache.Cache
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{cache: cache.New(ttl, 2*ttl)}
}

func (m *MemoryCache) Get(key string) ([]byte, bool) {
	x, found := m.cache.Get(key)
	if !found {
		return nil, false
	}
	return x.([]byte), true
}

func (m *MemoryCache) Set(key string, value []byte) {
	m.cache.Set(key, value, cache.DefaultExpiration)
}

func (m *MemoryCache) Delete(key string) {
	m.cache.Delete(key)
}

type memcacheClient interface {
	Get(key string) (*memcache.Item, error)
	Set(item *memcache.Item) error
	Delete(key string) error
}

// Memcache shares responses between processes through memcached.
type Memcache struct {
	client memcacheClient
	ttl    time.Duration
}

func NewMemcache(addr string, ttl time.Duration) *Memcache {
	return &Memcache{client: memcache.New(addr), ttl: ttl}
}

func (m *Memcache) Get(key string) ([]byte, bool) {
	item, err := m.client.Get(key)
	if err != nil {
		if err != memcache.ErrCacheMiss {
			slog.Warn(
				"memcache get failed",
				slog.String("error", err.Error()),
				slog.String("module", "client"),
			)
		}
		return nil, false
	}
	return item.Value, true
}

func (m *Memcache) Set(key string, value []byte) {
	err := m.client.Set(&memcache.Item{
		Key:        key,
		Value:      value,
		Expiration: int32(m.ttl.Seconds()),
	})
	if err != nil {
		slog.Warn(
			"memcache set failed",
			slog.String("error", err.Error()),
			slog.String("module", "client"),
		)
	}
}

func (m *Memcache) Delete(key string) {
	err := m.client.Delete(key)
	if err != nil && err != memcache.ErrCacheMiss {
		slog.Warn(
			"memcache delete failed",
			slog.String("error", err.Error()),
			slog.String("module", "client"),
		)
	}
}
