package iem

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/vtec-browser/internal/observability"
)

// Cache stores raw archive responses by request key.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, body []byte)
}

// CachingFetcher wraps a Fetcher with a response cache. Archive responses
// for past events rarely change, so successful bodies are reused until the
// cache expires them. Failures are never cached.
type CachingFetcher struct {
	inner   Fetcher
	cache   Cache
	metrics *observability.Metrics
}

// NewCachingFetcher creates a cache decorator around a fetcher.
func NewCachingFetcher(inner Fetcher, cache Cache, metrics *observability.Metrics) *CachingFetcher {
	return &CachingFetcher{
		inner:   inner,
		cache:   cache,
		metrics: metrics,
	}
}

func (c *CachingFetcher) Fetch(ctx context.Context, path string, params url.Values) ([]byte, error) {
	key := CacheKey(path, params)
	if body, ok := c.cache.Get(ctx, key); ok {
		c.metrics.Cache.WithLabelValues("hit").Inc()
		return body, nil
	}
	c.metrics.Cache.WithLabelValues("miss").Inc()

	body, err := c.inner.Fetch(ctx, path, params)
	if err != nil {
		return nil, err
	}
	c.cache.Set(ctx, key, body)
	return body, nil
}

// CacheKey is path plus the encoded (sorted) query.
func CacheKey(path string, params url.Values) string {
	return path + "?" + params.Encode()
}

// MemoryCache is a thread-safe LRU with a per-entry time to live.
type MemoryCache struct {
	maxEntries int
	ttl        time.Duration
	clock      clockwork.Clock

	mu      sync.Mutex
	entries map[string]*entry
	head    *entry // most recently used
	tail    *entry // least recently used
}

type entry struct {
	key     string
	value   []byte
	expires time.Time
	prev    *entry
	next    *entry
}

// NewMemoryCache creates an LRU holding at most maxEntries bodies. A
// non-positive ttl keeps entries until they are evicted.
func NewMemoryCache(maxEntries int, ttl time.Duration, clock clockwork.Clock) *MemoryCache {
	return &MemoryCache{
		maxEntries: maxEntries,
		ttl:        ttl,
		clock:      clock,
		entries:    make(map[string]*entry),
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.ttl > 0 && !c.clock.Now().Before(e.expires) {
		delete(c.entries, key)
		c.remove(e)
		return nil, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *MemoryCache) Set(_ context.Context, key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expires := c.clock.Now().Add(c.ttl)
	if e, ok := c.entries[key]; ok {
		e.value = value
		e.expires = expires
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value, expires: expires}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

// Len returns the number of cached entries, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *MemoryCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *MemoryCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *MemoryCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *MemoryCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}

// RedisCache shares responses between instances through Redis. Redis
// errors degrade to cache misses.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
	logger *slog.Logger
}

// NewRedisCache creates a cache storing keys under prefix with the given TTL.
func NewRedisCache(client *redis.Client, ttl time.Duration, prefix string, logger *slog.Logger) *RedisCache {
	return &RedisCache{client: client, ttl: ttl, prefix: prefix, logger: logger}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	body, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("redis cache get failed", "key", key, "error", err)
		}
		return nil, false
	}
	return body, true
}

func (c *RedisCache) Set(ctx context.Context, key string, body []byte) {
	if err := c.client.Set(ctx, c.prefix+key, body, c.ttl).Err(); err != nil {
		c.logger.Warn("redis cache set failed", "key", key, "error", err)
	}
}

// CheckReadiness pings Redis.
func (c *RedisCache) CheckReadiness(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
