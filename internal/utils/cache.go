package utils

import (
	"agora/internal/models"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	DefaultCacheTTL  = 5 * time.Minute
	DefaultCacheSize = 500
)

// CacheItem 包装缓存数据和写入时间
type CacheItem struct {
	Items    []models.ContentItem
	StoredAt time.Time
}

// CacheStats receives hit/miss notifications. Implementations must be safe
// for concurrent use.
type CacheStats interface {
	CacheHit()
	CacheMiss()
}

// QueryCache memoises ranked content listings by filter signature.
// Entries older than the TTL are treated as a miss and removed on access.
// It is safe for concurrent use and holds nothing authoritative.
type QueryCache struct {
	lruCache *lru.Cache[string, CacheItem]
	ttl      time.Duration
	now      func() time.Time
	stats    CacheStats
}

type CacheOption func(*QueryCache)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) CacheOption {
	return func(c *QueryCache) { c.now = now }
}

func WithStats(s CacheStats) CacheOption {
	return func(c *QueryCache) { c.stats = s }
}

// NewQueryCache creates a cache holding at most size listings.
func NewQueryCache(size int, ttl time.Duration, opts ...CacheOption) (*QueryCache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	l, err := lru.New[string, CacheItem](size)
	if err != nil {
		return nil, err
	}
	c := &QueryCache{lruCache: l, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *QueryCache) expired(item CacheItem) bool {
	return c.now().Sub(item.StoredAt) >= c.ttl
}

// Get 获取缓存，不存在或已过期则返回 false
func (c *QueryCache) Get(key string) ([]models.ContentItem, bool) {
	if c == nil {
		return nil, false
	}
	val, ok := c.lruCache.Get(key)
	if ok && c.expired(val) {
		c.lruCache.Remove(key)
		ok = false
	}
	if !ok {
		if c.stats != nil {
			c.stats.CacheMiss()
		}
		return nil, false
	}
	if c.stats != nil {
		c.stats.CacheHit()
	}
	return cloneItems(val.Items), true
}

// Put stores a copy of items under key.
func (c *QueryCache) Put(key string, items []models.ContentItem) {
	if c == nil {
		return
	}
	c.lruCache.Add(key, CacheItem{
		Items:    cloneItems(items),
		StoredAt: c.now(),
	})
}

// InvalidateAll drops every entry. Called after any content mutation.
func (c *QueryCache) InvalidateAll() {
	if c == nil {
		return
	}
	c.lruCache.Purge()
}

// PruneExpired removes stale entries and reports how many were dropped.
func (c *QueryCache) PruneExpired() int {
	if c == nil {
		return 0
	}
	removed := 0
	for _, key := range c.lruCache.Keys() {
		val, ok := c.lruCache.Peek(key)
		if ok && c.expired(val) {
			c.lruCache.Remove(key)
			removed++
		}
	}
	return removed
}

func (c *QueryCache) Len() int {
	if c == nil {
		return 0
	}
	return c.lruCache.Len()
}

func cloneItems(items []models.ContentItem) []models.ContentItem {
	if items == nil {
		return nil
	}
	out := make([]models.ContentItem, len(items))
	copy(out, items)
	return out
}
