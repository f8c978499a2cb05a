// Package cache provides a bounded in-memory cache for query results with
// least-recently-used eviction and per-entry expiry.
package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// Cache defines the interface for caching query results.
type Cache interface {
	// Get returns the value for key if present and not expired.
	Get(ctx context.Context, key string) (interface{}, bool)
	// Put stores value under key with the default TTL.
	Put(ctx context.Context, key string, value interface{})
	// PutWithTTL stores value under key with its own TTL.
	PutWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration)
	// Clear removes all entries and returns how many were removed.
	Clear(ctx context.Context) int
	// Len returns the number of entries currently held, expired or not.
	Len() int
	// Stats returns a snapshot of cache statistics.
	Stats() Stats
	// Close releases any resources held by the cache.
	Close() error
}

// Entry is a single cache entry with its expiry bookkeeping.
type Entry struct {
	Key       string
	Value     interface{}
	CreatedAt time.Time
	TTL       time.Duration
}

// expired reports whether the entry's TTL has elapsed at now.
func (e *Entry) expired(now time.Time) bool {
	return !now.Before(e.CreatedAt.Add(e.TTL))
}

// LRUCache is an O(1) LRU cache with per-entry TTL (thread-safe).
type LRUCache struct {
	cfg   Config
	mu    sync.Mutex
	lru   *list.List               // front = most-recent
	items map[string]*list.Element // key → *list.Element
	stats *StatsCollector
}

var _ Cache = (*LRUCache)(nil)

// New returns a cache configured by cfg. A nil cfg uses DefaultConfig.
func New(cfg *Config) *LRUCache {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	c := *cfg
	c.normalize()

	lc := &LRUCache{
		cfg:   c,
		lru:   list.New(),
		items: make(map[string]*list.Element, c.Capacity),
	}
	if c.EnableStats {
		lc.stats = NewStatsCollector()
	}
	return lc
}

// Get returns the value for key. Expired entries are removed and reported as misses.
func (c *LRUCache) Get(_ context.Context, key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ele, ok := c.items[key]
	if !ok {
		c.recordMiss()
		return nil, false
	}
	e := ele.Value.(*Entry)
	if e.expired(c.cfg.Clock()) {
		c.removeElement(ele)
		if c.stats != nil {
			c.stats.RecordExpiration()
		}
		c.recordMiss()
		return nil, false
	}

	c.lru.MoveToFront(ele)
	if c.stats != nil {
		c.stats.RecordHit()
	}
	return e.Value, true
}

// Put stores value under key with the configured default TTL.
func (c *LRUCache) Put(ctx context.Context, key string, value interface{}) {
	c.PutWithTTL(ctx, key, value, c.cfg.TTL)
}

// PutWithTTL inserts or replaces key. A non-positive ttl uses the default.
// Replacing a key restarts its TTL.
func (c *LRUCache) PutWithTTL(_ context.Context, key string, value interface{}, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.cfg.TTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.cfg.Clock()
	if ele, ok := c.items[key]; ok {
		e := ele.Value.(*Entry)
		e.Value = value
		e.CreatedAt = now
		e.TTL = ttl
		c.lru.MoveToFront(ele)
		return
	}

	ele := c.lru.PushFront(&Entry{
		Key:       key,
		Value:     value,
		CreatedAt: now,
		TTL:       ttl,
	})
	c.items[key] = ele

	for len(c.items) > c.cfg.Capacity {
		c.evictOldest()
	}
	c.updateSize()
}

// Clear empties the cache and returns the number of entries removed.
func (c *LRUCache) Clear(_ context.Context) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.items)
	c.lru.Init()
	c.items = make(map[string]*list.Element, c.cfg.Capacity)
	c.updateSize()
	return n
}

// Prune drops every expired entry and returns how many were dropped.
func (c *LRUCache) Prune(_ context.Context) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.cfg.Clock()
	n := 0
	for ele := c.lru.Back(); ele != nil; {
		prev := ele.Prev()
		if ele.Value.(*Entry).expired(now) {
			c.removeElement(ele)
			if c.stats != nil {
				c.stats.RecordExpiration()
			}
			n++
		}
		ele = prev
	}
	return n
}

// StartJanitor prunes expired entries every interval until ctx is done.
func (c *LRUCache) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.Prune(ctx)
			}
		}
	}()
}

// Keys returns the cached keys from most to least recently used.
func (c *LRUCache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.items))
	for ele := c.lru.Front(); ele != nil; ele = ele.Next() {
		keys = append(keys, ele.Value.(*Entry).Key)
	}
	return keys
}

// Len returns the current number of entries.
func (c *LRUCache) Len() int {
	c.mu.Lock()
	n := len(c.items)
	c.mu.Unlock()
	return n
}

// Stats returns a statistics snapshot.
func (c *LRUCache) Stats() Stats {
	if c.stats == nil {
		return Stats{Size: int64(c.Len()), Capacity: c.cfg.Capacity}
	}
	s := c.stats.GetStats()
	s.Capacity = c.cfg.Capacity
	return s
}

// Close releases any resources held by the cache.
func (c *LRUCache) Close() error {
	c.Clear(context.Background())
	return nil
}

// evictOldest removes the LRU element (caller holds the lock).
func (c *LRUCache) evictOldest() {
	ele := c.lru.Back()
	if ele == nil {
		return
	}
	c.removeElement(ele)
	if c.stats != nil {
		c.stats.RecordEviction()
	}
}

// removeElement unlinks ele (caller holds the lock).
func (c *LRUCache) removeElement(ele *list.Element) {
	c.lru.Remove(ele)
	delete(c.items, ele.Value.(*Entry).Key)
	c.updateSize()
}

func (c *LRUCache) recordMiss() {
	if c.stats != nil {
		c.stats.RecordMiss()
	}
}

func (c *LRUCache) updateSize() {
	if c.stats != nil {
		c.stats.UpdateSize(int64(len(c.items)))
	}
}
