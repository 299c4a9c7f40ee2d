package marketdata

import (
	"sync"
	"time"

	"esgpulse/internal/eventstudy"
)

type cacheEntry struct {
	series    eventstudy.PriceSeries
	cachedAt  time.Time
	expiresAt time.Time
}

// CacheStats summarizes memo cache usage.
type CacheStats struct {
	Entries  int     `json:"entries"`
	MaxSize  int     `json:"max_size"`
	Hits     int64   `json:"hits"`
	Misses   int64   `json:"misses"`
	HitRatio float64 `json:"hit_ratio"`
}

// SeriesCache memoizes price series per symbol and range. A zero ttl keeps
// entries until evicted by size.
type SeriesCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	ttl     time.Duration
	maxSize int
	hits    int64
	misses  int64
	now     func() time.Time
}

// NewSeriesCache creates a cache holding at most maxSize series.
func NewSeriesCache(ttl time.Duration, maxSize int) *SeriesCache {
	return &SeriesCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
	}
}

func cacheKey(symbol string, start, end time.Time) string {
	return symbol + "|" + start.Format("2006-01-02") + "|" + end.Format("2006-01-02")
}

// Get returns a cached series.
func (c *SeriesCache) Get(key string) (eventstudy.PriceSeries, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok || (c.ttl > 0 && c.now().After(entry.expiresAt)) {
		if ok {
			delete(c.entries, key)
		}
		c.misses++
		return eventstudy.PriceSeries{}, false
	}
	c.hits++
	return entry.series, true
}

// peek is Get without touching the counters.
func (c *SeriesCache) peek(key string) (eventstudy.PriceSeries, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok || (c.ttl > 0 && c.now().After(entry.expiresAt)) {
		return eventstudy.PriceSeries{}, false
	}
	return entry.series, true
}

// Set stores a series.
func (c *SeriesCache) Set(key string, s eventstudy.PriceSeries) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxSize <= 0 {
		return
	}
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxSize {
		c.evictOldest()
	}
	now := c.now()
	c.entries[key] = cacheEntry{series: s, cachedAt: now, expiresAt: now.Add(c.ttl)}
}

// Stats returns usage counters.
func (c *SeriesCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.hits + c.misses
	ratio := 0.0
	if total > 0 {
		ratio = float64(c.hits) / float64(total)
	}
	return CacheStats{
		Entries:  len(c.entries),
		MaxSize:  c.maxSize,
		Hits:     c.hits,
		Misses:   c.misses,
		HitRatio: ratio,
	}
}

// Purge drops every entry.
func (c *SeriesCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

func (c *SeriesCache) evictOldest() {
	var oldestKey string
	var oldest time.Time
	for key, entry := range c.entries {
		if oldestKey == "" || entry.cachedAt.Before(oldest) {
			oldestKey = key
			oldest = entry.cachedAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}
