package library

import (
	"sync"
	"time"
)

// defaultCacheTTL mirrors stats_service.py's _stats_cache_ttl = 30
// (seconds).
const defaultCacheTTL = 30 * time.Second

// StatsCache is an in-memory, short-TTL cache keyed by an arbitrary
// string (a user ID, or "" for the global library), ported from
// stats_service.py's module-level _stats_cache dict +
// get_cached_stats/set_cached_stats/invalidate_cache. The Python
// version checks staleness against time.Now() on every read; here a
// sync.Mutex stands in for Python's single-threaded request handling.
type StatsCache struct {
	mu  sync.Mutex
	ttl time.Duration
	now func() time.Time

	entries map[string]cacheEntry
}

type cacheEntry struct {
	stats     Stats
	advanced  *AdvancedStats
	expiresAt time.Time
}

// NewStatsCache builds a cache with the default 30s TTL.
func NewStatsCache() *StatsCache {
	return &StatsCache{
		ttl:     defaultCacheTTL,
		now:     time.Now,
		entries: map[string]cacheEntry{},
	}
}

// Get returns the cached Stats for key if present and not expired,
// mirroring get_cached_stats's own-expiry check (a lazily-expiring
// cache, not a background sweep).
func (c *StatsCache) Get(key string) (Stats, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return Stats{}, false
	}
	if c.now().After(entry.expiresAt) {
		delete(c.entries, key)
		return Stats{}, false
	}
	return entry.stats, true
}

// GetAdvanced is Get's counterpart for AdvancedStats, cached under the
// same key (stats_service.py keys library stats and advanced stats
// under distinct cache_key strings built by the caller, e.g.
// "library_stats:<user>" vs "advanced_stats:<user>"; callers here are
// expected to do the same by using distinct keys per kind).
func (c *StatsCache) GetAdvanced(key string) (AdvancedStats, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok || entry.advanced == nil {
		return AdvancedStats{}, false
	}
	if c.now().After(entry.expiresAt) {
		delete(c.entries, key)
		return AdvancedStats{}, false
	}
	return *entry.advanced, true
}

// Set stores Stats under key with a fresh TTL (set_cached_stats).
func (c *StatsCache) Set(key string, stats Stats) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{stats: stats, expiresAt: c.now().Add(c.ttl)}
}

// SetAdvanced stores AdvancedStats under key with a fresh TTL.
func (c *StatsCache) SetAdvanced(key string, advanced AdvancedStats) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry := c.entries[key]
	entry.advanced = &advanced
	entry.expiresAt = c.now().Add(c.ttl)
	c.entries[key] = entry
}

// Invalidate drops one key, or the entire cache when key is "".
// (invalidate_cache(cache_key=None) clears everything.)
func (c *StatsCache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if key == "" {
		c.entries = map[string]cacheEntry{}
		return
	}
	delete(c.entries, key)
}
