package recurrence

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/cyp0633/libcalrecur/caldate"
	"github.com/cyp0633/libcalrecur/event"
)

// cacheEntry represents a cached range expansion
type cacheEntry struct {
	result     Expansion
	expiresAt  time.Time
	accessedAt time.Time
}

// RangeCache caches range expansions keyed by the events and the range.
type RangeCache struct {
	entries         map[string]*cacheEntry
	mutex           sync.RWMutex
	ttl             time.Duration
	maxEntries      int
	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	closeOnce       sync.Once

	hits   int64
	misses int64
}

// CacheConfig holds configuration for the range cache
type CacheConfig struct {
	TTL             time.Duration `yaml:"ttl"`              // How long entries stay valid
	MaxEntries      int           `yaml:"max_entries"`      // Maximum number of entries before cleanup
	CleanupInterval time.Duration `yaml:"cleanup_interval"` // How often to run cleanup
}

// DefaultCacheConfig provides sensible defaults for range caching
var DefaultCacheConfig = CacheConfig{
	TTL:             15 * time.Minute, // Cache results for 15 minutes
	MaxEntries:      1000,             // Keep up to 1000 cached results
	CleanupInterval: 5 * time.Minute,  // Cleanup every 5 minutes
}

// NewRangeCache creates a new range cache with the given configuration.
// Zero settings fall back to DefaultCacheConfig. The cache runs a cleanup
// goroutine until Close is called.
func NewRangeCache(config CacheConfig) *RangeCache {
	if config.TTL <= 0 {
		config.TTL = DefaultCacheConfig.TTL
	}
	if config.MaxEntries <= 0 {
		config.MaxEntries = DefaultCacheConfig.MaxEntries
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = DefaultCacheConfig.CleanupInterval
	}

	cache := &RangeCache{
		entries:         make(map[string]*cacheEntry),
		ttl:             config.TTL,
		maxEntries:      config.MaxEntries,
		cleanupInterval: config.CleanupInterval,
		stopCleanup:     make(chan struct{}),
	}

	go cache.cleanupLoop()

	return cache
}

// cacheKey hashes the wire form of the events together with the range.
// Events that cannot be encoded are not cacheable.
func cacheKey(events []event.Event, start, end caldate.Date) (string, bool) {
	hasher := sha256.New()
	hasher.Write([]byte(start.String()))
	hasher.Write([]byte(end.String()))

	enc := json.NewEncoder(hasher)
	for _, ev := range events {
		if err := enc.Encode(ev); err != nil {
			return "", false
		}
	}

	return fmt.Sprintf("%x", hasher.Sum(nil)), true
}

// Get retrieves a cached expansion if it exists and hasn't expired. The
// returned value is a copy the caller may modify.
func (c *RangeCache) Get(events []event.Event, start, end caldate.Date) (Expansion, bool) {
	key, ok := cacheKey(events, start, end)
	if !ok {
		return Expansion{}, false
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, exists := c.entries[key]
	if !exists {
		c.misses++
		return Expansion{}, false
	}

	now := time.Now()
	if now.After(entry.expiresAt) {
		delete(c.entries, key)
		c.misses++
		return Expansion{}, false
	}

	entry.accessedAt = now
	c.hits++
	return entry.result.clone(), true
}

// Set stores a copy of x in the cache
func (c *RangeCache) Set(events []event.Event, start, end caldate.Date, x Expansion) {
	key, ok := cacheKey(events, start, end)
	if !ok {
		return
	}
	now := time.Now()

	entry := &cacheEntry{
		result:     x.clone(),
		expiresAt:  now.Add(c.ttl),
		accessedAt: now,
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries[key] = entry

	if len(c.entries) > c.maxEntries {
		c.cleanup()
	}
}

// cleanup removes expired entries and oldest entries if over limit.
// The caller must hold the write lock.
func (c *RangeCache) cleanup() {
	now := time.Now()

	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}

	if len(c.entries) <= c.maxEntries {
		return
	}

	type keyAccess struct {
		key        string
		accessedAt time.Time
	}

	keyAccessList := make([]keyAccess, 0, len(c.entries))
	for key, entry := range c.entries {
		keyAccessList = append(keyAccessList, keyAccess{key: key, accessedAt: entry.accessedAt})
	}

	// Oldest first
	slices.SortFunc(keyAccessList, func(a, b keyAccess) int {
		return a.accessedAt.Compare(b.accessedAt)
	})

	entriesToRemove := len(c.entries) - c.maxEntries
	for i := 0; i < entriesToRemove; i++ {
		delete(c.entries, keyAccessList[i].key)
	}
}

// cleanupLoop runs periodic cleanup
func (c *RangeCache) cleanupLoop() {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mutex.Lock()
			c.cleanup()
			c.mutex.Unlock()
		case <-c.stopCleanup:
			return
		}
	}
}

// Close stops the cleanup goroutine and clears the cache. It is safe to
// call more than once.
func (c *RangeCache) Close() {
	c.closeOnce.Do(func() {
		close(c.stopCleanup)
	})
	c.mutex.Lock()
	c.entries = make(map[string]*cacheEntry)
	c.mutex.Unlock()
}

// Stats returns cache statistics
func (c *RangeCache) Stats() CacheStats {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entryCount := len(c.entries)
	expiredCount := 0
	now := time.Now()

	for _, entry := range c.entries {
		if now.After(entry.expiresAt) {
			expiredCount++
		}
	}

	return CacheStats{
		TotalEntries:   entryCount,
		ExpiredEntries: expiredCount,
		ActiveEntries:  entryCount - expiredCount,
		Hits:           c.hits,
		Misses:         c.misses,
	}
}

// CacheStats provides information about cache performance
type CacheStats struct {
	TotalEntries   int
	ExpiredEntries int
	ActiveEntries  int
	Hits           int64
	Misses         int64
}
