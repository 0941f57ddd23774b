package memory

import (
	"sync"
	"time"

	"github.com/ABM-v3/AliExpress-Best-Price/internal/domains/deals/ports"
)

var _ ports.Cache[string] = (*ResponseCache[string])(nil)

// DefaultMaxEntries bounds a cache when no explicit limit is given.
const DefaultMaxEntries = 10000

// Observer receives hit/miss notifications, e.g. for metrics.
type Observer func(cache string, hit bool)

type cacheEntry[V any] struct {
	value     V
	expiresAt time.Time
}

// ResponseCache is an in-process TTL memo. Expiry is lazy on read; Sweep
// removes expired entries and Set evicts the soonest-expiring entry when the
// cache is full.
type ResponseCache[V any] struct {
	name       string
	mu         sync.RWMutex
	entries    map[string]cacheEntry[V]
	maxEntries int
	now        func() time.Time
	observe    Observer
}

// NewResponseCache constructs an empty cache. maxEntries <= 0 uses DefaultMaxEntries.
func NewResponseCache[V any](name string, maxEntries int) *ResponseCache[V] {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &ResponseCache[V]{
		name:       name,
		entries:    map[string]cacheEntry[V]{},
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// WithClock overrides the time source for deterministic testing.
func (c *ResponseCache[V]) WithClock(now func() time.Time) {
	if now != nil {
		c.now = now
	}
}

// WithObserver registers a hit/miss callback.
func (c *ResponseCache[V]) WithObserver(observe Observer) {
	c.observe = observe
}

// Name identifies the cache in logs and metrics.
func (c *ResponseCache[V]) Name() string {
	return c.name
}

// Get returns the live value for key.
func (c *ResponseCache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && !c.now().Before(entry.expiresAt) {
		ok = false
	}
	if c.observe != nil {
		c.observe(c.name, ok)
	}
	if !ok {
		var zero V
		return zero, false
	}
	return entry.value, true
}

// Set stores value for ttl, overwriting any previous entry.
func (c *ResponseCache[V]) Set(key string, value V, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.sweepLocked(now)
		if len(c.entries) >= c.maxEntries {
			c.evictSoonestLocked()
		}
	}
	c.entries[key] = cacheEntry[V]{value: value, expiresAt: now.Add(ttl)}
}

// Sweep drops expired entries and returns how many were removed.
func (c *ResponseCache[V]) Sweep() int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sweepLocked(now)
}

// Len returns the number of stored entries, expired or not.
func (c *ResponseCache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *ResponseCache[V]) sweepLocked(now time.Time) int {
	removed := 0
	for key, entry := range c.entries {
		if !now.Before(entry.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

func (c *ResponseCache[V]) evictSoonestLocked() {
	var (
		victim  string
		soonest time.Time
		found   bool
	)
	for key, entry := range c.entries {
		if !found || entry.expiresAt.Before(soonest) {
			victim, soonest, found = key, entry.expiresAt, true
		}
	}
	if found {
		delete(c.entries, victim)
	}
}
