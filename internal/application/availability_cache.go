package application

import (
	"sync"
	"time"

	"github.com/example/planning-service/internal/interval"
)

// availabilityCache keeps recent availability checks so repeated lookups for
// the same user and period skip the ledger while that user's windows stay
// unchanged. Mutations of a user's windows drop that user's entries and bump
// the user's generation, so a check resolved before the mutation is never stored.
type availabilityCache struct {
	mu          sync.RWMutex
	now         func() time.Time
	ttl         time.Duration
	maxEntries  int
	entries     map[availabilityCacheKey]availabilityCacheEntry
	generations map[string]uint64
}

type availabilityCacheKey struct {
	userID string
	start  time.Time
	end    time.Time
}

type availabilityCacheEntry struct {
	check     AvailabilityCheck
	expiresAt time.Time
}

func newAvailabilityCache(ttl time.Duration, maxEntries int, now func() time.Time) *availabilityCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if maxEntries <= 0 {
		maxEntries = 1024
	}
	if now == nil {
		now = time.Now
	}
	return &availabilityCache{
		now:         now,
		ttl:         ttl,
		maxEntries:  maxEntries,
		entries:     make(map[availabilityCacheKey]availabilityCacheEntry),
		generations: make(map[string]uint64),
	}
}

func cacheKey(userID string, period interval.Interval) availabilityCacheKey {
	return availabilityCacheKey{userID: userID, start: period.Start.UTC(), end: period.End.UTC()}
}

func (c *availabilityCache) Get(userID string, period interval.Interval) (AvailabilityCheck, bool) {
	if c == nil {
		return AvailabilityCheck{}, false
	}
	key := cacheKey(userID, period)

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return AvailabilityCheck{}, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return AvailabilityCheck{}, false
	}
	return cloneCheck(entry.check), true
}

// Generation reports the invalidation counter of userID. Capture it before
// reading the ledger and hand it to Store.
func (c *availabilityCache) Generation(userID string) uint64 {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generations[userID]
}

// Store keeps check unless the user was invalidated after generation was read.
func (c *availabilityCache) Store(check AvailabilityCheck, generation uint64) {
	if c == nil {
		return
	}
	key := cacheKey(check.UserID, check.Period)
	expiry := c.now().Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generations[check.UserID] != generation {
		return
	}
	c.cleanupLocked()
	if len(c.entries) >= c.maxEntries {
		c.evictOneLocked()
	}
	c.entries[key] = availabilityCacheEntry{check: cloneCheck(check), expiresAt: expiry}
}

// InvalidateUser drops every entry of userID.
func (c *availabilityCache) InvalidateUser(userID string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.generations[userID]++
	for key := range c.entries {
		if key.userID == userID {
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()
}

func (c *availabilityCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *availabilityCache) cleanupLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *availabilityCache) evictOneLocked() {
	for key := range c.entries {
		delete(c.entries, key)
		return
	}
}

func cloneCheck(check AvailabilityCheck) AvailabilityCheck {
	if len(check.VetoedBy) > 0 {
		check.VetoedBy = append([]string(nil), check.VetoedBy...)
	}
	return check
}
