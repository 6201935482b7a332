package cache

import (
	"context"
	"sync"
	"time"

	"github.com/harvestpay/backend/internal/domain/pricing"
)

// InMemoryScheduleCache implements pricing.ScheduleCache with a local map.
// Used in tests and single-instance deployments where Redis is not worth
// running. Entries expire on read; a calculation run touches each key many
// times in quick succession, so no background sweeper is needed.
type InMemoryScheduleCache struct {
	mu      sync.RWMutex
	entries map[string]scheduleEntry
	ttl     time.Duration
}

type scheduleEntry struct {
	schedule  *pricing.PriceSchedule
	expiresAt time.Time
}

// NewInMemoryScheduleCache creates an in-memory schedule cache
func NewInMemoryScheduleCache(ttl time.Duration) *InMemoryScheduleCache {
	return &InMemoryScheduleCache{
		entries: make(map[string]scheduleEntry),
		ttl:     ttl,
	}
}

// Get returns the cached schedule row for the key, if present and fresh
func (c *InMemoryScheduleCache) Get(_ context.Context, key pricing.ResolveKey) (*pricing.PriceSchedule, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key.String()]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key.String())
		c.mu.Unlock()
		return nil, false
	}
	return entry.schedule, true
}

// Set stores a resolved schedule row under the key
func (c *InMemoryScheduleCache) Set(_ context.Context, key pricing.ResolveKey, schedule *pricing.PriceSchedule) {
	c.mu.Lock()
	c.entries[key.String()] = scheduleEntry{
		schedule:  schedule,
		expiresAt: time.Now().Add(c.ttl),
	}
	c.mu.Unlock()
}

// Len reports the live entry count, for tests
func (c *InMemoryScheduleCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Ensure InMemoryScheduleCache implements ScheduleCache
var _ pricing.ScheduleCache = (*InMemoryScheduleCache)(nil)
