package webhook

import (
	"sync"
	"time"
)

// EventCache remembers recently seen event IDs so redelivered webhooks are
// acknowledged without reprocessing. Entries expire after TTL and the cache
// holds at most maxEntries, evicting the oldest seen when full. Memory stays
// bounded no matter how long the process runs.
type EventCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	max     int
	now     func() time.Time
	entries map[string]time.Time
	order   []string
}

// NewEventCache builds a cache with the given TTL and capacity. Non-positive
// arguments fall back to 30 minutes and 10000 entries.
func NewEventCache(ttl time.Duration, maxEntries int) *EventCache {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	return &EventCache{
		ttl:     ttl,
		max:     maxEntries,
		now:     time.Now,
		entries: make(map[string]time.Time),
	}
}

// Seen records the event ID and reports whether it was already present and
// unexpired. The check and the insert are one atomic step, so concurrent
// deliveries of the same event elect exactly one processor.
func (c *EventCache) Seen(eventID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.evictLocked(now)

	if at, ok := c.entries[eventID]; ok && now.Sub(at) < c.ttl {
		return true
	}
	c.entries[eventID] = now
	c.order = append(c.order, eventID)
	return false
}

// Len returns the number of live entries.
func (c *EventCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evictLocked(c.now())
	return len(c.entries)
}

// evictLocked drops expired entries and then trims from the oldest end
// until the cache is within capacity. Callers hold mu.
func (c *EventCache) evictLocked(now time.Time) {
	kept := c.order[:0]
	for _, id := range c.order {
		at, ok := c.entries[id]
		if !ok {
			continue
		}
		if now.Sub(at) >= c.ttl {
			delete(c.entries, id)
			continue
		}
		kept = append(kept, id)
	}
	c.order = kept

	for len(c.entries) > c.max && len(c.order) > 0 {
		delete(c.entries, c.order[0])
		c.order = c.order[1:]
	}
}
