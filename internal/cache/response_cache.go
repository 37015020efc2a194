package cache

import (
	"sync"
	"time"

	"github.com/bytedance/sonic"
)

// Defaults for the assistant response cache.
const (
	DefaultTTL      = 5 * time.Minute
	DefaultCapacity = 100
)

type entry struct {
	response string
	storedAt time.Time
}

// ResponseCache memoizes assistant replies keyed by (message, context) for
// a bounded TTL. Eviction is insertion-order: when the cache is full, the
// oldest-inserted surviving entry is dropped, regardless of how recently it
// was read. This is deliberate; tests pin the policy.
type ResponseCache struct {
	mu       sync.Mutex
	entries  map[string]*entry
	order    []string // insertion order of live keys
	ttl      time.Duration
	capacity int

	now func() time.Time // injectable for tests
}

// New creates a response cache. Non-positive arguments fall back to the
// defaults.
func New(ttl time.Duration, capacity int) *ResponseCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &ResponseCache{
		entries:  make(map[string]*entry),
		ttl:      ttl,
		capacity: capacity,
		now:      time.Now,
	}
}

// Key derives the cache key from the raw message text and the stable JSON
// serialization of the optional context. No normalization is applied: two
// semantically identical messages with different literal text are distinct
// keys.
func Key(message string, context any) string {
	if context == nil {
		return message
	}
	b, err := sonic.Marshal(context)
	if err != nil {
		return message
	}
	return message + string(b)
}

// Get returns the cached response for key if present and fresh. A lookup
// that fails because the entry expired deletes the stale entry.
func (c *ResponseCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return "", false
	}
	if c.now().Sub(e.storedAt) >= c.ttl {
		c.remove(key)
		return "", false
	}
	return e.response, true
}

// Set stores a response under key. At capacity the first entry in
// insertion order is evicted before inserting. Overwriting an
// existing key keeps its original insertion position.
func (c *ResponseCache) Set(key, response string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.response = response
		e.storedAt = c.now()
		return
	}

	if len(c.entries) >= c.capacity && len(c.order) > 0 {
		c.remove(c.order[0])
	}

	c.entries[key] = &entry{response: response, storedAt: c.now()}
	c.order = append(c.order, key)
}

// Sweep drops entries past their TTL and returns how many were removed.
// Expired entries already read as misses; sweeping only reclaims the
// memory of keys nobody asks for anymore.
func (c *ResponseCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, e := range c.entries {
		if now.Sub(e.storedAt) >= c.ttl {
			c.remove(key)
			removed++
		}
	}
	return removed
}

// Len returns the number of live entries.
func (c *ResponseCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// remove deletes key from the entry map and the insertion-order list.
// Caller must hold the lock.
func (c *ResponseCache) remove(key string) {
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}
