package ratelimit

import (
	"math"
	"sync"
	"time"
)

// Defaults for the assistant endpoints.
const (
	DefaultCeiling = 10
	DefaultWindow  = 60 * time.Second
)

// Result is the outcome of a single admission check.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// RetryAfterSeconds returns the Retry-After hint for a rejected request,
// rounded up to whole seconds.
func (r Result) RetryAfterSeconds(now time.Time) int {
	secs := int(math.Ceil(r.ResetAt.Sub(now).Seconds()))
	if secs < 0 {
		return 0
	}
	return secs
}

type entry struct {
	count   int
	resetAt time.Time
}

// Limiter is a fixed-window request limiter keyed by an opaque client key.
// Stale keys are overwritten on their next window; between windows the map
// grows with the key space of active-ever clients unless Sweep runs.
type Limiter struct {
	mu      sync.Mutex
	entries map[string]*entry
	ceiling int
	window  time.Duration

	now func() time.Time // injectable for tests
}

// NewLimiter creates a limiter. Non-positive arguments fall back to the
// defaults.
func NewLimiter(ceiling int, window time.Duration) *Limiter {
	if ceiling <= 0 {
		ceiling = DefaultCeiling
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Limiter{
		entries: make(map[string]*entry),
		ceiling: ceiling,
		window:  window,
		now:     time.Now,
	}
}

// Check admits or rejects one request for key. The first request in a
// window (or the first past resetAt) reinitializes the entry with count 1.
// Once the ceiling is reached the count is not incremented further.
func (l *Limiter) Check(key string) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	e, ok := l.entries[key]
	if !ok || now.After(e.resetAt) {
		e = &entry{count: 1, resetAt: now.Add(l.window)}
		l.entries[key] = e
		return Result{Allowed: true, Remaining: l.ceiling - 1, ResetAt: e.resetAt}
	}

	if e.count >= l.ceiling {
		return Result{Allowed: false, Remaining: 0, ResetAt: e.resetAt}
	}

	e.count++
	return Result{Allowed: true, Remaining: l.ceiling - e.count, ResetAt: e.resetAt}
}

// Sweep drops entries whose window has fully elapsed and returns how many
// were removed. Admission correctness never depends on sweeping; this only
// bounds memory for keys that stopped sending traffic.
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for key, e := range l.entries {
		if now.After(e.resetAt) {
			delete(l.entries, key)
			removed++
		}
	}
	return removed
}

// Ceiling returns the configured request ceiling.
func (l *Limiter) Ceiling() int {
	return l.ceiling
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
