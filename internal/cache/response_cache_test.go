package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsubouchi/vn-offshore-apiserver/internal/domain/entity"
)

func newTestCache(ttl time.Duration, capacity int) (*ResponseCache, *time.Time) {
	c := New(ttl, capacity)
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	return c, &now
}

func TestGetReturnsFreshEntry(t *testing.T) {
	c, now := newTestCache(5*time.Minute, 100)

	c.Set("k", "hello")
	*now = now.Add(4 * time.Minute)

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "hello", got)
}

func TestGetExpiredEntryIsDeleted(t *testing.T) {
	c, now := newTestCache(5*time.Minute, 100)

	c.Set("k", "hello")
	*now = now.Add(5 * time.Minute)

	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len(), "stale entry should be removed on failed lookup")
}

func TestSetEvictsOldestInserted(t *testing.T) {
	c, _ := newTestCache(5*time.Minute, 100)

	for i := 0; i < 100; i++ {
		c.Set(fmt.Sprintf("key-%d", i), "resp")
	}
	require.Equal(t, 100, c.Len())

	// Reading the oldest entry must not protect it: eviction is
	// insertion-order, not LRU.
	_, ok := c.Get("key-0")
	require.True(t, ok)

	c.Set("key-100", "resp")
	assert.Equal(t, 100, c.Len())

	_, ok = c.Get("key-0")
	assert.False(t, ok, "first-inserted entry should have been evicted")
	_, ok = c.Get("key-1")
	assert.True(t, ok)
	_, ok = c.Get("key-100")
	assert.True(t, ok)
}

func TestSetOverwriteKeepsInsertionPosition(t *testing.T) {
	c, _ := newTestCache(5*time.Minute, 2)

	c.Set("a", "1")
	c.Set("b", "2")
	c.Set("a", "1-updated") // overwrite, still oldest-inserted

	c.Set("c", "3") // at capacity: evicts "a", not "b"

	_, ok := c.Get("a")
	assert.False(t, ok)
	got, ok := c.Get("b")
	require.True(t, ok)
	assert.Equal(t, "2", got)
}

func TestKeyIsContextSensitive(t *testing.T) {
	base := Key("message", nil)
	withCtx := Key("message", &entity.ChatContext{CompanyID: "c-1"})
	assert.NotEqual(t, base, withCtx)

	// Stable: identical context marshals to the identical key.
	again := Key("message", &entity.ChatContext{CompanyID: "c-1"})
	assert.Equal(t, withCtx, again)

	// No normalization: case and whitespace are significant.
	assert.NotEqual(t, Key("Message", nil), Key("message", nil))
	assert.NotEqual(t, Key("message ", nil), Key("message", nil))
}

func TestSweepReclaimsExpiredEntries(t *testing.T) {
	c, now := newTestCache(5*time.Minute, 100)

	c.Set("old", "1")
	*now = now.Add(3 * time.Minute)
	c.Set("new", "2")

	*now = now.Add(2 * time.Minute) // "old" is 5m stale, "new" only 2m

	assert.Equal(t, 1, c.Sweep())
	assert.Equal(t, 1, c.Len())

	got, ok := c.Get("new")
	require.True(t, ok)
	assert.Equal(t, "2", got)
}
