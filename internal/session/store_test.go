package session

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(ttl time.Duration) (*Store, *time.Time) {
	s := NewStore(ttl)
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	return s, &now
}

func TestGetOrCreateMintsUniqueIDs(t *testing.T) {
	s, _ := newTestStore(30 * time.Minute)

	a := s.GetOrCreate("")
	b := s.GetOrCreate("")
	require.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 2, s.Len())
}

func TestGetOrCreateHonorsLiveID(t *testing.T) {
	s, now := newTestStore(30 * time.Minute)

	created := s.GetOrCreate("")
	*now = now.Add(10 * time.Minute)

	got := s.GetOrCreate(created.ID)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, *now, got.LastActivity, "activity should refresh on hit")
}

func TestGetOrCreateIgnoresUnknownID(t *testing.T) {
	s, _ := newTestStore(30 * time.Minute)

	got := s.GetOrCreate("made-up-by-client")
	assert.NotEqual(t, "made-up-by-client", got.ID)
}

func TestGetOrCreateSweepsExpired(t *testing.T) {
	s, now := newTestStore(30 * time.Minute)

	old := s.GetOrCreate("")
	*now = now.Add(31 * time.Minute)

	got := s.GetOrCreate(old.ID)
	assert.NotEqual(t, old.ID, got.ID, "expired session must be unreachable by its old id")
	assert.Equal(t, 1, s.Len(), "sweep should remove the expired session")
}

func TestGetChecksExpiryOnHit(t *testing.T) {
	s, now := newTestStore(30 * time.Minute)

	sess := s.GetOrCreate("")
	*now = now.Add(31 * time.Minute)

	// No sweep has run, the entry is still in the map; Get must still
	// refuse it based on the timestamp.
	_, ok := s.Get(sess.ID)
	assert.False(t, ok)
}

func TestAppendTurnKeepsHistoryEvenAndBounded(t *testing.T) {
	s, _ := newTestStore(30 * time.Minute)
	sess := s.GetOrCreate("")

	for i := 0; i < 15; i++ {
		s.AppendTurn(sess.ID, fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
	}

	got, ok := s.Get(sess.ID)
	require.True(t, ok)
	assert.Len(t, got.Messages, MaxHistory)
	assert.Equal(t, 0, len(got.Messages)%2, "history must stay even after a completed turn")

	// Oldest trimmed first, insertion order preserved.
	assert.Equal(t, "q5", got.Messages[0].Content)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, "a14", got.Messages[len(got.Messages)-1].Content)
	assert.Equal(t, "assistant", got.Messages[len(got.Messages)-1].Role)
}

func TestAppendTurnOnMissingSessionIsNoop(t *testing.T) {
	s, _ := newTestStore(30 * time.Minute)
	s.AppendTurn("gone", "q", "a")
	assert.Equal(t, 0, s.Len())
}

func TestSnapshotsAreIsolated(t *testing.T) {
	s, _ := newTestStore(30 * time.Minute)
	sess := s.GetOrCreate("")
	s.AppendTurn(sess.ID, "q", "a")

	got, _ := s.Get(sess.ID)
	got.Messages[0].Content = "mutated"
	got.Context["k"] = "v"

	fresh, _ := s.Get(sess.ID)
	assert.Equal(t, "q", fresh.Messages[0].Content)
	assert.Empty(t, fresh.Context)
}

func TestSetContextMerges(t *testing.T) {
	s, _ := newTestStore(30 * time.Minute)
	sess := s.GetOrCreate("")

	s.SetContext(sess.ID, map[string]string{"page": "/companies"})
	s.SetContext(sess.ID, map[string]string{"userType": "buyer"})

	got, _ := s.Get(sess.ID)
	assert.Equal(t, "/companies", got.Context["page"])
	assert.Equal(t, "buyer", got.Context["userType"])
}
