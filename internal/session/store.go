package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tsubouchi/vn-offshore-apiserver/internal/domain/entity"
)

// DefaultTTL is how long a session survives without activity.
const DefaultTTL = 30 * time.Minute

// MaxHistory bounds the per-session message history. Trimming drops the
// oldest entries first and preserves insertion order.
const MaxHistory = 20

// Store holds concierge sessions in memory. Expired sessions are reaped
// lazily: every GetOrCreate sweeps the whole store before resolving. The
// sweep is O(n) per request, acceptable while the store stays process-local
// and small.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*entity.ChatSession
	ttl      time.Duration

	now func() time.Time // injectable for tests
}

// NewStore creates a session store. A non-positive ttl falls back to
// DefaultTTL.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		sessions: make(map[string]*entity.ChatSession),
		ttl:      ttl,
		now:      time.Now,
	}
}

// TTL returns the configured session lifetime.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// GetOrCreate sweeps expired sessions, then returns the live session for
// id with its activity refreshed, or a freshly minted session when id is
// empty or unknown. A caller-supplied id never selects an identity without
// the existence check.
func (s *Store) GetOrCreate(id string) entity.ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweep(now)

	if id != "" {
		if sess, ok := s.sessions[id]; ok {
			sess.LastActivity = now
			return snapshot(sess)
		}
	}

	sess := &entity.ChatSession{
		ID:           uuid.New().String(),
		Messages:     []entity.Message{},
		Context:      map[string]string{},
		CreatedAt:    now,
		LastActivity: now,
	}
	s.sessions[sess.ID] = sess
	return snapshot(sess)
}

// Get returns a snapshot of the session for id without refreshing it.
// Expiry is checked on hit as well: map membership alone is not proof of
// liveness between sweeps.
func (s *Store) Get(id string) (entity.ChatSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return entity.ChatSession{}, false
	}
	if s.now().Sub(sess.LastActivity) > s.ttl {
		delete(s.sessions, id)
		return entity.ChatSession{}, false
	}
	return snapshot(sess), true
}

// AppendTurn appends the completed user/assistant pair to the session and
// trims history to the newest MaxHistory entries. A missing session is a
// no-op; it simply expired between resolution and update.
func (s *Store) AppendTurn(id, userContent, assistantContent string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return
	}

	now := s.now()
	sess.Messages = append(sess.Messages,
		entity.Message{Role: "user", Content: userContent, Timestamp: now},
		entity.Message{Role: "assistant", Content: assistantContent, Timestamp: now},
	)
	if len(sess.Messages) > MaxHistory {
		sess.Messages = sess.Messages[len(sess.Messages)-MaxHistory:]
	}
	sess.LastActivity = now
}

// SetContext merges key/value pairs into the session context.
func (s *Store) SetContext(id string, kv map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return
	}
	for k, v := range kv {
		sess.Context[k] = v
	}
}

// Len returns the number of stored sessions, including any not yet swept.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// sweep removes every session idle past the ttl. Caller must hold the lock.
func (s *Store) sweep(now time.Time) {
	for id, sess := range s.sessions {
		if now.Sub(sess.LastActivity) > s.ttl {
			delete(s.sessions, id)
		}
	}
}

// snapshot copies a session so callers never share the store's slices and
// maps across goroutines.
func snapshot(sess *entity.ChatSession) entity.ChatSession {
	out := *sess
	out.Messages = append([]entity.Message(nil), sess.Messages...)
	out.Context = make(map[string]string, len(sess.Context))
	for k, v := range sess.Context {
		out.Context[k] = v
	}
	return out
}
