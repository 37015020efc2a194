package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsubouchi/vn-offshore-apiserver/internal/domain"
	"github.com/tsubouchi/vn-offshore-apiserver/internal/domain/entity"
	"github.com/tsubouchi/vn-offshore-apiserver/internal/session"
)

func newConciergeForTest(gen *fakeGenerator, hist *recordingHistory) (domain.ConciergeUsecase, *session.Store) {
	store := session.NewStore(30 * time.Minute)
	uc := NewConciergeUsecase(store, gen, hist, 15*time.Second, testLogger())
	return uc, store
}

func TestConverseCreatesSessionAndDetectsIntent(t *testing.T) {
	gen := &fakeGenerator{response: "ようこそ！"}
	hist := newRecordingHistory()
	uc, store := newConciergeForTest(gen, hist)

	res, err := uc.Converse(context.Background(), &domain.ConciergeRequest{
		Message:  "こんにちは",
		Language: "ja",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, res.SessionID)
	assert.Equal(t, entity.IntentGreeting, res.Intent)
	assert.Equal(t, "ようこそ！", res.Response)
	assert.Len(t, res.QuickReplies, 3)
	hist.wait(t)

	sess, ok := store.Get(res.SessionID)
	require.True(t, ok)
	require.Len(t, sess.Messages, 2)
	assert.Equal(t, "user", sess.Messages[0].Role)
	assert.Equal(t, "こんにちは", sess.Messages[0].Content)
	assert.Equal(t, "assistant", sess.Messages[1].Role)
}

func TestConverseReusesLiveSession(t *testing.T) {
	gen := &fakeGenerator{response: "r"}
	uc, _ := newConciergeForTest(gen, newRecordingHistory())

	first, err := uc.Converse(context.Background(), &domain.ConciergeRequest{Message: "hello", Language: "en"})
	require.NoError(t, err)

	second, err := uc.Converse(context.Background(), &domain.ConciergeRequest{
		Message:   "and pricing?",
		Language:  "en",
		SessionID: first.SessionID,
	})
	require.NoError(t, err)
	assert.Equal(t, first.SessionID, second.SessionID)
}

func TestConverseMintsNewIDForUnknownSession(t *testing.T) {
	gen := &fakeGenerator{response: "r"}
	uc, _ := newConciergeForTest(gen, newRecordingHistory())

	res, err := uc.Converse(context.Background(), &domain.ConciergeRequest{
		Message:   "hi",
		Language:  "en",
		SessionID: "forged-session-id",
	})
	require.NoError(t, err)
	assert.NotEqual(t, "forged-session-id", res.SessionID)
}

func TestConverseTimeoutUsesLocalizedFallback(t *testing.T) {
	for _, lang := range []string{"ja", "en", "vi"} {
		t.Run(lang, func(t *testing.T) {
			gen := &fakeGenerator{err: fmt.Errorf("aborted: %w", context.DeadlineExceeded)}
			hist := newRecordingHistory()
			uc, store := newConciergeForTest(gen, hist)

			res, err := uc.Converse(context.Background(), &domain.ConciergeRequest{
				Message:  "料金について",
				Language: lang,
			})
			require.NoError(t, err, "timeout must not surface as an error on the concierge")
			assert.Equal(t, FallbackResponse(lang), res.Response)
			assert.Len(t, res.QuickReplies, 3)

			// The fallback turn still lands in the session.
			sess, ok := store.Get(res.SessionID)
			require.True(t, ok)
			assert.Len(t, sess.Messages, 2)
			hist.wait(t)
		})
	}
}

func TestConverseNonTimeoutFailurePropagates(t *testing.T) {
	gen := &fakeGenerator{err: fmt.Errorf("generation service quota exhausted (HTTP 429)")}
	uc, _ := newConciergeForTest(gen, newRecordingHistory())

	_, err := uc.Converse(context.Background(), &domain.ConciergeRequest{Message: "hi", Language: "en"})
	require.Error(t, err)
}

func TestConverseRemembersMetadata(t *testing.T) {
	gen := &fakeGenerator{response: "r"}
	uc, store := newConciergeForTest(gen, newRecordingHistory())

	res, err := uc.Converse(context.Background(), &domain.ConciergeRequest{
		Message:  "hi",
		Language: "en",
		Metadata: &entity.ClientMetadata{Page: "/companies", UserType: "buyer"},
	})
	require.NoError(t, err)

	sess, ok := store.Get(res.SessionID)
	require.True(t, ok)
	assert.Equal(t, "/companies", sess.Context["page"])
	assert.Equal(t, "buyer", sess.Context["userType"])
}

func TestConversePromptCarriesHistory(t *testing.T) {
	gen := &fakeGenerator{response: "r"}
	uc, _ := newConciergeForTest(gen, newRecordingHistory())

	first, err := uc.Converse(context.Background(), &domain.ConciergeRequest{Message: "first question", Language: "en"})
	require.NoError(t, err)
	_, err = uc.Converse(context.Background(), &domain.ConciergeRequest{
		Message:   "second question",
		Language:  "en",
		SessionID: first.SessionID,
	})
	require.NoError(t, err)

	gen.mu.Lock()
	defer gen.mu.Unlock()
	require.Len(t, gen.prompts, 2)
	assert.NotContains(t, gen.prompts[0], "Previous conversation:")
	assert.Contains(t, gen.prompts[1], "Previous conversation:")
	assert.Contains(t, gen.prompts[1], "User: first question")
}

func TestSessionSnapshotLookup(t *testing.T) {
	gen := &fakeGenerator{response: "r"}
	uc, _ := newConciergeForTest(gen, newRecordingHistory())

	res, err := uc.Converse(context.Background(), &domain.ConciergeRequest{Message: "hi", Language: "en"})
	require.NoError(t, err)

	sess, ok := uc.Session(res.SessionID)
	require.True(t, ok)
	assert.Equal(t, res.SessionID, sess.ID)

	_, ok = uc.Session("")
	assert.False(t, ok)
	_, ok = uc.Session("unknown")
	assert.False(t, ok)
}

func TestFallbackResponseDefaultsToJapanese(t *testing.T) {
	assert.Equal(t, fallbackResponses["ja"], FallbackResponse("de"))
	assert.Equal(t, fallbackResponses["vi"], FallbackResponse("vi"))
}
