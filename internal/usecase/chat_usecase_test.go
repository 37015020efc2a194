package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsubouchi/vn-offshore-apiserver/internal/cache"
	"github.com/tsubouchi/vn-offshore-apiserver/internal/domain"
	"github.com/tsubouchi/vn-offshore-apiserver/internal/domain/entity"
)

// fakeGenerator scripts the generation outcome per call.
type fakeGenerator struct {
	mu       sync.Mutex
	response string
	err      error
	calls    int
	prompts  []string
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	return g.response, nil
}

// recordingHistory captures fire-and-forget writes.
type recordingHistory struct {
	mu    sync.Mutex
	turns []string
	err   error
	done  chan struct{}
}

func newRecordingHistory() *recordingHistory {
	return &recordingHistory{done: make(chan struct{}, 16)}
}

func (h *recordingHistory) AppendTurn(ctx context.Context, conversationID string, user, assistant entity.Message) error {
	h.mu.Lock()
	h.turns = append(h.turns, conversationID+"|"+user.Content+"|"+assistant.Content)
	err := h.err
	h.mu.Unlock()
	h.done <- struct{}{}
	return err
}

func (h *recordingHistory) wait(t *testing.T) {
	t.Helper()
	select {
	case <-h.done:
	case <-time.After(2 * time.Second):
		t.Fatal("history write did not happen")
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(testWriter{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

type testWriter struct{}

func (testWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestChatCachesNonStreamingResponses(t *testing.T) {
	gen := &fakeGenerator{response: "generated answer"}
	hist := newRecordingHistory()
	uc := NewChatUsecase(gen, cache.New(5*time.Minute, 100), hist, 30*time.Second, testLogger())

	req := &domain.ChatRequest{Message: "ベトナムオフショア開発について教えてください"}

	first, err := uc.Chat(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, "generated answer", first.Response)
	hist.wait(t)

	second, err := uc.Chat(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Response, second.Response)
	assert.Equal(t, 1, gen.calls, "cache hit must not invoke the generator")
}

func TestChatContextChangesCacheKey(t *testing.T) {
	gen := &fakeGenerator{response: "answer"}
	uc := NewChatUsecase(gen, cache.New(5*time.Minute, 100), newRecordingHistory(), 30*time.Second, testLogger())

	_, err := uc.Chat(context.Background(), &domain.ChatRequest{Message: "m"})
	require.NoError(t, err)
	_, err = uc.Chat(context.Background(), &domain.ChatRequest{
		Message: "m",
		Context: &entity.ChatContext{CompanyID: "c-1"},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, gen.calls)
}

func TestChatStreamingBypassesCache(t *testing.T) {
	gen := &fakeGenerator{response: "streamed answer"}
	respCache := cache.New(5*time.Minute, 100)
	uc := NewChatUsecase(gen, respCache, newRecordingHistory(), 30*time.Second, testLogger())

	_, err := uc.Chat(context.Background(), &domain.ChatRequest{Message: "m", Stream: true})
	require.NoError(t, err)
	assert.Equal(t, 0, respCache.Len(), "streaming must not write to the cache")

	// A later non-streaming request must also not read a phantom entry.
	_, err = uc.Chat(context.Background(), &domain.ChatRequest{Message: "m"})
	require.NoError(t, err)
	assert.Equal(t, 2, gen.calls)
}

func TestChatTimeoutIsDistinct(t *testing.T) {
	gen := &fakeGenerator{err: fmt.Errorf("completion request aborted: %w", context.DeadlineExceeded)}
	respCache := cache.New(5*time.Minute, 100)
	hist := newRecordingHistory()
	uc := NewChatUsecase(gen, respCache, hist, 30*time.Second, testLogger())

	_, err := uc.Chat(context.Background(), &domain.ChatRequest{Message: "m"})
	require.Error(t, err)
	assert.True(t, domain.IsGenerationTimeout(err))

	// No cache store and no history append on a timed-out generation.
	assert.Equal(t, 0, respCache.Len())
	assert.Empty(t, hist.turns)
}

func TestChatOtherFailuresPassThrough(t *testing.T) {
	gen := &fakeGenerator{err: fmt.Errorf("generation service rejected the API key (HTTP 401)")}
	uc := NewChatUsecase(gen, cache.New(5*time.Minute, 100), newRecordingHistory(), 30*time.Second, testLogger())

	_, err := uc.Chat(context.Background(), &domain.ChatRequest{Message: "m"})
	require.Error(t, err)
	assert.False(t, domain.IsGenerationTimeout(err))
	assert.Equal(t, domain.FailureAPIKey, domain.ClassifyGenerationFailure(err))
}

func TestChatPersistsTurnWithConversationID(t *testing.T) {
	gen := &fakeGenerator{response: "a"}
	hist := newRecordingHistory()
	uc := NewChatUsecase(gen, cache.New(5*time.Minute, 100), hist, 30*time.Second, testLogger())

	_, err := uc.Chat(context.Background(), &domain.ChatRequest{Message: "q", ConversationID: "conv-1"})
	require.NoError(t, err)
	hist.wait(t)

	hist.mu.Lock()
	defer hist.mu.Unlock()
	require.Len(t, hist.turns, 1)
	assert.Equal(t, "conv-1|q|a", hist.turns[0])
}

func TestChatHistoryFailureDoesNotAffectResult(t *testing.T) {
	gen := &fakeGenerator{response: "a"}
	hist := newRecordingHistory()
	hist.err = fmt.Errorf("redis down")
	uc := NewChatUsecase(gen, cache.New(5*time.Minute, 100), hist, 30*time.Second, testLogger())

	res, err := uc.Chat(context.Background(), &domain.ChatRequest{Message: "q"})
	require.NoError(t, err)
	assert.Equal(t, "a", res.Response)
	hist.wait(t)
}
