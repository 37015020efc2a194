//go:build integration
// +build integration

package integration

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsubouchi/vn-offshore-apiserver/internal/cache"
	"github.com/tsubouchi/vn-offshore-apiserver/internal/handler"
	"github.com/tsubouchi/vn-offshore-apiserver/internal/handler/dto"
	"github.com/tsubouchi/vn-offshore-apiserver/internal/infrastructure/history"
	"github.com/tsubouchi/vn-offshore-apiserver/internal/ratelimit"
	"github.com/tsubouchi/vn-offshore-apiserver/internal/router"
	"github.com/tsubouchi/vn-offshore-apiserver/internal/session"
	"github.com/tsubouchi/vn-offshore-apiserver/internal/usecase"
)

const (
	testPort    = 18080
	testCeiling = 5
	stubReply   = "ベトナムのオフショア開発は コスト効率に優れています"
)

// stubGenerator returns a fixed reply and counts invocations.
type stubGenerator struct {
	calls atomic.Int64
}

func (g *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.calls.Add(1)
	return stubReply, nil
}

// startServer wires the full pipeline against the stub generator and runs
// a real Hertz server on the test port.
func startServer(t *testing.T) (*stubGenerator, string) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	generator := &stubGenerator{}
	limiter := ratelimit.NewLimiter(testCeiling, time.Minute)
	respCache := cache.New(5*time.Minute, 100)
	sessions := session.NewStore(30 * time.Minute)
	historyRepo := history.NewNoopRepository()

	chatUC := usecase.NewChatUsecase(generator, respCache, historyRepo, 30*time.Second, logger)
	chatHandler := handler.NewChatHandler(chatUC, limiter, logger)

	conciergeUC := usecase.NewConciergeUsecase(sessions, generator, historyRepo, 15*time.Second, logger)
	chatbotHandler := handler.NewChatbotHandler(conciergeUC, 30*time.Minute, false, logger)

	healthHandler := handler.NewHealthHandler(nil)

	h := server.New(server.WithHostPorts(fmt.Sprintf("127.0.0.1:%d", testPort)))
	router.Setup(h, chatHandler, chatbotHandler, healthHandler)

	go func() {
		if err := h.Run(); err != nil {
			logger.Error("server failed", "error", err)
		}
	}()

	// Wait for the server to come up
	time.Sleep(2 * time.Second)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		h.Shutdown(ctx)
	})

	return generator, fmt.Sprintf("http://127.0.0.1:%d", testPort)
}

// postJSON sends a JSON POST with a per-test client key so subtests do not
// consume each other's rate limit budget.
func postJSON(t *testing.T, url, clientKey string, body any) *http.Response {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(data))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", clientKey)

	client := &http.Client{Timeout: 60 * time.Second}
	resp, err := client.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()

	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestAssistantHTTP(t *testing.T) {
	generator, baseURL := startServer(t)
	chatURL := baseURL + "/api/chat"
	chatbotURL := baseURL + "/api/chatbot"

	t.Run("non-streaming chat returns the reply", func(t *testing.T) {
		resp := postJSON(t, chatURL, "10.0.0.1", dto.ChatRequest{
			Message:        "オフショア開発のメリットは?",
			ConversationID: "conv-itest-1",
		})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "MISS", resp.Header.Get("X-Cache"))

		body := decodeBody[dto.ChatResponse](t, resp)
		assert.Equal(t, stubReply, body.Response)
		require.NotNil(t, body.ConversationID)
		assert.Equal(t, "conv-itest-1", *body.ConversationID)
		assert.NotEmpty(t, body.Timestamp)
	})

	t.Run("identical request is served from cache", func(t *testing.T) {
		before := generator.calls.Load()

		first := postJSON(t, chatURL, "10.0.0.2", dto.ChatRequest{Message: "キャッシュ確認の質問"})
		assert.Equal(t, "MISS", first.Header.Get("X-Cache"))
		first.Body.Close()

		second := postJSON(t, chatURL, "10.0.0.2", dto.ChatRequest{Message: "キャッシュ確認の質問"})
		assert.Equal(t, "HIT", second.Header.Get("X-Cache"))

		body := decodeBody[dto.ChatResponse](t, second)
		assert.Equal(t, stubReply, body.Response)

		// The cached turn must not have called the generator again
		assert.Equal(t, before+1, generator.calls.Load())
	})

	t.Run("streamed chunks reconstruct the reply", func(t *testing.T) {
		data, err := json.Marshal(dto.ChatRequest{Message: "ストリーミングで教えて", Stream: true})
		require.NoError(t, err)

		req, err := http.NewRequest(http.MethodPost, chatURL, bytes.NewReader(data))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", "10.0.0.3")

		client := &http.Client{Timeout: 60 * time.Second}
		resp, err := client.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

		var rebuilt strings.Builder
		receivedDone := false
		reader := bufio.NewReader(resp.Body)
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				if err == io.EOF {
					break
				}
				t.Fatalf("failed to read stream: %v", err)
			}

			line = strings.TrimSpace(line)
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			payload := strings.TrimPrefix(line, "data: ")
			if payload == "[DONE]" {
				receivedDone = true
				break
			}

			var chunk dto.StreamChunk
			require.NoError(t, json.Unmarshal([]byte(payload), &chunk))
			assert.True(t, strings.HasSuffix(chunk.Chunk, " "), "each chunk ends with a space")
			rebuilt.WriteString(chunk.Chunk)
		}

		assert.True(t, receivedDone, "stream must end with [DONE]")
		assert.Equal(t, stubReply, strings.TrimRight(rebuilt.String(), " "))
	})

	t.Run("validation failure returns 400 with details", func(t *testing.T) {
		resp := postJSON(t, chatURL, "10.0.0.4", dto.ChatRequest{Message: ""})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		body := decodeBody[dto.ChatErrorResponse](t, resp)
		assert.NotEmpty(t, body.Error)
		assert.NotEmpty(t, body.Details)
	})

	t.Run("rate limit returns 429 with retry hint", func(t *testing.T) {
		for i := 0; i < testCeiling; i++ {
			resp := postJSON(t, chatURL, "10.0.0.5", dto.ChatRequest{Message: fmt.Sprintf("質問 %d", i)})
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			resp.Body.Close()
		}

		resp := postJSON(t, chatURL, "10.0.0.5", dto.ChatRequest{Message: "limit を超える質問"})
		assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
		assert.NotEmpty(t, resp.Header.Get("Retry-After"))
		assert.Equal(t, "0", resp.Header.Get("X-RateLimit-Remaining"))

		body := decodeBody[dto.ChatErrorResponse](t, resp)
		assert.Greater(t, body.RetryAfter, 0)
	})

	t.Run("concierge flow keeps session across turns", func(t *testing.T) {
		first := postJSON(t, chatbotURL, "10.0.0.6", dto.ChatbotRequest{
			Message:  "こんにちは",
			Language: "ja",
		})
		require.Equal(t, http.StatusOK, first.StatusCode)

		var sessionCookie string
		for _, c := range first.Cookies() {
			if c.Name == "chatbot_session" {
				sessionCookie = c.Value
			}
		}

		firstBody := decodeBody[dto.ChatbotResponse](t, first)
		assert.Equal(t, stubReply, firstBody.Response)
		assert.NotEmpty(t, firstBody.SessionID)
		assert.Equal(t, "greeting", string(firstBody.Intent))
		assert.Len(t, firstBody.QuickReplies, 3)
		assert.Equal(t, firstBody.SessionID, sessionCookie)

		second := postJSON(t, chatbotURL, "10.0.0.6", dto.ChatbotRequest{
			Message:   "料金について教えてください",
			Language:  "ja",
			SessionID: firstBody.SessionID,
		})
		secondBody := decodeBody[dto.ChatbotResponse](t, second)
		assert.Equal(t, firstBody.SessionID, secondBody.SessionID)
		assert.Equal(t, "pricing", string(secondBody.Intent))

		// Restore widget state via the cookie
		req, err := http.NewRequest(http.MethodGet, chatbotURL, nil)
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: "chatbot_session", Value: firstBody.SessionID})

		client := &http.Client{Timeout: 10 * time.Second}
		resp, err := client.Do(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		state := decodeBody[dto.SessionStateResponse](t, resp)
		assert.Equal(t, firstBody.SessionID, state.SessionID)
		assert.Len(t, state.Messages, 4)
	})

	t.Run("concierge malformed body still answers with a usable reply", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodPost, chatbotURL, strings.NewReader("{not json"))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")

		client := &http.Client{Timeout: 10 * time.Second}
		resp, err := client.Do(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

		body := decodeBody[dto.ChatbotErrorResponse](t, resp)
		assert.NotEmpty(t, body.Response)
		assert.NotEmpty(t, body.SessionID)
		assert.Len(t, body.QuickReplies, 3)
	})

	t.Run("preflight answers 200 with CORS headers", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodOptions, chatURL, nil)
		require.NoError(t, err)

		client := &http.Client{Timeout: 10 * time.Second}
		resp, err := client.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	})
}
