package handler

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/cloudwego/hertz/pkg/protocol/sse"

	"github.com/tsubouchi/vn-offshore-apiserver/internal/domain"
	"github.com/tsubouchi/vn-offshore-apiserver/internal/handler/dto"
	"github.com/tsubouchi/vn-offshore-apiserver/internal/ratelimit"
)

// streamChunkDelay paces the simulated stream. The response is already
// fully generated; the stream re-encodes it word by word.
const streamChunkDelay = 50 * time.Millisecond

// ChatHandler serves the general assistant endpoint.
type ChatHandler struct {
	usecase domain.ChatUsecase
	limiter *ratelimit.Limiter
	logger  *slog.Logger
}

// NewChatHandler creates the general chat handler.
func NewChatHandler(usecase domain.ChatUsecase, limiter *ratelimit.Limiter, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{
		usecase: usecase,
		limiter: limiter,
		logger:  logger,
	}
}

// Chat handles POST /api/chat.
//
// Request cycle: validate, rate-limit, then hand off to the usecase. The
// response is either a JSON body or, with stream=true, a simulated
// event stream over the completed response text.
func (h *ChatHandler) Chat(ctx context.Context, c *app.RequestContext) {
	var req dto.ChatRequest
	if err := c.BindJSON(&req); err != nil {
		h.logger.Warn("failed to bind chat request", "error", err)
		validationError(c, []string{"request body must be valid JSON with the documented field types"})
		return
	}

	// Validation fails fast, before any shared-state mutation.
	if details := req.Validate(); len(details) > 0 {
		validationError(c, details)
		return
	}

	key := clientKey(c)
	rl := h.limiter.Check(key)
	h.setRateLimitHeaders(c, rl)
	if !rl.Allowed {
		retryAfter := rl.RetryAfterSeconds(time.Now())
		c.Response.Header.Set("Retry-After", strconv.Itoa(retryAfter))
		c.JSON(consts.StatusTooManyRequests, dto.ChatErrorResponse{
			Error:      "Rate limit exceeded. Please slow down.",
			RetryAfter: retryAfter,
		})
		return
	}

	chatReq := &domain.ChatRequest{
		Message:        req.Message,
		ConversationID: req.ConversationID,
		UserID:         req.UserID,
		Context:        req.Context,
		Stream:         req.Stream,
	}

	h.logger.Info("chat request received",
		"client_key", key,
		"conversation_id", req.ConversationID,
		"stream", req.Stream,
		"message_length", utf8.RuneCountInString(req.Message),
	)

	result, err := h.usecase.Chat(ctx, chatReq)
	if err != nil {
		h.logger.Error("chat failed", "error", err)
		generationError(c, err)
		return
	}

	if req.Stream {
		h.writeSimulatedStream(c, result.Response)
		return
	}

	if result.Cached {
		c.Response.Header.Set("X-Cache", "HIT")
	} else {
		c.Response.Header.Set("X-Cache", "MISS")
	}

	var conversationID *string
	if result.ConversationID != "" {
		conversationID = &result.ConversationID
	}
	c.JSON(consts.StatusOK, dto.ChatResponse{
		Response:       result.Response,
		ConversationID: conversationID,
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
	})
}

// Preflight handles OPTIONS for the API endpoints with a 200 and
// permissive CORS headers.
func (h *ChatHandler) Preflight(ctx context.Context, c *app.RequestContext) {
	c.Status(consts.StatusOK)
}

// writeSimulatedStream re-encodes the fully generated response as a
// word-chunk event stream terminated by the [DONE] sentinel. This is not
// token-level generation; it paces an already-complete string.
func (h *ChatHandler) writeSimulatedStream(c *app.RequestContext, response string) {
	c.SetStatusCode(consts.StatusOK)

	writer := sse.NewWriter(c)
	defer writer.Close()

	for _, word := range strings.Fields(response) {
		payload, err := sonic.Marshal(dto.StreamChunk{Chunk: word + " "})
		if err != nil {
			h.logger.Error("failed to marshal stream chunk", "error", err)
			break
		}
		if err := writer.WriteEvent("", "", payload); err != nil {
			h.logger.Error("failed to write stream chunk", "error", err)
			return
		}
		time.Sleep(streamChunkDelay)
	}

	if err := writer.WriteEvent("", "", []byte("[DONE]")); err != nil {
		h.logger.Error("failed to write stream terminator", "error", err)
	}
}

func (h *ChatHandler) setRateLimitHeaders(c *app.RequestContext, rl ratelimit.Result) {
	c.Response.Header.Set("X-RateLimit-Limit", strconv.Itoa(h.limiter.Ceiling()))
	c.Response.Header.Set("X-RateLimit-Remaining", strconv.Itoa(rl.Remaining))
	c.Response.Header.Set("X-RateLimit-Reset", strconv.FormatInt(rl.ResetAt.Unix(), 10))
}
