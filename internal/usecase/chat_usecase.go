package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tsubouchi/vn-offshore-apiserver/internal/cache"
	"github.com/tsubouchi/vn-offshore-apiserver/internal/domain"
	"github.com/tsubouchi/vn-offshore-apiserver/internal/domain/entity"
	"github.com/tsubouchi/vn-offshore-apiserver/internal/prompt"
)

// chatUsecase implements domain.ChatUsecase. It coordinates the response
// cache, the generation client and the durable history log for the general
// assistant endpoint.
type chatUsecase struct {
	generator domain.GenerationClient
	cache     *cache.ResponseCache
	history   domain.HistoryRepository
	timeout   time.Duration
	logger    *slog.Logger
}

// NewChatUsecase creates the general assistant usecase.
//
// Parameters:
//   - generator: external generative-text client
//   - respCache: response cache shared across requests
//   - history: durable conversation log (fire-and-forget)
//   - timeout: generation time budget for this endpoint
//   - logger: structured logger
func NewChatUsecase(
	generator domain.GenerationClient,
	respCache *cache.ResponseCache,
	history domain.HistoryRepository,
	timeout time.Duration,
	logger *slog.Logger,
) domain.ChatUsecase {
	return &chatUsecase{
		generator: generator,
		cache:     respCache,
		history:   history,
		timeout:   timeout,
		logger:    logger,
	}
}

// Chat runs one request cycle: cache lookup (non-streaming only), prompt
// construction, time-bounded generation, then cache store and history
// append. Cache store and history append happen only after a successful
// generation, never on a failed or timed-out one.
func (u *chatUsecase) Chat(ctx context.Context, req *domain.ChatRequest) (*domain.ChatResult, error) {
	key := cache.Key(req.Message, req.Context)

	if !req.Stream {
		if cached, ok := u.cache.Get(key); ok {
			u.logger.Debug("cache hit", "conversation_id", req.ConversationID)
			return &domain.ChatResult{
				Response:       cached,
				ConversationID: req.ConversationID,
				Cached:         true,
			}, nil
		}
	}

	p := prompt.BuildGeneral(req.Message, req.Context)

	genCtx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	response, err := u.generator.Generate(genCtx, p)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			u.logger.Warn("generation timed out",
				"conversation_id", req.ConversationID,
				"budget", u.timeout.String(),
			)
			return nil, fmt.Errorf("%w: %v", domain.ErrGenerationTimeout, err)
		}
		return nil, err
	}

	if !req.Stream {
		u.cache.Set(key, response)
	}

	u.persistTurn(req.ConversationID, req.Message, response)

	return &domain.ChatResult{
		Response:       response,
		ConversationID: req.ConversationID,
	}, nil
}

// persistTurn writes the completed turn to durable storage in the
// background. Failures are logged and swallowed; they never surface to the
// caller or block the response.
func (u *chatUsecase) persistTurn(conversationID, userContent, assistantContent string) {
	now := time.Now()
	user := entity.Message{Role: "user", Content: userContent, Timestamp: now}
	assistant := entity.Message{Role: "assistant", Content: assistantContent, Timestamp: now}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := u.history.AppendTurn(ctx, conversationID, user, assistant); err != nil {
			u.logger.Error("failed to persist conversation turn",
				"conversation_id", conversationID,
				"error", err,
			)
		}
	}()
}
