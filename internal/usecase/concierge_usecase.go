package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/tsubouchi/vn-offshore-apiserver/internal/domain"
	"github.com/tsubouchi/vn-offshore-apiserver/internal/domain/entity"
	"github.com/tsubouchi/vn-offshore-apiserver/internal/intent"
	"github.com/tsubouchi/vn-offshore-apiserver/internal/prompt"
	"github.com/tsubouchi/vn-offshore-apiserver/internal/session"
)

// fallbackResponses are the fixed apologies the concierge substitutes when
// generation times out. The widget always gets a usable reply; the timeout
// is never surfaced as an error on this endpoint.
var fallbackResponses = map[string]string{
	"ja": "申し訳ございません。ただいま混み合っております。少し時間をおいてからもう一度お試しください。",
	"en": "We are sorry, the assistant is busy right now. Please try again in a moment.",
	"vi": "Xin lỗi, trợ lý hiện đang bận. Vui lòng thử lại sau giây lát.",
}

// FallbackResponse returns the localized timeout apology. Unknown
// languages fall back to Japanese.
func FallbackResponse(language string) string {
	if s, ok := fallbackResponses[language]; ok {
		return s
	}
	return fallbackResponses["ja"]
}

// conciergeUsecase implements domain.ConciergeUsecase: session resolution,
// intent detection, prompt construction, time-bounded generation and the
// session/history updates.
type conciergeUsecase struct {
	sessions  *session.Store
	generator domain.GenerationClient
	history   domain.HistoryRepository
	timeout   time.Duration
	logger    *slog.Logger
}

// NewConciergeUsecase creates the concierge widget usecase.
func NewConciergeUsecase(
	sessions *session.Store,
	generator domain.GenerationClient,
	history domain.HistoryRepository,
	timeout time.Duration,
	logger *slog.Logger,
) domain.ConciergeUsecase {
	return &conciergeUsecase{
		sessions:  sessions,
		generator: generator,
		history:   history,
		timeout:   timeout,
		logger:    logger,
	}
}

// Converse runs one concierge turn. On generation timeout it substitutes
// the localized fallback apology and proceeds as if generation succeeded;
// any other generation failure is returned to the handler.
func (u *conciergeUsecase) Converse(ctx context.Context, req *domain.ConciergeRequest) (*domain.ConciergeResult, error) {
	sess := u.sessions.GetOrCreate(req.SessionID)
	if req.SessionID != "" && sess.ID != req.SessionID {
		u.logger.Info("stale session id replaced", "new_session_id", sess.ID)
	}

	it := intent.Detect(req.Message)
	p := prompt.Build(req.Message, it, req.Language, &sess, req.Metadata)

	genCtx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	response, err := u.generator.Generate(genCtx, p)
	if err != nil {
		if !errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		u.logger.Warn("concierge generation timed out, using fallback",
			"session_id", sess.ID,
			"language", req.Language,
		)
		response = FallbackResponse(req.Language)
	}

	u.sessions.AppendTurn(sess.ID, req.Message, response)
	if req.Metadata != nil {
		u.rememberMetadata(sess.ID, req.Metadata)
	}
	u.persistTurn(sess.ID, req.Message, response)

	return &domain.ConciergeResult{
		Response:     response,
		SessionID:    sess.ID,
		Intent:       it,
		QuickReplies: intent.QuickReplies(it, req.Language),
	}, nil
}

// Session returns a snapshot of a live session.
func (u *conciergeUsecase) Session(id string) (*entity.ChatSession, bool) {
	if id == "" {
		return nil, false
	}
	sess, ok := u.sessions.Get(id)
	if !ok {
		return nil, false
	}
	return &sess, true
}

// rememberMetadata folds present metadata fields into the session context.
func (u *conciergeUsecase) rememberMetadata(sessionID string, meta *entity.ClientMetadata) {
	kv := map[string]string{}
	if meta.Page != "" {
		kv["page"] = meta.Page
	}
	if meta.CompanyID != "" {
		kv["companyId"] = meta.CompanyID
	}
	if meta.UserID != "" {
		kv["userId"] = meta.UserID
	}
	if meta.UserType != "" {
		kv["userType"] = meta.UserType
	}
	if len(kv) > 0 {
		u.sessions.SetContext(sessionID, kv)
	}
}

func (u *conciergeUsecase) persistTurn(sessionID, userContent, assistantContent string) {
	now := time.Now()
	user := entity.Message{Role: "user", Content: userContent, Timestamp: now}
	assistant := entity.Message{Role: "assistant", Content: assistantContent, Timestamp: now}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := u.history.AppendTurn(ctx, sessionID, user, assistant); err != nil {
			u.logger.Error("failed to persist concierge turn",
				"session_id", sessionID,
				"error", err,
			)
		}
	}()
}
