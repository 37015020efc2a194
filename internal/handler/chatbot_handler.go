package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/google/uuid"

	"github.com/tsubouchi/vn-offshore-apiserver/internal/domain"
	"github.com/tsubouchi/vn-offshore-apiserver/internal/domain/entity"
	"github.com/tsubouchi/vn-offshore-apiserver/internal/handler/dto"
	"github.com/tsubouchi/vn-offshore-apiserver/internal/intent"
	"github.com/tsubouchi/vn-offshore-apiserver/internal/usecase"
)

// sessionCookieName identifies the concierge session on the widget side.
const sessionCookieName = "chatbot_session"

// ChatbotHandler serves the concierge widget endpoint. Unlike the general
// endpoint it never returns a bare 4xx: every failure path still carries a
// localized reply, a session id and quick replies.
type ChatbotHandler struct {
	usecase       domain.ConciergeUsecase
	sessionTTL    time.Duration
	secureCookies bool
	logger        *slog.Logger
}

// NewChatbotHandler creates the concierge handler. secureCookies should be
// true in release mode so the session cookie is HTTPS-only.
func NewChatbotHandler(usecase domain.ConciergeUsecase, sessionTTL time.Duration, secureCookies bool, logger *slog.Logger) *ChatbotHandler {
	return &ChatbotHandler{
		usecase:       usecase,
		sessionTTL:    sessionTTL,
		secureCookies: secureCookies,
		logger:        logger,
	}
}

// Converse handles POST /api/chatbot.
func (h *ChatbotHandler) Converse(ctx context.Context, c *app.RequestContext) {
	var req dto.ChatbotRequest
	if err := c.BindJSON(&req); err != nil {
		h.logger.Warn("failed to bind chatbot request", "error", err)
		h.failure(c, "ja")
		return
	}

	language := req.NormalizeLanguage()
	if !req.Valid() {
		h.failure(c, language)
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = string(c.Cookie(sessionCookieName))
	}

	result, err := h.usecase.Converse(ctx, &domain.ConciergeRequest{
		Message:   req.Message,
		Language:  language,
		SessionID: sessionID,
		Metadata:  req.Metadata,
	})
	if err != nil {
		h.logger.Error("concierge turn failed", "error", err)
		h.failure(c, language)
		return
	}

	h.setSessionCookie(c, result.SessionID)
	c.JSON(consts.StatusOK, dto.ChatbotResponse{
		Response:     result.Response,
		SessionID:    result.SessionID,
		Intent:       result.Intent,
		QuickReplies: result.QuickReplies,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	})
}

// Session handles GET /api/chatbot: the widget restores its state from the
// session cookie. Absent or unknown sessions yield an empty-shaped object,
// never an error.
func (h *ChatbotHandler) Session(ctx context.Context, c *app.RequestContext) {
	id := string(c.Cookie(sessionCookieName))
	sess, ok := h.usecase.Session(id)
	if !ok {
		c.JSON(consts.StatusOK, dto.SessionStateResponse{
			Messages: []entity.Message{},
			Context:  map[string]string{},
		})
		return
	}

	c.JSON(consts.StatusOK, dto.SessionStateResponse{
		SessionID: sess.ID,
		Messages:  sess.Messages,
		Context:   sess.Context,
	})
}

// Preflight handles OPTIONS /api/chatbot.
func (h *ChatbotHandler) Preflight(ctx context.Context, c *app.RequestContext) {
	c.Status(consts.StatusOK)
}

// failure writes the concierge's 500 body: a localized apology, a freshly
// minted session id and the general quick replies, so the widget keeps
// rendering something useful.
func (h *ChatbotHandler) failure(c *app.RequestContext, language string) {
	sessionID := uuid.New().String()
	h.setSessionCookie(c, sessionID)
	c.JSON(consts.StatusInternalServerError, dto.ChatbotErrorResponse{
		Error:        "internal_error",
		Response:     usecase.FallbackResponse(language),
		SessionID:    sessionID,
		QuickReplies: intent.QuickReplies(entity.IntentGeneral, language),
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *ChatbotHandler) setSessionCookie(c *app.RequestContext, sessionID string) {
	c.SetCookie(
		sessionCookieName,
		sessionID,
		int(h.sessionTTL.Seconds()),
		"/",
		"",
		protocol.CookieSameSiteLaxMode,
		h.secureCookies,
		true, // httpOnly
	)
}
