package domain

import (
	"context"

	"github.com/tsubouchi/vn-offshore-apiserver/internal/domain/entity"
)

// ============ internal DTOs used by the usecase layer ============

// ChatRequest is the internal request for the general chat endpoint.
type ChatRequest struct {
	Message        string
	ConversationID string
	UserID         string
	Context        *entity.ChatContext
	Stream         bool
}

// ChatResult is the internal result for the general chat endpoint.
type ChatResult struct {
	Response       string
	ConversationID string
	Cached         bool
}

// ConciergeRequest is the internal request for the concierge widget.
type ConciergeRequest struct {
	Message   string
	Language  string // ja, en, vi
	SessionID string
	Metadata  *entity.ClientMetadata
}

// ConciergeResult is the internal result for the concierge widget.
type ConciergeResult struct {
	Response     string
	SessionID    string
	Intent       entity.Intent
	QuickReplies []string
}

// GenerationClient invokes the external generative-text service.
// Implementations must honor ctx cancellation; a deadline hit surfaces
// as a context.DeadlineExceeded-wrapping error.
type GenerationClient interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// HistoryRepository persists completed conversation turns to durable
// storage. Writes are fire-and-forget from the caller's point of view:
// errors are logged by the caller and never surfaced to HTTP clients.
type HistoryRepository interface {
	AppendTurn(ctx context.Context, conversationID string, user, assistant entity.Message) error
}

// ChatUsecase drives the general assistant pipeline.
type ChatUsecase interface {
	// Chat runs the full non-streaming cycle including cache lookup/store.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error)
}

// ConciergeUsecase drives the concierge widget pipeline.
type ConciergeUsecase interface {
	// Converse resolves the session, detects intent, generates a reply and
	// appends the completed turn to the session.
	Converse(ctx context.Context, req *ConciergeRequest) (*ConciergeResult, error)

	// Session returns a snapshot of a live session, if any.
	Session(id string) (*entity.ChatSession, bool)
}
