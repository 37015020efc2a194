package dto

import (
	"unicode/utf8"

	"github.com/tsubouchi/vn-offshore-apiserver/internal/domain/entity"
)

// MaxChatbotMessageLength bounds the concierge widget's message field.
const MaxChatbotMessageLength = 2000

// ChatbotRequest is the POST /api/chatbot body.
type ChatbotRequest struct {
	Message   string                 `json:"message"`
	Language  string                 `json:"language,omitempty"` // ja, en, vi
	SessionID string                 `json:"sessionId,omitempty"`
	Metadata  *entity.ClientMetadata `json:"metadata,omitempty"`
}

// NormalizeLanguage maps the request language onto the supported set,
// defaulting to Japanese.
func (r *ChatbotRequest) NormalizeLanguage() string {
	switch r.Language {
	case "ja", "en", "vi":
		return r.Language
	default:
		return "ja"
	}
}

// Valid reports whether the message passes the widget's length bounds.
// The bound is in characters, not bytes.
func (r *ChatbotRequest) Valid() bool {
	return r.Message != "" && utf8.RuneCountInString(r.Message) <= MaxChatbotMessageLength
}

// ChatbotResponse is the POST /api/chatbot success body.
type ChatbotResponse struct {
	Response     string        `json:"response"`
	SessionID    string        `json:"sessionId"`
	Intent       entity.Intent `json:"intent"`
	QuickReplies []string      `json:"quickReplies"`
	Timestamp    string        `json:"timestamp"`
}

// ChatbotErrorResponse is the concierge failure body. It always carries a
// usable localized reply, a fresh session id and quick replies so the
// widget can keep rendering.
type ChatbotErrorResponse struct {
	Error        string   `json:"error"`
	Response     string   `json:"response"`
	SessionID    string   `json:"sessionId"`
	QuickReplies []string `json:"quickReplies"`
	Timestamp    string   `json:"timestamp"`
}

// SessionStateResponse is the GET /api/chatbot body.
type SessionStateResponse struct {
	SessionID string            `json:"sessionId"`
	Messages  []entity.Message  `json:"messages"`
	Context   map[string]string `json:"context"`
}
