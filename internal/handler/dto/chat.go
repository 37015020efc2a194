package dto

import (
	"strconv"
	"unicode/utf8"

	"github.com/tsubouchi/vn-offshore-apiserver/internal/domain/entity"
)

// MaxChatMessageLength bounds the general chat endpoint's message field.
const MaxChatMessageLength = 5000

// ChatRequest is the POST /api/chat body.
type ChatRequest struct {
	Message        string              `json:"message"`
	ConversationID string              `json:"conversationId,omitempty"`
	UserID         string              `json:"userId,omitempty"`
	Context        *entity.ChatContext `json:"context,omitempty"`
	Stream         bool                `json:"stream,omitempty"`
}

// Validate returns the field-level problems with the request, empty when
// the request is well-formed.
func (r *ChatRequest) Validate() []string {
	var details []string
	if r.Message == "" {
		details = append(details, "message is required and must not be empty")
	} else if utf8.RuneCountInString(r.Message) > MaxChatMessageLength {
		// Bounds are in characters, not bytes: Japanese text is three
		// bytes per character in UTF-8.
		details = append(details, "message must be at most 5000 characters")
	}
	if r.Context != nil {
		for i, m := range r.Context.PreviousMessages {
			if m.Role != "user" && m.Role != "assistant" {
				details = append(details, "context.previousMessages["+strconv.Itoa(i)+"].role must be 'user' or 'assistant'")
			}
			if m.Content == "" {
				details = append(details, "context.previousMessages["+strconv.Itoa(i)+"].content is required and must not be empty")
			}
		}
	}
	return details
}

// ChatResponse is the non-streaming POST /api/chat success body.
// ConversationID is null when the caller supplied none.
type ChatResponse struct {
	Response       string  `json:"response"`
	ConversationID *string `json:"conversationId"`
	Timestamp      string  `json:"timestamp"`
}

// StreamChunk is one simulated-stream event payload.
type StreamChunk struct {
	Chunk string `json:"chunk"`
}

// ChatErrorResponse is the error body for the general endpoint.
type ChatErrorResponse struct {
	Error      string   `json:"error"`
	Details    []string `json:"details,omitempty"`
	RetryAfter int      `json:"retryAfter,omitempty"`
}
