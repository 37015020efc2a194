package types

// PriorMessage is one turn of earlier conversation sent along with a request
type PriorMessage struct {
	Role    string `json:"role"`    // user, assistant
	Content string `json:"content"` // Message content
}

// ChatContext carries optional context for a chat request
type ChatContext struct {
	CompanyID        string         `json:"companyId,omitempty"`
	PreviousMessages []PriorMessage `json:"previousMessages,omitempty"`
}

// ChatRequest represents a request to the chat endpoint
type ChatRequest struct {
	Message        string       `json:"message"`
	ConversationID string       `json:"conversationId,omitempty"`
	UserID         string       `json:"userId,omitempty"`
	Context        *ChatContext `json:"context,omitempty"`
	Stream         bool         `json:"stream,omitempty"`
}

// ChatResponse represents a non-streaming chat response
type ChatResponse struct {
	Response       string  `json:"response"`
	ConversationID *string `json:"conversationId"`
	Timestamp      string  `json:"timestamp"`
}

// StreamChunk represents one SSE data payload of a streaming response
type StreamChunk struct {
	Chunk string `json:"chunk"`
}

// ChatError represents an error body from the chat endpoint
type ChatError struct {
	Error      string   `json:"error"`
	Details    []string `json:"details,omitempty"`
	RetryAfter int      `json:"retryAfter,omitempty"`
}

// ConciergeRequest represents a request to the concierge widget endpoint
type ConciergeRequest struct {
	Message   string            `json:"message"`
	SessionID string            `json:"sessionId,omitempty"`
	Language  string            `json:"language,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// ConciergeResponse represents a concierge widget response
type ConciergeResponse struct {
	Response     string   `json:"response"`
	SessionID    string   `json:"sessionId"`
	Intent       string   `json:"intent"`
	QuickReplies []string `json:"quickReplies"`
	Timestamp    string   `json:"timestamp"`
}
