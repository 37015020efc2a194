package entity

import "time"

// Message is a single conversation turn inside a session.
type Message struct {
	Role      string    `json:"role"` // user or assistant
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatSession holds short-lived conversational state for the concierge
// widget. Sessions are owned by the session store and referenced from the
// client side by id only.
type ChatSession struct {
	ID           string            `json:"id"`
	Messages     []Message         `json:"messages"`
	Context      map[string]string `json:"context"`
	CreatedAt    time.Time         `json:"createdAt"`
	LastActivity time.Time         `json:"lastActivity"`
}

// PriorMessage is a caller-supplied previous turn on the general chat
// endpoint. The caller owns its own history, so there is no timestamp.
type PriorMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatContext is the optional request context on the general chat endpoint.
// It participates in the response-cache key, so the serialization must stay
// stable across requests.
type ChatContext struct {
	CompanyID        string         `json:"companyId,omitempty"`
	PreviousMessages []PriorMessage `json:"previousMessages,omitempty"`
}

// ClientMetadata is the optional caller metadata on the concierge endpoint.
type ClientMetadata struct {
	Page      string `json:"page,omitempty"`
	CompanyID string `json:"companyId,omitempty"`
	UserID    string `json:"userId,omitempty"`
	UserType  string `json:"userType,omitempty"` // guest, buyer, vendor
}
