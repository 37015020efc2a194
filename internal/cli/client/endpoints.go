package client

const (
	// Assistant endpoints
	endpointChat    = "/api/chat"    // POST - general chat, streaming or not
	endpointChatbot = "/api/chatbot" // POST - concierge widget, GET - session state

	// Health endpoints
	endpointPing = "/ping" // GET - liveness probe
)
