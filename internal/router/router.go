package router

import (
	"github.com/cloudwego/hertz/pkg/app/server"

	"github.com/tsubouchi/vn-offshore-apiserver/internal/handler"
	"github.com/tsubouchi/vn-offshore-apiserver/internal/middleware"
)

// Setup sets up all routes.
func Setup(
	h *server.Hertz,
	chatHandler *handler.ChatHandler,
	chatbotHandler *handler.ChatbotHandler,
	healthHandler *handler.HealthHandler,
) {
	// Global middleware
	h.Use(middleware.Recovery())
	h.Use(middleware.Logger())
	h.Use(middleware.CORS())

	// Health check routes
	h.GET("/ping", healthHandler.Ping)
	h.GET("/health/ready", healthHandler.Readiness)
	h.GET("/health/live", healthHandler.Liveness)

	// Assistant API
	api := h.Group("/api")
	{
		// General assistant (programmatic callers)
		api.POST("/chat", chatHandler.Chat)
		api.OPTIONS("/chat", chatHandler.Preflight)

		// Concierge widget
		api.POST("/chatbot", chatbotHandler.Converse)
		api.GET("/chatbot", chatbotHandler.Session)
		api.OPTIONS("/chatbot", chatbotHandler.Preflight)
	}
}
