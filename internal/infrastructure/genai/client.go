// Package genai talks to the upstream generative-text service over its
// OpenAI-compatible chat completions API. The orchestrator owns the time
// budget: callers pass a deadline-bearing context and a deadline hit
// surfaces as a context.DeadlineExceeded-wrapping error.
package genai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/bytedance/sonic"

	"github.com/tsubouchi/vn-offshore-apiserver/internal/config"
	"github.com/tsubouchi/vn-offshore-apiserver/internal/domain"
)

// Client implements domain.GenerationClient over HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a generation client. The transport timeout is a hard
// upper bound; per-request budgets come from the caller's context.
func NewClient(cfg config.GenerationConfig, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	logger.Info("generation client created", "base_url", cfg.BaseURL, "model", cfg.Model)

	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type completionRequest struct {
	Model    string              `json:"model"`
	Messages []completionMessage `json:"messages"`
}

type completionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionResponse struct {
	Choices []struct {
		Message completionMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Generate sends the prompt and returns the completion text.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", errors.New("generation API key is not configured")
	}

	body, err := sonic.Marshal(completionRequest{
		Model:    c.model,
		Messages: []completionMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Preserve context errors so the orchestrator can tell a timeout
		// apart from other failures.
		if ctx.Err() != nil {
			return "", fmt.Errorf("completion request aborted: %w", ctx.Err())
		}
		return "", fmt.Errorf("completion request network failure: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("completion response aborted: %w", ctx.Err())
		}
		return "", fmt.Errorf("failed to read completion response: %w", err)
	}

	var parsed completionResponse
	if err := sonic.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("failed to unmarshal completion response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", c.classifyHTTPError(resp.StatusCode, &parsed)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("completion response contained no choices")
	}

	c.logger.Debug("completion received",
		"latency_ms", time.Since(start).Milliseconds(),
		"length", len(parsed.Choices[0].Message.Content),
	)

	return parsed.Choices[0].Message.Content, nil
}

// classifyHTTPError folds upstream failures into messages the handler
// layer classifies by substring ("API key", "quota", "network").
func (c *Client) classifyHTTPError(status int, parsed *completionResponse) error {
	detail := ""
	if parsed.Error != nil {
		detail = parsed.Error.Message
	}

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("generation service rejected the API key (HTTP %d): %s", status, detail)
	case http.StatusTooManyRequests:
		return fmt.Errorf("generation service quota exhausted (HTTP %d): %s", status, detail)
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return fmt.Errorf("generation service network failure (HTTP %d): %s", status, detail)
	default:
		return fmt.Errorf("generation service error (HTTP %d): %s", status, detail)
	}
}

var _ domain.GenerationClient = (*Client)(nil)
