package client

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/hertz/pkg/app/client"
	"github.com/cloudwego/hertz/pkg/network/standard"
	"github.com/cloudwego/hertz/pkg/protocol"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"github.com/tsubouchi/vn-offshore-apiserver/internal/cli/types"
)

// APIClient wraps Hertz Client for HTTP communication with the API server
type APIClient struct {
	client *client.Client
	server string
}

// NewAPIClient creates a new API client
func NewAPIClient(server string) (*APIClient, error) {
	// Normalize server URL
	normalizedServer, err := normalizeServerURL(server)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}

	// Use standard library dialer for streaming support
	// netpoll doesn't support streaming well, causing panics
	c, err := client.NewClient(
		client.WithDialTimeout(10*time.Second),
		client.WithMaxIdleConnDuration(60*time.Second),
		client.WithResponseBodyStream(true),
		client.WithDialer(standard.NewDialer()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	return &APIClient{
		client: c,
		server: normalizedServer,
	}, nil
}

// normalizeServerURL normalizes server URL to ensure it has a scheme and no trailing slash
func normalizeServerURL(server string) (string, error) {
	if !strings.Contains(server, "://") {
		server = "http://" + server
	}

	u, err := url.Parse(server)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid server URL")
	}

	return fmt.Sprintf("%s://%s", u.Scheme, u.Host), nil
}

// Ping checks server reachability
func (c *APIClient) Ping(ctx context.Context) error {
	req := protocol.AcquireRequest()
	resp := protocol.AcquireResponse()
	defer func() {
		protocol.ReleaseRequest(req)
		protocol.ReleaseResponse(resp)
	}()

	req.SetMethod(consts.MethodGet)
	req.SetRequestURI(c.server + endpointPing)

	if err := c.client.Do(ctx, req, resp); err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode() != 200 {
		return fmt.Errorf("server replied with HTTP %d", resp.StatusCode())
	}
	return nil
}

// Chat sends a non-streaming chat request
func (c *APIClient) Chat(ctx context.Context, chatReq *types.ChatRequest) (*types.ChatResponse, error) {
	chatReq.Stream = false

	bodyBytes, err := sonic.Marshal(chatReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req := protocol.AcquireRequest()
	resp := protocol.AcquireResponse()
	defer func() {
		protocol.ReleaseRequest(req)
		protocol.ReleaseResponse(resp)
	}()

	req.SetMethod(consts.MethodPost)
	req.SetRequestURI(c.server + endpointChat)
	req.Header.SetContentTypeBytes([]byte("application/json"))
	req.SetBody(bodyBytes)

	if err := c.client.Do(ctx, req, resp); err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode() != 200 {
		return nil, decodeChatError(resp.StatusCode(), resp.Body())
	}

	var chatResp types.ChatResponse
	if err := sonic.Unmarshal(resp.Body(), &chatResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return &chatResp, nil
}

// Ask sends a single concierge question and returns the widget reply
func (c *APIClient) Ask(ctx context.Context, askReq *types.ConciergeRequest) (*types.ConciergeResponse, error) {
	bodyBytes, err := sonic.Marshal(askReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req := protocol.AcquireRequest()
	resp := protocol.AcquireResponse()
	defer func() {
		protocol.ReleaseRequest(req)
		protocol.ReleaseResponse(resp)
	}()

	req.SetMethod(consts.MethodPost)
	req.SetRequestURI(c.server + endpointChatbot)
	req.Header.SetContentTypeBytes([]byte("application/json"))
	req.SetBody(bodyBytes)

	if err := c.client.Do(ctx, req, resp); err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	// The concierge endpoint answers failures with a usable body too, so
	// parse the reply shape for any status.
	var askResp types.ConciergeResponse
	if err := sonic.Unmarshal(resp.Body(), &askResp); err != nil {
		return nil, fmt.Errorf("ask failed with HTTP status: %d, body: %s", resp.StatusCode(), string(resp.Body()))
	}
	if askResp.Response == "" {
		return nil, fmt.Errorf("ask failed with HTTP status: %d, body: %s", resp.StatusCode(), string(resp.Body()))
	}

	return &askResp, nil
}

// ChatStreaming sends a chat message and returns the streamed reply chunks
func (c *APIClient) ChatStreaming(ctx context.Context, chatReq *types.ChatRequest) (<-chan types.StreamChunk, <-chan error, error) {
	if strings.TrimSpace(chatReq.Message) == "" {
		return nil, nil, fmt.Errorf("chat request requires a message")
	}

	chatReq.Stream = true
	bodyBytes, err := sonic.Marshal(chatReq)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req := protocol.AcquireRequest()
	resp := protocol.AcquireResponse()

	req.SetMethod(consts.MethodPost)
	req.SetRequestURI(c.server + endpointChat)
	req.Header.SetContentTypeBytes([]byte("application/json"))
	req.Header.Set("Accept", "text/event-stream")
	req.SetBody(bodyBytes)

	// Use Do() - Hertz will handle streaming response through BodyStream()
	if err := c.client.Do(ctx, req, resp); err != nil {
		protocol.ReleaseRequest(req)
		protocol.ReleaseResponse(resp)
		return nil, nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode() != 200 {
		statusCode := resp.StatusCode()
		body := resp.Body()
		protocol.ReleaseRequest(req)
		protocol.ReleaseResponse(resp)
		return nil, nil, decodeChatError(statusCode, body)
	}

	chunkCh := make(chan types.StreamChunk, 10)
	errCh := make(chan error, 1)

	// Read the SSE stream in real time
	go func() {
		defer func() {
			close(chunkCh)
			close(errCh)
			protocol.ReleaseRequest(req)
			protocol.ReleaseResponse(resp)
		}()

		bodyStream := resp.BodyStream()
		if bodyStream == nil {
			errCh <- fmt.Errorf("body stream is nil")
			return
		}

		parseSSEStream(bodyStream, chunkCh, errCh)
	}()

	return chunkCh, errCh, nil
}

// parseSSEStream reads an SSE stream line by line as data arrives
func parseSSEStream(reader io.Reader, chunkCh chan<- types.StreamChunk, errCh chan<- error) {
	scanner := bufio.NewScanner(reader)

	const maxScanTokenSize = 1024 * 1024 // 1MB
	buf := make([]byte, maxScanTokenSize)
	scanner.Buffer(buf, maxScanTokenSize)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}

		if strings.HasPrefix(line, "data: ") {
			dataStr := strings.TrimPrefix(line, "data: ")

			if dataStr == "[DONE]" {
				return
			}

			var chunk types.StreamChunk
			if err := sonic.Unmarshal([]byte(dataStr), &chunk); err != nil {
				errCh <- fmt.Errorf("failed to parse chunk: %w", err)
				return
			}

			select {
			case chunkCh <- chunk:
			case <-time.After(5 * time.Second):
				errCh <- fmt.Errorf("timeout sending chunk to channel")
				return
			}
		}
	}

	if err := scanner.Err(); err != nil {
		if err != io.EOF {
			errCh <- fmt.Errorf("scanner error: %w", err)
		}
	}
}

// decodeChatError turns an error response into a readable error
func decodeChatError(statusCode int, body []byte) error {
	var chatErr types.ChatError
	if err := sonic.Unmarshal(body, &chatErr); err == nil && chatErr.Error != "" {
		if chatErr.RetryAfter > 0 {
			return fmt.Errorf("%s (HTTP %d, retry after %ds)", chatErr.Error, statusCode, chatErr.RetryAfter)
		}
		if len(chatErr.Details) > 0 {
			return fmt.Errorf("%s (HTTP %d): %s", chatErr.Error, statusCode, strings.Join(chatErr.Details, "; "))
		}
		return fmt.Errorf("%s (HTTP %d)", chatErr.Error, statusCode)
	}
	return fmt.Errorf("chat failed with HTTP status: %d, body: %s", statusCode, string(body))
}
