package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rhuss/promptgate/pkg/backend"
)

// Config holds configuration for the Chat Completions backend.
type Config struct {
	// BaseURL is the server URL (e.g., "http://localhost:8000").
	BaseURL string

	// APIKey is sent as a bearer token when set.
	APIKey string

	// Model is the model name sent with every request. Empty lets the
	// server pick its default.
	Model string

	// SystemPrompt, when set, is sent as a system message before the prompt.
	SystemPrompt string

	// Timeout for non-streaming requests. Defaults to 120s. Streaming
	// requests are bounded by the request context only.
	Timeout time.Duration
}

// Client performs requests against an OpenAI-compatible Chat Completions
// server.
type Client struct {
	cfg          Config
	httpClient   *http.Client
	streamClient *http.Client
}

var _ backend.Backend = (*Client)(nil)

// New creates a new Client. Returns an error if the configuration is invalid.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("openaicompat: BaseURL is required")
	}

	// Normalize: remove trailing slash from base URL.
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()

	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		// A stream can legitimately outlast any fixed timeout; the request
		// context controls its lifetime instead.
		streamClient: &http.Client{
			Transport: transport,
		},
	}, nil
}

// Name returns "openai".
func (c *Client) Name() string {
	return "openai"
}

// Generate performs a non-streaming completion and returns the content of
// the first choice.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	httpReq, err := c.newRequest(ctx, prompt, false)
	if err != nil {
		return "", err
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", MapNetworkError(err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return "", MapHTTPError(httpResp)
	}

	var chatResp ChatCompletionResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("failed to parse backend response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", errors.New("backend response has no choices")
	}

	return chatResp.Choices[0].Message.Content, nil
}

// GenerateStream performs a streaming completion and writes each content
// delta to sink, flushing after every write.
func (c *Client) GenerateStream(ctx context.Context, prompt string, sink backend.Sink) error {
	httpReq, err := c.newRequest(ctx, prompt, true)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	httpResp, err := c.streamClient.Do(httpReq)
	if err != nil {
		return MapNetworkError(err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return MapHTTPError(httpResp)
	}

	_, err = ParseSSEStream(ctx, httpResp.Body, sink)
	return err
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *Client) newRequest(ctx context.Context, prompt string, stream bool) (*http.Request, error) {
	var messages []ChatMessage
	if c.cfg.SystemPrompt != "" {
		messages = append(messages, ChatMessage{Role: "system", Content: c.cfg.SystemPrompt})
	}
	messages = append(messages, ChatMessage{Role: "user", Content: prompt})

	body, err := json.Marshal(ChatCompletionRequest{
		Model:    c.cfg.Model,
		Messages: messages,
		N:        1,
		Stream:   stream,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.cfg.BaseURL + "/v1/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	return httpReq, nil
}
