package mcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rhuss/promptgate/pkg/backend"
)

// ErrNotConnected is returned when a tool call is attempted before Connect.
var ErrNotConnected = errors.New("MCP client not connected")

// ToolError is returned when the tool result is flagged as an error.
type ToolError struct {
	Tool    string
	Message string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("MCP tool %q failed: %s", e.Tool, e.Message)
}

// Client wraps an MCP SDK Client and ClientSession for a single server.
type Client struct {
	cfg     Config
	client  *mcp.Client
	session *mcp.ClientSession

	mu sync.Mutex
}

var _ backend.Backend = (*Client)(nil)

// New creates a new Client for the given configuration. Call Connect to
// establish the session.
func New(cfg Config) (*Client, error) {
	if cfg.Tool == "" {
		return nil, errors.New("mcp: Tool is required")
	}
	if cfg.Argument == "" {
		cfg.Argument = "prompt"
	}
	if cfg.Name == "" {
		cfg.Name = cfg.URL
	}
	return &Client{cfg: cfg}, nil
}

// Connect establishes the MCP session using a transport created from the
// configuration.
func (c *Client) Connect(ctx context.Context) error {
	return c.ConnectWithTransport(ctx, nil)
}

// ConnectWithTransport establishes the MCP session using the given
// transport. If transport is nil, one is created from the configuration.
func (c *Client) ConnectWithTransport(ctx context.Context, transport mcp.Transport) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.client = mcp.NewClient(
		&mcp.Implementation{
			Name:    "promptgate",
			Version: "1.0.0",
		},
		&mcp.ClientOptions{
			Capabilities: &mcp.ClientCapabilities{},
		},
	)

	if transport == nil {
		t, err := c.createTransport()
		if err != nil {
			return fmt.Errorf("creating transport for %q: %w", c.cfg.Name, err)
		}
		transport = t
	}

	session, err := c.client.Connect(ctx, transport, nil)
	if err != nil {
		return fmt.Errorf("connecting to MCP server %q: %w", c.cfg.Name, err)
	}
	c.session = session
	return nil
}

// createTransport creates an MCP transport based on the configuration.
func (c *Client) createTransport() (mcp.Transport, error) {
	var httpClient *http.Client
	if len(c.cfg.Headers) > 0 {
		httpClient = &http.Client{
			Transport: &headerTransport{
				base:    http.DefaultTransport,
				headers: c.cfg.Headers,
			},
		}
	}

	switch c.cfg.Transport {
	case "sse":
		transport := &mcp.SSEClientTransport{
			Endpoint: c.cfg.URL,
		}
		if httpClient != nil {
			transport.HTTPClient = httpClient
		}
		return transport, nil

	case "streamable-http", "":
		transport := &mcp.StreamableClientTransport{
			Endpoint: c.cfg.URL,
		}
		if httpClient != nil {
			transport.HTTPClient = httpClient
		}
		return transport, nil

	default:
		return nil, fmt.Errorf("unsupported transport type %q", c.cfg.Transport)
	}
}

// headerTransport is an http.RoundTripper that adds static headers to every
// request.
type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	return t.base.RoundTrip(req)
}

// Name returns "mcp".
func (c *Client) Name() string {
	return "mcp"
}

// Generate calls the tool and returns its text content joined by newlines.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	texts, err := c.call(ctx, prompt)
	if err != nil {
		return "", err
	}
	return strings.Join(texts, "\n"), nil
}

// GenerateStream calls the tool and writes each text content item to sink,
// flushing after every item.
func (c *Client) GenerateStream(ctx context.Context, prompt string, sink backend.Sink) error {
	texts, err := c.call(ctx, prompt)
	if err != nil {
		return err
	}
	for _, text := range texts {
		if _, err := io.WriteString(sink, text); err != nil {
			return err
		}
		if err := sink.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) call(ctx context.Context, prompt string) ([]string, error) {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()

	if session == nil {
		return nil, fmt.Errorf("%q: %w", c.cfg.Name, ErrNotConnected)
	}

	result, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      c.cfg.Tool,
		Arguments: map[string]any{c.cfg.Argument: prompt},
	})
	if err != nil {
		return nil, fmt.Errorf("MCP tool call %q: %w", c.cfg.Tool, err)
	}

	texts := textContent(result)
	if result.IsError {
		return nil, &ToolError{Tool: c.cfg.Tool, Message: strings.Join(texts, "\n")}
	}
	return texts, nil
}

// textContent extracts the text items of a tool result, in order.
func textContent(result *mcp.CallToolResult) []string {
	var texts []string
	for _, content := range result.Content {
		if tc, ok := content.(*mcp.TextContent); ok {
			texts = append(texts, tc.Text)
		}
	}
	return texts
}

// Close closes the MCP session.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil {
		err := c.session.Close()
		c.session = nil
		return err
	}
	return nil
}
