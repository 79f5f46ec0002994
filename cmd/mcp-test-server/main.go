// Command mcp-test-server runs a small MCP server that the mcp backend can be
// pointed at for local runs. It provides a "generate" tool that answers a
// prompt line by line and a "fail" tool that always reports a tool error.
//
// Configuration:
//
//	PORT - Listen port (default: 8081)
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// GenerateInput is the argument object of the "generate" tool.
type GenerateInput struct {
	Prompt string `json:"prompt" jsonschema:"the prompt text to answer"`
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8081"
	}

	httpMux := http.NewServeMux()
	httpMux.Handle("/mcp", mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return newServer()
	}, nil))
	httpMux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok\n"))
	})

	srv := &http.Server{Addr: ":" + port, Handler: httpMux}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("mcp test server starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("mcp test server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}

func newServer() *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{Name: "promptgate-test-mcp", Version: "v1.0.0"},
		nil,
	)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate",
		Description: "Answers a prompt, one content item per line",
	}, generate)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "fail",
		Description: "Always reports a tool error",
	}, func(_ context.Context, _ *mcp.CallToolRequest, _ GenerateInput) (*mcp.CallToolResult, struct{}, error) {
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{&mcp.TextContent{Text: "generation failed"}},
		}, struct{}{}, nil
	})

	return server
}

func generate(_ context.Context, _ *mcp.CallToolRequest, in GenerateInput) (*mcp.CallToolResult, struct{}, error) {
	lines := answer(in.Prompt)
	content := make([]mcp.Content, 0, len(lines))
	for _, l := range lines {
		content = append(content, &mcp.TextContent{Text: l})
	}
	return &mcp.CallToolResult{Content: content}, struct{}{}, nil
}

// answer echoes the prompt after a header line. Empty prompts get a fixed
// reply.
func answer(prompt string) []string {
	if strings.TrimSpace(prompt) == "" {
		return []string{"(empty prompt)"}
	}
	return append([]string{"You said:"}, strings.Split(prompt, "\n")...)
}
