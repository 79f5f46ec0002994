package main

import (
	"context"
	"fmt"

	"github.com/rhuss/promptgate/pkg/backend"
	"github.com/rhuss/promptgate/pkg/backend/mcp"
	"github.com/rhuss/promptgate/pkg/backend/openaicompat"
	"github.com/rhuss/promptgate/pkg/config"
)

// newBackend creates the generation backend selected by cfg.Type. The mcp
// backend connects before returning.
func newBackend(ctx context.Context, cfg config.BackendConfig) (backend.Backend, error) {
	switch cfg.Type {
	case "echo", "":
		return backend.NewEcho(), nil

	case "openai":
		client, err := openaicompat.New(openaicompat.Config{
			BaseURL:      cfg.URL,
			APIKey:       cfg.APIKey,
			Model:        cfg.Model,
			SystemPrompt: cfg.SystemPrompt,
			Timeout:      cfg.Timeout,
		})
		if err != nil {
			return nil, err
		}
		return client, nil

	case "mcp":
		client, err := mcp.New(mcp.Config{
			Name:      cfg.MCP.Name,
			Transport: cfg.MCP.Transport,
			URL:       cfg.MCP.URL,
			Tool:      cfg.MCP.Tool,
			Argument:  cfg.MCP.Argument,
			Headers:   cfg.MCP.Headers,
		})
		if err != nil {
			return nil, err
		}
		if err := client.Connect(ctx); err != nil {
			return nil, err
		}
		return client, nil

	default:
		return nil, fmt.Errorf("unknown backend type %q", cfg.Type)
	}
}
