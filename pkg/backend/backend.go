package backend

import (
	"context"
	"io"
)

// Sink is the writable response body handed to a streaming backend. Each
// Write goes to the client in order; Flush pushes buffered bytes out.
type Sink interface {
	io.Writer
	Flush() error
}

// Generator produces a complete answer for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// StreamGenerator writes an answer for a prompt into sink as it is produced.
// Chunk sizing is up to the implementation.
type StreamGenerator interface {
	GenerateStream(ctx context.Context, prompt string, sink Sink) error
}

// Backend is implemented by every generation backend.
//
// Implementations must be safe for concurrent use by multiple goroutines.
type Backend interface {
	// Name returns the backend identifier (e.g., "echo", "openai", "mcp").
	Name() string

	Generator
	StreamGenerator

	// Close releases backend resources (HTTP clients, sessions).
	Close() error
}
