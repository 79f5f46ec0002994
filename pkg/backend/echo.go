package backend

import (
	"context"

	"github.com/rhuss/promptgate/pkg/stream"
)

// Echo answers every prompt with the prompt itself.
type Echo struct {
	// ChunkSize bounds each streamed write. Zero selects
	// stream.WriteChunkSize.
	ChunkSize int
}

var _ Backend = (*Echo)(nil)

// NewEcho returns an Echo backend.
func NewEcho() *Echo {
	return &Echo{}
}

// Name returns "echo".
func (e *Echo) Name() string {
	return "echo"
}

// Generate returns prompt.
func (e *Echo) Generate(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return prompt, nil
}

// GenerateStream writes prompt to sink in chunks, flushing after each one.
func (e *Echo) GenerateStream(ctx context.Context, prompt string, sink Sink) error {
	for chunk := range stream.Split([]byte(prompt), e.ChunkSize) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := sink.Write(chunk); err != nil {
			return err
		}
		if err := sink.Flush(); err != nil {
			return err
		}
	}
	return nil
}

// Close is a no-op.
func (e *Echo) Close() error {
	return nil
}
