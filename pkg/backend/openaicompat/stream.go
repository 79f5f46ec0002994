package openaicompat

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/rhuss/promptgate/pkg/backend"
	"github.com/rhuss/promptgate/pkg/debug"
)

// maxLineSize bounds a single SSE line.
const maxLineSize = 1 << 20

// StreamError is an error event sent by the backend inside the stream.
type StreamError struct {
	Message string
}

func (e *StreamError) Error() string {
	return "backend stream error: " + e.Message
}

// ParseSSEStream reads Chat Completions SSE chunks from body and writes the
// text of every content delta to sink, flushing after each write. It returns
// the number of bytes written.
//
// SSE format expected:
//
//	data: {"id":"...","choices":[{"delta":{"content":"..."}}]}\n
//	\n
//	data: [DONE]\n
//	\n
//
// Malformed chunks are logged and skipped. An in-stream error object ends
// parsing with a *StreamError.
func ParseSSEStream(ctx context.Context, body io.Reader, sink backend.Sink) (int64, error) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var written int64
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		line := scanner.Text()

		// Lines that are not data fields are ignored (empty lines,
		// comments starting with ":", event names).
		payload, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		payload = strings.TrimSpace(payload)

		if payload == "[DONE]" {
			return written, nil
		}

		if !gjson.Valid(payload) {
			debug.LoggerFromContext(ctx).Warn("skipping malformed SSE chunk",
				"data", debug.Truncate(payload, 200),
			)
			continue
		}

		if msg := gjson.Get(payload, "error.message"); msg.Exists() {
			return written, &StreamError{Message: msg.String()}
		}

		delta := gjson.Get(payload, "choices.0.delta.content")
		if delta.Type != gjson.String || delta.Str == "" {
			continue
		}

		n, err := io.WriteString(sink, delta.Str)
		written += int64(n)
		if err != nil {
			return written, err
		}
		if err := sink.Flush(); err != nil {
			return written, err
		}
	}

	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return written, ctx.Err()
		}
		return written, fmt.Errorf("SSE stream read error: %w", err)
	}
	return written, nil
}
