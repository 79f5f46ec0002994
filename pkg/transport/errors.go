package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/rhuss/promptgate/pkg/debug"
	"github.com/rhuss/promptgate/pkg/prompt"
	"github.com/rhuss/promptgate/pkg/stream"
)

var (
	// ErrRouteUnmatched is returned for any request other than the single
	// recognized route, including requests with a malformed path.
	ErrRouteUnmatched = errors.New("route unmatched")

	// ErrBodyConsume is returned when the request body cannot be taken.
	ErrBodyConsume = errors.New("request body cannot be consumed")

	// ErrBackend wraps a failure reported by the generation backend.
	ErrBackend = errors.New("backend failure")
)

var (
	errBodyConsumed = fmt.Errorf("%w: already consumed", ErrBodyConsume)
	errBodyAbsent   = fmt.Errorf("%w: absent", ErrBodyConsume)
)

// StatusFromError maps a dispatch failure to its HTTP status code.
func StatusFromError(err error) int {
	var (
		readErr     *stream.StreamReadError
		encodingErr *prompt.InvalidEncodingError
	)
	switch {
	case errors.Is(err, ErrRouteUnmatched):
		return http.StatusMethodNotAllowed
	case errors.Is(err, ErrBodyConsume),
		errors.As(err, &readErr),
		errors.As(err, &encodingErr):
		return http.StatusBadRequest
	case errors.Is(err, ErrBackend):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// RespondError answers a failed dispatch with an empty body and the status
// derived from err. If the response is already committed the status cannot
// change: the response is marked aborted and the failure logged. It returns
// the status that applies to the response.
func RespondError(ctx context.Context, out *OutgoingResponse, err error) int {
	logger := debug.LoggerFromContext(ctx)

	if out.Committed() {
		out.Abort()
		logger.WarnContext(ctx, "dispatch failed after commit, aborting response",
			"status", out.Status(), "bytes", out.Written(), "error", err)
		return out.Status()
	}

	status := StatusFromError(err)
	level := slog.LevelDebug
	if status >= http.StatusInternalServerError {
		level = slog.LevelWarn
	}
	logger.Log(ctx, level, "dispatch rejected", "status", status, "error", err)

	if emitErr := EmitEmpty(ctx, out, status); emitErr != nil {
		logger.WarnContext(ctx, "writing error response failed", "status", status, "error", emitErr)
	}
	return status
}
