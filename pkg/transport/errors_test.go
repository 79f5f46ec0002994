package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/rhuss/promptgate/pkg/prompt"
	"github.com/rhuss/promptgate/pkg/stream"
)

func TestStatusFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"route unmatched", ErrRouteUnmatched, http.StatusMethodNotAllowed},
		{"wrapped route unmatched", fmt.Errorf("%w: GET /", ErrRouteUnmatched), http.StatusMethodNotAllowed},
		{"body consumed", errBodyConsumed, http.StatusBadRequest},
		{"body absent", errBodyAbsent, http.StatusBadRequest},
		{"stream read", &stream.StreamReadError{Err: errors.New("reset")}, http.StatusBadRequest},
		{"invalid encoding", &prompt.InvalidEncodingError{Offset: 3}, http.StatusBadRequest},
		{"backend", fmt.Errorf("%w: echo: boom", ErrBackend), http.StatusBadGateway},
		{"unknown", errors.New("something else"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusFromError(tt.err); got != tt.want {
				t.Errorf("StatusFromError(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestRespondErrorWritesEmptyBody(t *testing.T) {
	rec := newWriteRecorder()
	out := NewOutgoingResponse(rec)

	status := RespondError(context.Background(), out, ErrRouteUnmatched)

	if status != http.StatusMethodNotAllowed || rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, recorded %d, want 405", status, rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("body = %q, want empty", rec.Body.String())
	}
}

func TestRespondErrorAfterCommitKeepsStatus(t *testing.T) {
	rec := newWriteRecorder()
	out := NewOutgoingResponse(rec)
	body, _ := out.Commit(http.StatusOK, nil)
	body.Write([]byte("partial"))

	status := RespondError(context.Background(), out, fmt.Errorf("%w: late", ErrBackend))

	if status != http.StatusOK || rec.Code != http.StatusOK {
		t.Errorf("status = %d, recorded %d, want the committed 200", status, rec.Code)
	}
	if rec.Body.String() != "partial" {
		t.Errorf("body = %q", rec.Body.String())
	}
}
