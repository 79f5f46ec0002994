package transport

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/google/go-cmp/cmp"

	"github.com/rhuss/promptgate/pkg/backend"
	"github.com/rhuss/promptgate/pkg/debug"
	"github.com/rhuss/promptgate/pkg/observability"
	"github.com/rhuss/promptgate/pkg/prompt"
	"github.com/rhuss/promptgate/pkg/stream"
)

// serve runs one request through d and returns the recorder.
func serve(d http.Handler, method, target string, body io.Reader) *writeRecorder {
	rec := newWriteRecorder()
	d.ServeHTTP(rec, httptest.NewRequest(method, target, body))
	return rec
}

func TestDispatchEchoesPrompt(t *testing.T) {
	d := NewDispatcher(backend.NewEcho())

	rec := serve(d, http.MethodPost, "/openai-proxy", strings.NewReader("hello"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "hello" {
		t.Errorf("body = %q, want %q", rec.Body.String(), "hello")
	}
	if got := rec.Header().Get("Content-Type"); got != "text/plain" {
		t.Errorf("Content-Type = %q", got)
	}
}

func TestDispatchRejectsOtherRoutes(t *testing.T) {
	tests := []struct {
		method string
		target string
	}{
		{http.MethodGet, "/openai-proxy"},
		{http.MethodPut, "/openai-proxy"},
		{http.MethodDelete, "/openai-proxy"},
		{http.MethodPatch, "/openai-proxy"},
		{http.MethodOptions, "/openai-proxy"},
		{http.MethodHead, "/openai-proxy"},
		{http.MethodPost, "/"},
		{http.MethodPost, "/v1/chat/completions"},
		{http.MethodPost, "/openai-proxy/"},
		{http.MethodPost, "/openai-proxy?stream=true"},
		{http.MethodGet, "/anything"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			be := &stubBackend{answer: "never"}
			d := NewDispatcher(be)

			rec := serve(d, tt.method, tt.target, strings.NewReader("hello"))

			if rec.Code != http.StatusMethodNotAllowed {
				t.Errorf("status = %d, want 405", rec.Code)
			}
			if rec.Body.Len() != 0 {
				t.Errorf("body = %q, want empty", rec.Body.String())
			}
			if len(be.calls()) != 0 {
				t.Error("backend must not be called")
			}
		})
	}
}

func TestDispatchMalformedPath(t *testing.T) {
	before := counterValue(t, observability.RouteDecisionsTotal, "malformed")

	d := NewDispatcher(backend.NewEcho())
	req := httptest.NewRequest(http.MethodPost, "/openai-proxy", strings.NewReader("hello"))
	req.URL.Path = ""
	rec := newWriteRecorder()

	err := d.Dispatch(context.Background(), NewIncomingRequest(req), NewOutgoingResponse(rec))

	if !errors.Is(err, ErrRouteUnmatched) {
		t.Errorf("expected ErrRouteUnmatched, got %v", err)
	}
	if rec.Code != http.StatusMethodNotAllowed || rec.Body.Len() != 0 {
		t.Errorf("got %d %q, want 405 with empty body", rec.Code, rec.Body.String())
	}
	if after := counterValue(t, observability.RouteDecisionsTotal, "malformed"); after-before != 1 {
		t.Errorf("malformed decisions delta = %f, want 1", after-before)
	}
}

func TestDispatchRejectsInvalidUTF8(t *testing.T) {
	bodies := [][]byte{
		{0xFF, 0xFE},
		[]byte("valid then \xc3"),
		{0xED, 0xA0, 0x80},
	}

	for _, b := range bodies {
		be := &stubBackend{answer: "never"}
		d := NewDispatcher(be)
		rec := newWriteRecorder()
		req := httptest.NewRequest(http.MethodPost, "/openai-proxy", bytes.NewReader(b))

		err := d.Dispatch(context.Background(), NewIncomingRequest(req), NewOutgoingResponse(rec))

		var encErr *prompt.InvalidEncodingError
		if !errors.As(err, &encErr) {
			t.Errorf("body %x: expected *prompt.InvalidEncodingError, got %v", b, err)
		}
		if rec.Code != http.StatusBadRequest || rec.Body.Len() != 0 {
			t.Errorf("body %x: got %d %q, want 400 with empty body", b, rec.Code, rec.Body.String())
		}
		if len(be.calls()) != 0 {
			t.Errorf("body %x: backend must not be called", b)
		}
	}
}

func TestDispatchLargeBody(t *testing.T) {
	payload := make([]byte, 10000)
	for i := range payload {
		payload[i] = byte('a' + i%26)
	}
	be := &stubBackend{answer: string(payload)}
	d := NewDispatcher(be)

	rec := serve(d, http.MethodPost, "/openai-proxy", iotest.HalfReader(bytes.NewReader(payload)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	calls := be.calls()
	if len(calls) != 1 || calls[0] != string(payload) {
		t.Fatal("backend did not receive the full 10000-byte prompt")
	}
	if diff := cmp.Diff([]int{4096, 4096, 1808}, rec.writes); diff != "" {
		t.Errorf("write sizes mismatch (-want +got):\n%s", diff)
	}
	if !bytes.Equal(rec.Body.Bytes(), payload) {
		t.Error("response body does not reconstruct the answer")
	}
}

func TestDispatchEmptyBody(t *testing.T) {
	be := &stubBackend{answer: ""}
	d := NewDispatcher(be)

	rec := serve(d, http.MethodPost, "/openai-proxy", nil)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("body = %q, want empty", rec.Body.String())
	}
	if diff := cmp.Diff([]string{""}, be.calls()); diff != "" {
		t.Errorf("prompts mismatch (-want +got):\n%s", diff)
	}
}

func TestDispatchBodyReadFailure(t *testing.T) {
	be := &stubBackend{answer: "never"}
	d := NewDispatcher(be)
	body := io.MultiReader(strings.NewReader("par"), iotest.ErrReader(errors.New("connection reset")))
	req := httptest.NewRequest(http.MethodPost, "/openai-proxy", body)
	rec := newWriteRecorder()

	err := d.Dispatch(context.Background(), NewIncomingRequest(req), NewOutgoingResponse(rec))

	var readErr *stream.StreamReadError
	if !errors.As(err, &readErr) {
		t.Errorf("expected *stream.StreamReadError, got %v", err)
	}
	if rec.Code != http.StatusBadRequest || rec.Body.Len() != 0 {
		t.Errorf("got %d %q, want 400 with empty body", rec.Code, rec.Body.String())
	}
	if len(be.calls()) != 0 {
		t.Error("backend must not be called")
	}
}

func TestDispatchBodyAlreadyConsumed(t *testing.T) {
	d := NewDispatcher(backend.NewEcho())
	req := httptest.NewRequest(http.MethodPost, "/openai-proxy", strings.NewReader("hello"))
	in := NewIncomingRequest(req)
	if _, err := in.Consume(); err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	rec := newWriteRecorder()

	err := d.Dispatch(context.Background(), in, NewOutgoingResponse(rec))

	if !errors.Is(err, ErrBodyConsume) {
		t.Errorf("expected ErrBodyConsume, got %v", err)
	}
	if rec.Code != http.StatusBadRequest || rec.Body.Len() != 0 {
		t.Errorf("got %d %q, want 400 with empty body", rec.Code, rec.Body.String())
	}
}

func TestDispatchBackendFailureStatus(t *testing.T) {
	be := &stubBackend{err: errors.New("model overloaded")}
	d := NewDispatcher(be)
	rec := newWriteRecorder()
	req := httptest.NewRequest(http.MethodPost, "/openai-proxy", strings.NewReader("hi"))

	err := d.Dispatch(context.Background(), NewIncomingRequest(req), NewOutgoingResponse(rec))

	if !errors.Is(err, ErrBackend) {
		t.Errorf("expected ErrBackend, got %v", err)
	}
	if rec.Code != http.StatusBadGateway || rec.Body.Len() != 0 {
		t.Errorf("got %d %q, want 502 with empty body", rec.Code, rec.Body.String())
	}
}

func TestDispatchBackendFailureInband(t *testing.T) {
	be := &stubBackend{err: errors.New("model overloaded")}
	d := NewDispatcher(be, WithFailureMode(FailureInband))

	rec := serve(d, http.MethodPost, "/openai-proxy", strings.NewReader("hi"))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "model overloaded" {
		t.Errorf("body = %q, want the backend error text", rec.Body.String())
	}
}

func TestDispatchStreaming(t *testing.T) {
	be := &stubBackend{chunks: []string{"hel", "lo ", "world"}}
	d := NewDispatcher(be, WithMode(ModeStreaming))
	if d.Mode() != ModeStreaming {
		t.Fatalf("Mode() = %q", d.Mode())
	}

	rec := serve(d, http.MethodPost, "/openai-proxy", strings.NewReader("greet"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "text/plain; charset=utf-8" {
		t.Errorf("Content-Type = %q", got)
	}
	if rec.Body.String() != "hello world" {
		t.Errorf("body = %q", rec.Body.String())
	}
	if diff := cmp.Diff([]int{3, 3, 5}, rec.writes); diff != "" {
		t.Errorf("chunk sizes are not the backend's (-want +got):\n%s", diff)
	}
	if rec.flushes < 3 {
		t.Errorf("flushes = %d, want at least 3", rec.flushes)
	}
	if diff := cmp.Diff([]string{"greet"}, be.calls()); diff != "" {
		t.Errorf("prompts mismatch (-want +got):\n%s", diff)
	}
}

func TestDispatchStreamingBackendFailureKeepsStatus(t *testing.T) {
	be := &stubBackend{chunks: []string{"partial"}, err: errors.New("stream cut")}
	d := NewDispatcher(be, WithMode(ModeStreaming))
	rec := newWriteRecorder()
	req := httptest.NewRequest(http.MethodPost, "/openai-proxy", strings.NewReader("x"))

	out := NewOutgoingResponse(rec)

	err := d.Dispatch(context.Background(), NewIncomingRequest(req), out)

	if !errors.Is(err, ErrBackend) {
		t.Errorf("expected ErrBackend, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want the committed 200", rec.Code)
	}
	if rec.Body.String() != "partial" {
		t.Errorf("body = %q", rec.Body.String())
	}
	if !out.Aborted() {
		t.Error("a failure after commit must abort the response")
	}
}

// expectAbort runs fn and fails the test unless it panics with
// http.ErrAbortHandler.
func expectAbort(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		if p := recover(); p != http.ErrAbortHandler {
			t.Errorf("recovered %v, want http.ErrAbortHandler", p)
		}
	}()
	fn()
}

func TestServeHTTPAbortsFailedStream(t *testing.T) {
	be := &stubBackend{chunks: []string{"partial"}, err: errors.New("stream cut")}
	d := NewDispatcher(be, WithMode(ModeStreaming))

	expectAbort(t, func() {
		serve(d, http.MethodPost, "/openai-proxy", strings.NewReader("x"))
	})
}

func TestServeHTTPAbortsFailedBufferedWrite(t *testing.T) {
	d := NewDispatcher(backend.NewEcho())
	rec := newWriteRecorder()
	rec.failAt = 1

	expectAbort(t, func() {
		d.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/openai-proxy",
			strings.NewReader(strings.Repeat("z", 3*4096))))
	})
	if rec.Code != http.StatusOK || len(rec.writes) != 1 {
		t.Errorf("status = %d, writes = %v", rec.Code, rec.writes)
	}
}

func TestServeHTTPDoesNotAbortRejections(t *testing.T) {
	d := NewDispatcher(&stubBackend{err: errors.New("down")})

	rec := serve(d, http.MethodPost, "/openai-proxy", strings.NewReader("x"))

	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}

func TestFailedStreamBreaksClientRead(t *testing.T) {
	be := &stubBackend{chunks: []string{"partial"}, err: errors.New("upstream died")}
	srv := httptest.NewServer(NewDispatcher(be, WithMode(ModeStreaming)))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/openai-proxy", "text/plain", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want the committed 200", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err == nil {
		t.Fatalf("read %q without error, want a broken body", body)
	}
	if string(body) != "partial" {
		t.Errorf("body = %q, want the bytes sent before the failure", body)
	}
}

func TestDispatchStreamingStillValidates(t *testing.T) {
	be := &stubBackend{chunks: []string{"never"}}
	d := NewDispatcher(be, WithMode(ModeStreaming))

	rec := serve(d, http.MethodPost, "/openai-proxy", bytes.NewReader([]byte{0xFF, 0xFE}))

	if rec.Code != http.StatusBadRequest || rec.Body.Len() != 0 {
		t.Errorf("got %d %q, want 400 with empty body", rec.Code, rec.Body.String())
	}
	if len(be.calls()) != 0 {
		t.Error("backend must not be called")
	}
}

func TestDispatchNonASCIIPath(t *testing.T) {
	d := NewDispatcher(backend.NewEcho(), WithPath("/über"))

	rec := serve(d, http.MethodPost, "/%C3%BCber", strings.NewReader("grüß"))

	if rec.Code != http.StatusOK || rec.Body.String() != "grüß" {
		t.Errorf("got %d %q, want 200 echoing the prompt", rec.Code, rec.Body.String())
	}
}

func TestDispatchCustomPath(t *testing.T) {
	d := NewDispatcher(backend.NewEcho(), WithPath("/generate"))
	if d.Path() != "/generate" {
		t.Fatalf("Path() = %q", d.Path())
	}

	if rec := serve(d, http.MethodPost, "/generate", strings.NewReader("ok")); rec.Code != http.StatusOK {
		t.Errorf("custom path: status = %d", rec.Code)
	}
	if rec := serve(d, http.MethodPost, "/openai-proxy", strings.NewReader("ok")); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("default path: status = %d, want 405", rec.Code)
	}
}

func TestDispatchLogsThroughContextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	d := NewDispatcher(backend.NewEcho())
	req := httptest.NewRequest(http.MethodPost, "http://gate.local/openai-proxy", strings.NewReader("hello"))
	req = req.WithContext(debug.ContextWithLogger(req.Context(), logger))
	d.ServeHTTP(newWriteRecorder(), req)

	out := buf.String()
	for _, want := range []string{
		"request received",
		"method=POST",
		"path=/openai-proxy",
		"authority=gate.local",
		"decision=matched",
		"prompt extracted",
		"bytes=5",
		"response sent",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "prompt=hello") {
		t.Error("prompt text must only be logged at trace level")
	}
}

func TestDispatchWithoutLoggerIsSilent(t *testing.T) {
	// No logger in the context: dispatch must still work.
	d := NewDispatcher(backend.NewEcho())
	rec := serve(d, http.MethodPost, "/openai-proxy", strings.NewReader("quiet"))
	if rec.Code != http.StatusOK || rec.Body.String() != "quiet" {
		t.Errorf("got %d %q", rec.Code, rec.Body.String())
	}
}

func TestDispatchRecordsBackendMetrics(t *testing.T) {
	before := counterValue(t, observability.BackendRequestsTotal, "stub", "buffered", "error")

	d := NewDispatcher(&stubBackend{err: errors.New("down")})
	serve(d, http.MethodPost, "/openai-proxy", strings.NewReader("x"))

	after := counterValue(t, observability.BackendRequestsTotal, "stub", "buffered", "error")
	if after-before != 1 {
		t.Errorf("backend error count delta = %f, want 1", after-before)
	}
}
