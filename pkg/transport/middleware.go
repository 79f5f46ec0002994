package transport

import (
	"context"
	"log/slog"
	"net/http"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/rhuss/promptgate/pkg/debug"
)

// Middleware wraps an http.Handler to add cross-cutting behavior.
// Middleware is applied in order: the first middleware in the chain is
// the outermost wrapper (executes first on the way in, last on the way out).
type Middleware func(http.Handler) http.Handler

// Chain composes multiple middleware into a single middleware.
// Middleware are applied in order: Chain(a, b, c) produces a(b(c(handler))).
func Chain(middlewares ...Middleware) Middleware {
	return func(next http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// maxRequestIDLen bounds client-supplied request ids.
const maxRequestIDLen = 128

// requestIDKeyType is the context key type for request IDs.
type requestIDKeyType struct{}

// requestIDKey is the context key for storing and retrieving request IDs.
var requestIDKey = requestIDKeyType{}

// RequestIDFromContext extracts the request ID from the context.
// Returns an empty string if no request ID is set.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithRequestID returns a new context with the given request ID.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns middleware that assigns a request ID to each request.
// A well-formed X-Request-ID header from the client is kept; otherwise a new
// UUID is generated. The id is echoed in the response header, stored in the
// context, and attached to a request logger derived from base which is
// placed in the context for everything downstream.
func RequestID(base *slog.Logger) Middleware {
	if base == nil {
		base = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if !validRequestID(id) {
				id = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, id)

			ctx := ContextWithRequestID(r.Context(), id)
			ctx = debug.ContextWithLogger(ctx, base.With("request_id", id))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for _, c := range id {
		if c > unicode.MaxASCII || !unicode.IsPrint(c) {
			return false
		}
	}
	return true
}

// AccessLog returns middleware that emits one structured log entry per
// request on the context logger, with method, path, status, body size and
// duration.
func AccessLog() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := newRecordingWriter(w)

			defer func() {
				rec := recover()

				ctx := r.Context()
				level := slog.LevelInfo
				if rec != nil || rw.status >= http.StatusInternalServerError {
					level = slog.LevelError
				}
				debug.LoggerFromContext(ctx).LogAttrs(ctx, level, "request completed",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Int("status", rw.status),
					slog.Int64("bytes", rw.bytes),
					slog.Duration("duration", time.Since(start)),
					slog.Bool("aborted", rec != nil),
				)
				if rec != nil {
					panic(rec)
				}
			}()

			next.ServeHTTP(rw, r)
		})
	}
}

// Recovery returns middleware that catches panics in the handler. If the
// response was not committed yet, it is answered with 500 and an empty
// body. A committed response is aborted by re-panicking with
// http.ErrAbortHandler. http.ErrAbortHandler itself is passed through.
func Recovery() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := newRecordingWriter(w)
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				ctx := r.Context()
				debug.LoggerFromContext(ctx).ErrorContext(ctx, "panic during dispatch",
					"panic", rec,
					"committed", rw.wroteHeader,
				)
				if rw.wroteHeader {
					panic(http.ErrAbortHandler)
				}
				rw.WriteHeader(http.StatusInternalServerError)
			}()
			next.ServeHTTP(rw, r)
		})
	}
}

// recordingWriter wraps http.ResponseWriter to capture the status code and
// the number of body bytes written.
type recordingWriter struct {
	http.ResponseWriter
	status      int
	bytes       int64
	wroteHeader bool
}

func newRecordingWriter(w http.ResponseWriter) *recordingWriter {
	return &recordingWriter{ResponseWriter: w, status: http.StatusOK}
}

func (w *recordingWriter) WriteHeader(status int) {
	if !w.wroteHeader {
		w.status = status
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *recordingWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	n, err := w.ResponseWriter.Write(b)
	w.bytes += int64(n)
	return n, err
}

// Flush delegates to the underlying writer if it implements http.Flusher.
func (w *recordingWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap returns the underlying ResponseWriter for http.ResponseController.
func (w *recordingWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
