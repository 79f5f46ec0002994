package transport

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rhuss/promptgate/pkg/backend"
	"github.com/rhuss/promptgate/pkg/debug"
	"github.com/rhuss/promptgate/pkg/observability"
	"github.com/rhuss/promptgate/pkg/prompt"
	"github.com/rhuss/promptgate/pkg/stream"
)

// Mode selects how the backend answer is produced and emitted.
type Mode string

const (
	// ModeBuffered waits for the full answer and emits it in chunks.
	ModeBuffered Mode = "buffered"
	// ModeStreaming lets the backend write into the committed response.
	ModeStreaming Mode = "streaming"
)

// FailureMode selects how a buffered backend failure is reported.
type FailureMode string

const (
	// FailureStatus answers a backend failure with 502 and an empty body.
	FailureStatus FailureMode = "status"
	// FailureInband answers a backend failure with 200 and the error text as
	// the body.
	FailureInband FailureMode = "inband"
)

// Dispatcher handles the single prompt route. It implements http.Handler.
type Dispatcher struct {
	router  *Router
	backend backend.Backend
	mode    Mode
	failure FailureMode

	// produce is the response production strategy chosen by mode.
	produce func(ctx context.Context, text string) (Body, error)
}

var _ http.Handler = (*Dispatcher)(nil)

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithPath sets the route path. The default is DefaultPath.
func WithPath(path string) Option {
	return func(d *Dispatcher) {
		d.router = NewRouter(path)
	}
}

// WithMode sets the response production mode. The default is ModeBuffered.
func WithMode(mode Mode) Option {
	return func(d *Dispatcher) {
		d.mode = mode
	}
}

// WithFailureMode sets how buffered backend failures are reported. The
// default is FailureStatus.
func WithFailureMode(mode FailureMode) Option {
	return func(d *Dispatcher) {
		d.failure = mode
	}
}

// NewDispatcher creates a Dispatcher answering prompts with b.
func NewDispatcher(b backend.Backend, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		router:  NewRouter(DefaultPath),
		backend: b,
		mode:    ModeBuffered,
		failure: FailureStatus,
	}
	for _, opt := range opts {
		opt(d)
	}

	if d.mode == ModeStreaming {
		d.produce = d.streamed
	} else {
		d.mode = ModeBuffered
		d.produce = d.buffered
	}
	return d
}

// Mode returns the response production mode.
func (d *Dispatcher) Mode() Mode {
	return d.mode
}

// Path returns the route path.
func (d *Dispatcher) Path() string {
	return d.router.Path
}

// ServeHTTP dispatches one request. A response that failed after its status
// was sent is aborted with http.ErrAbortHandler, so the client sees a broken
// connection instead of a truncated body that looks complete.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	out := NewOutgoingResponse(w)
	if err := d.Dispatch(r.Context(), NewIncomingRequest(r), out); err != nil && out.Aborted() {
		panic(http.ErrAbortHandler)
	}
}

// Dispatch runs the full pipeline for one request: route, drain the body,
// extract the prompt, call the backend and emit the answer. Every failure
// is handed to RespondError: before commit it is answered with an empty
// body, after commit out is left aborted and the caller must not let the
// response end normally.
func (d *Dispatcher) Dispatch(ctx context.Context, in *IncomingRequest, out *OutgoingResponse) error {
	logger := debug.LoggerFromContext(ctx)

	path, ok := in.PathWithQuery()
	decision := d.router.Decide(in.Method, path, ok)
	logger.DebugContext(ctx, "request received",
		"method", in.Method,
		"path", path,
		"authority", in.Authority,
		"decision", decision.String(),
	)
	debug.Log(ctx, "transport", "request headers", "headers", in.Header)
	observability.RouteDecisionsTotal.WithLabelValues(decision.String()).Inc()

	if decision != Matched {
		return d.fail(ctx, out, fmt.Errorf("%w: %s %q (%s)", ErrRouteUnmatched, in.Method, path, decision))
	}

	src, err := in.Consume()
	if err != nil {
		return d.fail(ctx, out, err)
	}
	buf, err := stream.ReadAll(src)
	if err != nil {
		return d.fail(ctx, out, err)
	}
	observability.RequestBodyBytes.Observe(float64(len(buf)))

	text, err := prompt.Extract(buf)
	if err != nil {
		return d.fail(ctx, out, err)
	}
	logger.DebugContext(ctx, "prompt extracted", "bytes", len(buf))
	if debug.TraceIsEnabled(ctx, "transport") {
		debug.Trace(ctx, "transport", "prompt text", "prompt", text)
	}

	body, err := d.produce(ctx, text)
	if err != nil {
		return d.fail(ctx, out, err)
	}

	if err := Emit(ctx, out, body); err != nil {
		return d.fail(ctx, out, err)
	}
	logger.DebugContext(ctx, "response sent",
		"mode", string(d.mode),
		"status", out.Status(),
		"bytes", out.Written(),
	)
	return nil
}

func (d *Dispatcher) fail(ctx context.Context, out *OutgoingResponse, err error) error {
	RespondError(ctx, out, err)
	return err
}

// buffered asks the backend for the full answer.
func (d *Dispatcher) buffered(ctx context.Context, text string) (Body, error) {
	start := time.Now()
	answer, err := d.backend.Generate(ctx, text)
	d.observeBackend(ctx, start, err)

	if err != nil {
		if d.failure == FailureInband {
			return Buffered{Text: err.Error()}, nil
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrBackend, d.backend.Name(), err)
	}
	return Buffered{Text: answer}, nil
}

// streamed defers the backend call until the response is committed.
func (d *Dispatcher) streamed(_ context.Context, text string) (Body, error) {
	return Streamed{Produce: func(ctx context.Context, sink backend.Sink) error {
		start := time.Now()
		err := d.backend.GenerateStream(ctx, text, sink)
		d.observeBackend(ctx, start, err)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrBackend, d.backend.Name(), err)
		}
		return nil
	}}, nil
}

func (d *Dispatcher) observeBackend(ctx context.Context, start time.Time, err error) {
	elapsed := time.Since(start)
	status := "ok"
	if err != nil {
		status = "error"
	}

	name := d.backend.Name()
	observability.BackendRequestsTotal.WithLabelValues(name, string(d.mode), status).Inc()
	observability.BackendLatency.WithLabelValues(name, string(d.mode)).Observe(elapsed.Seconds())

	debug.Log(ctx, "backend", "backend call finished",
		"backend", name,
		"mode", string(d.mode),
		"duration", elapsed,
		"error", err,
	)
}
