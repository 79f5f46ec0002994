package http

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rhuss/promptgate/pkg/observability"
	"github.com/rhuss/promptgate/pkg/transport"
)

// Server wraps an http.Server around the dispatcher and manages the full
// lifecycle including startup and graceful shutdown.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	config     ServerConfig
	logger     *slog.Logger
}

// ServerConfig holds configuration for the transport server.
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// HealthPath answers GET with "ok". Empty disables it.
	HealthPath string
	// MetricsPath serves Prometheus metrics on GET. Empty disables it.
	MetricsPath string
}

// DefaultServerConfig returns a ServerConfig with sensible defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:            ":8080",
		ReadTimeout:     30 * time.Second,
		ShutdownTimeout: 30 * time.Second,
		HealthPath:      "/healthz",
		MetricsPath:     "/metrics",
	}
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithAddr sets the listen address.
func WithAddr(addr string) ServerOption {
	return func(s *Server) { s.config.Addr = addr }
}

// WithReadTimeout sets the maximum duration for reading a request.
func WithReadTimeout(d time.Duration) ServerOption {
	return func(s *Server) { s.config.ReadTimeout = d }
}

// WithWriteTimeout sets the maximum duration for writing a response. Zero
// means no limit, which long streamed answers usually need.
func WithWriteTimeout(d time.Duration) ServerOption {
	return func(s *Server) { s.config.WriteTimeout = d }
}

// WithShutdownTimeout sets the graceful shutdown deadline.
func WithShutdownTimeout(d time.Duration) ServerOption {
	return func(s *Server) { s.config.ShutdownTimeout = d }
}

// WithHealthPath sets the health check path.
func WithHealthPath(p string) ServerOption {
	return func(s *Server) { s.config.HealthPath = p }
}

// WithMetricsPath sets the metrics path.
func WithMetricsPath(p string) ServerOption {
	return func(s *Server) { s.config.MetricsPath = p }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) ServerOption {
	return func(s *Server) { s.logger = l }
}

// NewServer creates a new transport server around dispatcher. Health and
// metrics endpoints are answered before the dispatcher sees the request;
// everything else, whatever its method or path, is handed to the
// dispatcher. Default middleware (request ID, access logging, recovery)
// and request metrics are applied automatically.
func NewServer(dispatcher http.Handler, opts ...ServerOption) *Server {
	s := &Server{
		config: DefaultServerConfig(),
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	chain := transport.Chain(
		transport.RequestID(s.logger),
		transport.AccessLog(),
		transport.Recovery(),
	)
	s.handler = observability.MetricsMiddleware(chain(s.routes(dispatcher)))

	s.httpServer = &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.handler,
		ReadTimeout:       s.config.ReadTimeout,
		ReadHeaderTimeout: s.config.ReadTimeout,
		WriteTimeout:      s.config.WriteTimeout,
	}

	return s
}

// routes matches the auxiliary endpoints exactly. http.ServeMux is not used
// because its path cleaning answers unclean paths with redirects, and every
// request outside the auxiliary endpoints must reach the dispatcher as is.
func (s *Server) routes(dispatcher http.Handler) http.Handler {
	metrics := promhttp.Handler()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && r.URL.RawQuery == "" {
			switch path := r.URL.Path; {
			case s.config.HealthPath != "" && path == s.config.HealthPath:
				w.Header().Set("Content-Type", "text/plain; charset=utf-8")
				w.Write([]byte("ok"))
				return
			case s.config.MetricsPath != "" && path == s.config.MetricsPath:
				metrics.ServeHTTP(w, r)
				return
			}
		}
		dispatcher.ServeHTTP(w, r)
	})
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe starts the server and blocks until a shutdown signal
// (SIGINT or SIGTERM) is received. It then gracefully shuts down,
// waiting for in-flight requests to complete within the configured timeout.
func (s *Server) ListenAndServe() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return s.Run(ctx)
}

// Run starts the server and blocks until ctx is done, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return err
	}
	return s.serve(ctx, ln)
}

// ServeOn starts the server on the given listener and blocks until a
// shutdown signal is received or the server is shut down. Used for testing.
func (s *Server) ServeOn(ln net.Listener) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return s.serve(ctx, ln)
}

func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("server starting", slog.String("addr", ln.Addr().String()))
		err := s.httpServer.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	}

	return s.shutdown()
}

func (s *Server) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	s.logger.Info("shutting down gracefully", slog.Duration("timeout", s.config.ShutdownTimeout))
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("shutdown error", slog.String("error", err.Error()))
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

// Shutdown gracefully shuts down the server with the given context.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
