// Command server runs the promptgate prompt dispatcher.
//
// Configuration is read from a YAML file and PROMPTGATE_* environment
// variables (see pkg/config). Commonly used variables:
//
//	PROMPTGATE_CONFIG       - Config file path
//	PROMPTGATE_PORT         - Listen port (default: 8080)
//	PROMPTGATE_ROUTE_PATH   - Dispatch route (default: /openai-proxy)
//	PROMPTGATE_BACKEND      - Backend: "echo", "openai" or "mcp" (default: "echo")
//	PROMPTGATE_BACKEND_MODE - "buffered" or "streaming" (default: "buffered")
//	PROMPTGATE_BACKEND_URL  - Chat Completions base URL for the openai backend
//	PROMPTGATE_LOG_LEVEL    - TRACE, DEBUG, INFO, WARN, ERROR (default: INFO)
//	PROMPTGATE_DEBUG        - Debug categories, e.g. "transport,backend"
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rhuss/promptgate/pkg/config"
	"github.com/rhuss/promptgate/pkg/debug"
	"github.com/rhuss/promptgate/pkg/transport"
	transporthttp "github.com/rhuss/promptgate/pkg/transport/http"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	logger := debug.Init(cfg.Logging.Debug, cfg.Logging.Level, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	be, err := newBackend(ctx, cfg.Backend)
	if err != nil {
		return fmt.Errorf("creating backend: %w", err)
	}
	defer be.Close()

	dispatcher := transport.NewDispatcher(be,
		transport.WithPath(cfg.Route.Path),
		transport.WithMode(transport.Mode(cfg.Backend.Mode)),
		transport.WithFailureMode(transport.FailureMode(cfg.Backend.FailureMode)),
	)

	metricsPath := ""
	if cfg.Observability.Metrics.Enabled {
		metricsPath = cfg.Observability.Metrics.Path
	}

	srv := transporthttp.NewServer(dispatcher,
		transporthttp.WithAddr(fmt.Sprintf(":%d", cfg.Server.Port)),
		transporthttp.WithReadTimeout(cfg.Server.ReadTimeout),
		transporthttp.WithWriteTimeout(cfg.Server.WriteTimeout),
		transporthttp.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		transporthttp.WithHealthPath(cfg.Server.HealthPath),
		transporthttp.WithMetricsPath(metricsPath),
		transporthttp.WithLogger(logger),
	)

	logger.Info("dispatcher ready",
		"route", dispatcher.Path(),
		"backend", be.Name(),
		"mode", string(dispatcher.Mode()),
		"failure_mode", cfg.Backend.FailureMode,
	)

	return srv.Run(ctx)
}
