// Package debug provides category-based debug logging for promptgate.
//
// Two orthogonal controls:
//   - Categories (WHAT to debug): controlled via PROMPTGATE_DEBUG env or config
//   - Levels (HOW MUCH detail): controlled via PROMPTGATE_LOG_LEVEL env or config
//
// Records are written to the logger carried by the context, so a dispatch
// logs through whatever logger its caller attached:
//
//	ctx = debug.ContextWithLogger(ctx, logger)
//	debug.Log(ctx, "transport", "route decided", "decision", d)
//	if debug.Enabled("backend") { /* expensive formatting */ }
//
// Categories: transport, stream, backend, config, all.
// Levels: ERROR, WARN, INFO, DEBUG, TRACE.
package debug

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"
)

// LevelTrace is below slog.LevelDebug for maximum verbosity.
// At TRACE, full prompt text is logged.
const LevelTrace = slog.LevelDebug - 4

// categories holds the set of enabled debug categories.
// Access is read-only after Init(), so no synchronization needed.
var categories map[string]bool

func init() {
	categories = parseCategories(os.Getenv("PROMPTGATE_DEBUG"))
}

// Init configures the debug categories and builds the process logger, a
// text handler on w at the given level. The logger is also installed as the
// slog default so that library code logging through slog ends up in the same
// place.
func Init(configCategories string, configLevel string, w io.Writer) *slog.Logger {
	categories = parseCategories(configCategories)

	if w == nil {
		w = os.Stderr
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(configLevel),
	}))
	slog.SetDefault(logger)
	return logger
}

// loggerKeyType is the context key type for the request logger.
type loggerKeyType struct{}

var loggerKey = loggerKeyType{}

var discard = slog.New(slog.DiscardHandler)

// ContextWithLogger returns a new context carrying logger.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// LoggerFromContext returns the logger carried by ctx. Without one, records
// are discarded.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok && l != nil {
		return l
	}
	return discard
}

// Enabled reports whether debug output is active for the given category.
func Enabled(category string) bool {
	return categories["all"] || categories[category]
}

// Log emits a debug record for the given category on the context logger.
// If the category is not enabled, this is a no-op.
func Log(ctx context.Context, category string, msg string, args ...any) {
	if !Enabled(category) {
		return
	}
	LoggerFromContext(ctx).DebugContext(ctx, msg, append([]any{"debug", category}, args...)...)
}

// Trace emits a trace-level record for the given category.
// Only visible when the logger level is TRACE.
func Trace(ctx context.Context, category string, msg string, args ...any) {
	if !Enabled(category) {
		return
	}
	LoggerFromContext(ctx).Log(ctx, LevelTrace, msg, append([]any{"debug", category}, args...)...)
}

// TraceIsEnabled reports whether TRACE level is active for the given category
// on the context logger.
func TraceIsEnabled(ctx context.Context, category string) bool {
	if !Enabled(category) {
		return false
	}
	return LoggerFromContext(ctx).Enabled(ctx, LevelTrace)
}

// ParseLevel converts a level string to a slog.Level.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return LevelTrace
	case "DEBUG":
		return slog.LevelDebug
	case "INFO", "":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Truncate returns s cut to at most maxLen bytes, with "..." appended if
// truncated. The cut never splits a UTF-8 sequence.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

func parseCategories(s string) map[string]bool {
	m := make(map[string]bool)
	if s == "" {
		return m
	}
	for _, cat := range strings.Split(s, ",") {
		cat = strings.TrimSpace(strings.ToLower(cat))
		if cat != "" {
			m[cat] = true
		}
	}
	return m
}
