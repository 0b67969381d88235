// Package orchlog carries a *slog.Logger through context.Context and
// adapts it to the orchestrator's external LoggingSink contract.
package orchlog

import (
	"context"
	"io"
	"log/slog"
	"os"
)

type key struct{}

var loggerKey = key{}

// WithLogger returns a new context carrying the given logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext extracts the logger embedded in ctx. Unlike a hard dependency
// on the caller always installing one, a missing logger is not a bug here:
// the scheduler is usable as a bare library, so we fall back to a default
// stdout logger instead of panicking.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return logger
	}
	return defaultLogger
}

var defaultLogger = New("info", "text", os.Stdout)

// New builds a *slog.Logger configured the way the orchestrator's CLI
// configures its own: a level name, a format name ("json" or "text"), and
// a destination writer.
func New(levelStr, formatStr string, w io.Writer) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if formatStr == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}
