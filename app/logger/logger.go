// Package logger builds the process slog logger and carries it through contexts.
//
// Usage:
//
//	log := logger.New("json", "info")
//	ctx := logger.WithContext(ctx, log.With("run_id", runID))
//	// ... later:
//	logger.FromContext(ctx).Info("Channel synced", "channel", name)
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

type contextKey struct{}

// New creates a logger writing to stderr, so command output on stdout stays clean.
//
// format: "json" or "text" (default).
// level:  "debug", "info" (default), "warn", "error".
func New(format, level string) *slog.Logger {
	return NewWithWriter(os.Stderr, format, level)
}

func NewWithWriter(w io.Writer, format, level string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(level),
	}

	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithContext returns a new context that carries the given logger.
func WithContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// FromContext returns the logger stored by WithContext, or slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(contextKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}
