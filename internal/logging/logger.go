// Package logging defines the structured-logging interface used by the
// pantry client packages. The default implementation wraps log/slog.
package logging

import (
	"context"
	"io"
	"log/slog"
)

// Logger is a context-aware, structured logger.
//
// The variadic args are interpreted as key-value pairs, e.g.:
//
//	log.Info(ctx, "request done", "endpoint", "/meals/", "status", 200)
type Logger interface {
	// Debug logs verbose diagnostics (request/response traces).
	Debug(ctx context.Context, msg string, args ...any)

	// Info logs an informational message.
	Info(ctx context.Context, msg string, args ...any)

	// Warn logs degraded but recoverable conditions, such as fallback data
	// being served instead of live data.
	Warn(ctx context.Context, msg string, args ...any)

	// Error logs an error message for failures.
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given key-value pairs.
	With(args ...any) Logger
}

// Discard returns a Logger that drops everything. Handy as a default for
// library code that was not handed a logger.
func Discard() Logger {
	return NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}
