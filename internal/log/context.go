package log

import (
	"context"
	"log/slog"
)

type ContextKey string

// LoggerContextKey holds the request-scoped logger.
const LoggerContextKey ContextKey = "logger"

// IntoContext stores logger on ctx.
func IntoContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, LoggerContextKey, logger)
}

// FromContext returns the logger stored on ctx, or one built on the slog
// default.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	return wrap(slog.Default(), "")
}
