// Package context carries request-scoped values between delivery layers.
package context

import (
	"context"
	"log/slog"
)

// contextKey avoids collisions with other packages' context values.
type contextKey string

const (
	keyRequestID contextKey = "request_id"
	keyLogger    contextKey = "logger"

	// HeaderXRequestID is the HTTP header carrying the request id.
	HeaderXRequestID = "X-Request-Id"
)

// WithRequestID returns a new context carrying the request id.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, keyRequestID, requestID)
}

// RequestID extracts the request id from the context, or "" when absent.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(keyRequestID).(string); ok {
		return id
	}

	return ""
}

// WithLogger returns a new context carrying a request-scoped logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, keyLogger, logger)
}

// LoggerOrDefault returns the request-scoped logger, or fallback when the
// context carries none.
func LoggerOrDefault(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if logger, ok := ctx.Value(keyLogger).(*slog.Logger); ok {
		return logger
	}

	return fallback
}
