package http

import (
	"context"
	"log/slog"

	"github.com/example/planning-service/internal/logging"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

// handlerLogger tags the request logger with the handler, the operation and
// the acting user when the request is authenticated.
func handlerLogger(ctx context.Context, fallback *slog.Logger, handlerName, operation string, attrs ...any) *slog.Logger {
	pairs := make([]any, 0, 6+len(attrs))
	pairs = append(pairs, "handler", handlerName, "operation", operation)
	if principal, ok := PrincipalFromContext(ctx); ok {
		pairs = append(pairs, "principal_id", principal.UserID)
	}
	pairs = append(pairs, attrs...)
	return logging.FromContextOr(ctx, fallback).With(pairs...)
}
