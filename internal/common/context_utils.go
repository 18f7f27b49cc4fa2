package common

import (
	"context"

	log "github.com/sirupsen/logrus"
)

type contextKey string

const (
	CorrelationIDKey  contextKey = "correlation_id"
	IdempotencyKeyKey contextKey = "idempotency_key"
	loggerKey         contextKey = "logger"
)

const (
	CorrelationIDHeader  = "X-Correlation-ID"
	IdempotencyKeyHeader = "Idempotency-Key"
)

// WithLogger stores a request-scoped log entry in ctx
func WithLogger(ctx context.Context, entry *log.Entry) context.Context {
	return context.WithValue(ctx, loggerKey, entry)
}

// LoggerFromContext returns the request-scoped entry, or one on the standard logger
func LoggerFromContext(ctx context.Context) *log.Entry {
	if entry, ok := ctx.Value(loggerKey).(*log.Entry); ok && entry != nil {
		return entry
	}
	return log.NewEntry(log.StandardLogger())
}

// GetCorrelationIDFromContext extracts the correlation ID from the request context
func GetCorrelationIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(CorrelationIDKey).(string)
	return id, ok
}

// GetIdempotencyKeyFromContext extracts the Idempotency-Key header value stored by middleware
func GetIdempotencyKeyFromContext(ctx context.Context) (string, bool) {
	key, ok := ctx.Value(IdempotencyKeyKey).(string)
	return key, ok
}
