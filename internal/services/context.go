package services

import "context"

type contextKey string

const (
	batchIDKey    contextKey = "batch_id"
	consumerIDKey contextKey = "consumer_id"
	requestIDKey  contextKey = "request_id"
)

// WithBatchID annotates context with the archive build identifier.
func WithBatchID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, batchIDKey, id)
}

// BatchIDFromContext extracts the archive build identifier if present.
func BatchIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(batchIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithConsumerID annotates context with the caller identity supplied by the gateway.
func WithConsumerID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, consumerIDKey, id)
}

// ConsumerIDFromContext returns the caller identity if present.
func ConsumerIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(consumerIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
