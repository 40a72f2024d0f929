package logging

import (
	"context"
	"log/slog"

	"poolpack/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldBatchID is the standardized structured logging key for archive build identifiers.
	FieldBatchID = "batch_id"
	// FieldConsumerID is the standardized structured logging key for the requesting consumer.
	FieldConsumerID = "consumer_id"
	// FieldResourceID is the standardized structured logging key for catalog resource identifiers.
	FieldResourceID = "resource_id"
	// FieldLocator is the standardized structured logging key for artifact locators.
	FieldLocator = "locator"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldEventType classifies a log line for filtering (e.g. artifact_evicted).
	FieldEventType = "event_type"
	// FieldErrorHint carries the suggested next step for an operator.
	FieldErrorHint = "error_hint"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := services.BatchIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldBatchID, id))
	}
	if consumer, ok := services.ConsumerIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldConsumerID, consumer))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(toArgs(fields)...)
}
