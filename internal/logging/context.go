package logging

import (
	"context"
	"log/slog"

	"renderhook/internal/runctx"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldJob is the standardized structured logging key for the render job (project) name.
	FieldJob = "job"
	// FieldRunID identifies one render run across all of its notifications.
	FieldRunID = "run_id"
	// FieldDeliveryID identifies a single webhook attempt.
	FieldDeliveryID = "delivery_id"
	// FieldEvent is the render lifecycle event being reported.
	FieldEvent = "event"
	// FieldOutcome is the classified result of a webhook attempt.
	FieldOutcome = "outcome"
	// FieldStatusCode is the HTTP status returned by the webhook endpoint.
	FieldStatusCode = "status_code"
	// FieldEventType categorizes warnings and errors for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint suggests the next step to the operator.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact = "impact"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if job, ok := runctx.JobFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldJob, job))
	}
	if id, ok := runctx.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if id, ok := runctx.DeliveryIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldDeliveryID, id))
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
	return logger.With(attrsToArgs(fields)...)
}
