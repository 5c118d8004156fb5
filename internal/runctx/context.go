// Package runctx carries render-run identity through context values so log
// lines emitted by hooks, the dispatcher, and the journal share the same
// correlation fields.
package runctx

import "context"

type contextKey string

const (
	jobKey      contextKey = "job"
	runIDKey    contextKey = "run_id"
	deliveryKey contextKey = "delivery_id"
)

// WithJob annotates context with the render job (project) name.
func WithJob(ctx context.Context, job string) context.Context {
	if job == "" {
		return ctx
	}
	return context.WithValue(ctx, jobKey, job)
}

// JobFromContext returns the job name if present.
func JobFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(jobKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRunID annotates context with the identifier of one render run.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext returns the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithDeliveryID annotates context with the identifier of one webhook attempt.
func WithDeliveryID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, deliveryKey, id)
}

// DeliveryIDFromContext returns the delivery identifier if present.
func DeliveryIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(deliveryKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
