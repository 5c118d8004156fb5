package render

import (
	"context"

	"renderhook/internal/events"
)

// ErrorMessageKey is the payload field carrying a render failure message.
const ErrorMessageKey = "error_message"

// Notifier receives one call per lifecycle signal. Implementations must not
// block the caller on failure or return errors; delivery is fire-and-forget.
type Notifier interface {
	Notify(ctx context.Context, kind events.Kind, extra map[string]any)
}

// Hooks maps host lifecycle signals onto notifications.
type Hooks struct {
	notifier Notifier
}

// NewHooks binds lifecycle hooks to a notifier.
func NewHooks(notifier Notifier) *Hooks {
	return &Hooks{notifier: notifier}
}

// OnRenderStart reports that the host began rendering.
func (h *Hooks) OnRenderStart(ctx context.Context) {
	h.notify(ctx, events.Start, nil)
}

// OnRenderProgress reports that the host finished writing a frame.
func (h *Hooks) OnRenderProgress(ctx context.Context) {
	h.notify(ctx, events.Progress, nil)
}

// OnRenderComplete reports that the host finished the whole job.
func (h *Hooks) OnRenderComplete(ctx context.Context) {
	h.notify(ctx, events.Complete, nil)
}

// OnRenderCancelOrError reports an interrupted render. A non-empty message
// turns the cancellation into an Error event carrying that message.
func (h *Hooks) OnRenderCancelOrError(ctx context.Context, errorMessage string) {
	if errorMessage != "" {
		h.notify(ctx, events.Error, map[string]any{ErrorMessageKey: errorMessage})
		return
	}
	h.notify(ctx, events.Cancel, nil)
}

func (h *Hooks) notify(ctx context.Context, kind events.Kind, extra map[string]any) {
	if h == nil || h.notifier == nil {
		return
	}
	if extra == nil {
		extra = map[string]any{}
	}
	h.notifier.Notify(ctx, kind, extra)
}
