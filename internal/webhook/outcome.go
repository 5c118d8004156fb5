package webhook

import (
	"fmt"
	"strings"
	"time"

	"renderhook/internal/events"
)

// OutcomeKind classifies a delivery attempt.
type OutcomeKind string

const (
	// OutcomeSuccess means the endpoint answered 200.
	OutcomeSuccess OutcomeKind = "success"
	// OutcomeStatus means the endpoint answered with any other status.
	OutcomeStatus OutcomeKind = "status"
	// OutcomeTransport means no response was received.
	OutcomeTransport OutcomeKind = "transport"
	// OutcomeInternal means the request could not be built.
	OutcomeInternal OutcomeKind = "internal"
)

// Outcome is the result of one delivery attempt.
type Outcome struct {
	Kind       OutcomeKind
	StatusCode int
	Body       string
	Err        error
}

// Success reports whether the endpoint accepted the notification.
func (o Outcome) Success() bool {
	return o.Kind == OutcomeSuccess
}

// Message returns a one-line description suitable for logs and the journal.
func (o Outcome) Message() string {
	switch o.Kind {
	case OutcomeSuccess:
		return "ok"
	case OutcomeStatus:
		body := strings.TrimSpace(o.Body)
		if body == "" {
			return fmt.Sprintf("HTTP %d", o.StatusCode)
		}
		return fmt.Sprintf("HTTP %d: %s", o.StatusCode, body)
	default:
		if o.Err != nil {
			return o.Err.Error()
		}
		return string(o.Kind)
	}
}

// Delivery describes one attempt for journaling.
type Delivery struct {
	ID        string
	Event     events.Kind
	URL       string
	Outcome   Outcome
	StartedAt time.Time
	Duration  time.Duration
}
