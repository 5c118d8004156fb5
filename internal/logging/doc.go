// Package logging assembles structured slog loggers and formatting helpers used
// across renderhook.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so hooks and the webhook
// dispatcher tag log lines with the job, run, and delivery identifiers. The
// package also provides a no-op logger for tests and wiring code that cannot
// fail.
package logging
