// Package history journals webhook delivery attempts in SQLite.
//
// The journal is optional and diagnostic only: one row per attempt with the
// event, target URL, classified outcome and timing. Payloads are not stored.
// The Store satisfies webhook.Recorder so a dispatcher can write to it
// directly; the CLI reads it back through Recent.
package history
