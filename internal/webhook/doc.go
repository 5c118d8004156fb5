// Package webhook delivers render lifecycle events to an HTTP endpoint.
//
// A Dispatcher resolves the target URL for an event kind from Targets, reads
// the current render snapshot, builds the JSON payload, and performs a single
// PUT. Every attempt ends in a classified Outcome that is logged (and
// optionally journaled through a Recorder) but never returned: a failed
// notification must not interrupt the render that triggered it.
package webhook
