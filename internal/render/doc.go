// Package render models the host side of a render job: the frame-range
// snapshot read at notification time, the lifecycle hooks a host invokes, and
// a Runner that drives an external renderer process and fires those hooks.
//
// Hooks translate host signals into exactly one notification each; the
// notifier behind them owns delivery and never reports failures back, so a
// broken endpoint cannot interrupt a render.
package render
