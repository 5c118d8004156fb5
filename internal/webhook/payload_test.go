package webhook_test

import (
	"testing"

	"renderhook/internal/events"
	"renderhook/internal/render"
	"renderhook/internal/webhook"
)

func TestBuildPayloadMergeOrder(t *testing.T) {
	snap := render.Snapshot{ProjectName: "a.blend", FrameFirst: 0, FrameCurrent: 29, FrameLast: 100}

	payload := webhook.BuildPayload(events.Progress, snap, map[string]any{"frame_count": 7, "error_message": "x"})

	if payload["frame_count"] != 7 {
		t.Fatalf("expected extra frame_count to win, got %v", payload["frame_count"])
	}
	progress, ok := payload["progress"].(map[string]any)
	if !ok || progress["percent"] != 29 {
		t.Fatalf("unexpected progress block %v", payload["progress"])
	}
	if payload["error_message"] != "x" {
		t.Fatalf("missing extra field: %v", payload)
	}
}

func TestBuildPayloadDoesNotMutateExtra(t *testing.T) {
	extra := map[string]any{"note": "n"}
	webhook.BuildPayload(events.Start, render.Snapshot{ProjectName: "a", FrameFirst: 1, FrameCurrent: 1, FrameLast: 1}, extra)
	if len(extra) != 1 {
		t.Fatalf("extra was modified: %v", extra)
	}
}
