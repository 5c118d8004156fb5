package webhook

import (
	"renderhook/internal/events"
	"renderhook/internal/render"
)

// Payload field names.
const (
	FieldProjectName  = "project_name"
	FieldFrameCount   = "frame_count"
	FieldProgress     = "progress"
	FieldPercent      = "percent"
	FieldFrames       = "frames"
	FieldIndexFirst   = "index_first"
	FieldIndexLast    = "index_last"
	FieldIndexCurrent = "index_current"
)

// BuildPayload merges job info, the progress block (Progress events only) and
// extra, in that order. Later keys win. The returned map is always new.
func BuildPayload(kind events.Kind, snap render.Snapshot, extra map[string]any) map[string]any {
	payload := map[string]any{
		FieldProjectName: snap.ProjectName,
		FieldFrameCount:  snap.FrameCount(),
	}
	if kind == events.Progress {
		payload[FieldProgress] = map[string]any{
			FieldPercent: snap.Percent(),
			FieldFrames: map[string]any{
				FieldIndexFirst:   snap.FrameFirst,
				FieldIndexLast:    snap.FrameLast,
				FieldIndexCurrent: snap.FrameCurrent,
			},
		}
	}
	for key, value := range extra {
		payload[key] = value
	}
	return payload
}
