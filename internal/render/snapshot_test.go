package render_test

import (
	"runtime"
	"testing"

	"renderhook/internal/render"
)

func TestSnapshotFrameCountAndPercent(t *testing.T) {
	tests := []struct {
		name        string
		first       int
		current     int
		last        int
		wantCount   int
		wantPercent int
	}{
		{"single frame", 1, 1, 1, 1, 100},
		{"first frame of range", 1, 1, 100, 100, 0},
		{"midpoint floors", 1, 50, 100, 100, 49},
		{"last frame", 1, 100, 100, 100, 100},
		{"zero based range", 0, 29, 100, 101, 29},
		{"offset range", 1001, 1010, 1020, 20, 47},
		{"negative start", -10, 0, 10, 21, 50},
		{"single frame not at one", 250, 250, 250, 1, 100},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			snap := render.Capture(render.Static{Project: "scene.blend", First: tc.first, Current: tc.current, Last: tc.last})
			if got := snap.FrameCount(); got != tc.wantCount {
				t.Fatalf("FrameCount() = %d, want %d", got, tc.wantCount)
			}
			if got := snap.Percent(); got != tc.wantPercent {
				t.Fatalf("Percent() = %d, want %d", got, tc.wantPercent)
			}
		})
	}
}

func TestProjectNameStripsDirectories(t *testing.T) {
	tests := map[string]string{
		"/home/artist/shots/intro.blend": "intro.blend",
		"//shots/outro.blend":            "outro.blend",
		"//title.blend":                  "title.blend",
		"relative/dir/credits.blend":     "credits.blend",
		"plain.blend":                    "plain.blend",
		"renders/":                       "",
		"":                               "",
	}
	for input, want := range tests {
		if got := render.ProjectName(input); got != want {
			t.Fatalf("ProjectName(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestProjectNameKeepsBackslashOnPOSIX(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("backslash is a separator on windows")
	}
	if got := render.ProjectName(`shots\intro.blend`); got != `shots\intro.blend` {
		t.Fatalf("ProjectName kept %q, want the whole name", got)
	}
}

func TestCaptureReadsTrackerAtCallTime(t *testing.T) {
	tracker := render.NewTracker("/tmp/job.blend", 1, 10)
	if snap := render.Capture(tracker); snap.FrameCurrent != 1 || snap.ProjectName != "job.blend" {
		t.Fatalf("unexpected initial snapshot: %+v", snap)
	}
	tracker.SetCurrent(6)
	if snap := render.Capture(tracker); snap.FrameCurrent != 6 || snap.Percent() != 55 {
		t.Fatalf("unexpected updated snapshot: %+v", snap)
	}
}
