package render

import (
	"os"
	"strings"
	"unicode/utf8"
)

// StateSource exposes the render state a host knows at any moment.
type StateSource interface {
	FrameRange() (first, current, last int)
	ProjectFileName() string
}

// Snapshot is the render state captured at dispatch time.
type Snapshot struct {
	ProjectName  string
	FrameFirst   int
	FrameCurrent int
	FrameLast    int
}

// Capture reads the current state from src. The project name is the file
// name with directories stripped.
func Capture(src StateSource) Snapshot {
	first, current, last := src.FrameRange()
	return Snapshot{
		ProjectName:  ProjectName(src.ProjectFileName()),
		FrameFirst:   first,
		FrameCurrent: current,
		FrameLast:    last,
	}
}

// ProjectName strips directories from a project path using the host OS
// separators. A leading Blender-relative "//" prefix is dropped first.
func ProjectName(path string) string {
	path = strings.TrimPrefix(path, "//")
	if idx := strings.LastIndexFunc(path, func(r rune) bool {
		return r < utf8.RuneSelf && os.IsPathSeparator(uint8(r))
	}); idx >= 0 {
		return path[idx+1:]
	}
	return path
}

// FrameCount returns last - first + 1.
func (s Snapshot) FrameCount() int {
	return s.FrameLast - s.FrameFirst + 1
}

// Percent returns floor((current-first)/(last-first)*100). A single-frame job
// (last == first) reports 100.
func (s Snapshot) Percent() int {
	span := s.FrameLast - s.FrameFirst
	if span == 0 {
		return 100
	}
	return floorDiv((s.FrameCurrent-s.FrameFirst)*100, span)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
