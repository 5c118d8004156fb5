package render

import "sync"

// Tracker is a StateSource updated by a host while a render runs. It is safe
// for concurrent use: the runner writes frames while notifications read them.
type Tracker struct {
	mu      sync.RWMutex
	project string
	first   int
	current int
	last    int
}

// NewTracker starts tracking a project rendered over [first, last]. The
// current frame starts at first.
func NewTracker(project string, first, last int) *Tracker {
	return &Tracker{project: project, first: first, current: first, last: last}
}

// FrameRange implements StateSource.
func (t *Tracker) FrameRange() (first, current, last int) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.first, t.current, t.last
}

// ProjectFileName implements StateSource.
func (t *Tracker) ProjectFileName() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.project
}

// SetCurrent records the frame the renderer is working on.
func (t *Tracker) SetCurrent(frame int) {
	t.mu.Lock()
	t.current = frame
	t.mu.Unlock()
}

// Static is an immutable StateSource, used for one-shot notifications.
type Static struct {
	Project string
	First   int
	Current int
	Last    int
}

// FrameRange implements StateSource.
func (s Static) FrameRange() (first, current, last int) {
	return s.First, s.Current, s.Last
}

// ProjectFileName implements StateSource.
func (s Static) ProjectFileName() string {
	return s.Project
}
