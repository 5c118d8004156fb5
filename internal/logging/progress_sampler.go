package logging

import "strings"

// ProgressSampler suppresses repetitive frame-progress logs while preserving
// signal when the job changes or the percentage crosses a bucket boundary.
type ProgressSampler struct {
	bucketSize int
	lastJob    string
	lastBucket int
}

// NewProgressSampler constructs a sampler that emits when the percent crosses
// bucket boundaries (default 10%) or when the job changes.
func NewProgressSampler(bucketSize int) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = 10
	}
	return &ProgressSampler{bucketSize: bucketSize, lastBucket: -1}
}

// ShouldLog reports whether a progress update should be logged at info level.
// Percent can be negative to indicate "unknown".
func (s *ProgressSampler) ShouldLog(percent int, job string) bool {
	if s == nil {
		return true
	}
	job = strings.TrimSpace(job)
	emit := false
	if job != s.lastJob {
		s.lastJob = job
		s.lastBucket = -1
		emit = true
	}
	if percent >= 0 {
		if percent > 100 {
			percent = 100
		}
		if bucket := percent / s.bucketSize; bucket > s.lastBucket {
			s.lastBucket = bucket
			emit = true
		}
	}
	return emit
}

// Reset clears the sampler state (e.g. when a new render starts).
func (s *ProgressSampler) Reset() {
	if s == nil {
		return
	}
	s.lastJob = ""
	s.lastBucket = -1
}
