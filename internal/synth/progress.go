// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package synth

import "sync"

// Progress is a point-in-time snapshot of a run still in flight: how many
// candidate orderings it has tried, how many problem groups that has
// accumulated, and (for an Optimize call only) the cheapest hard-valid
// ordering found so far.
type Progress struct {
	Iterations    int
	ProblemGroups int
	Cost          float64
	HasCost       bool
}

// ProgressHandle lets a caller watch a Synthesize/SynthesizeParallel/Optimize
// call that is running in another goroutine. The zero value reports an
// empty Progress until the run it was passed to binds it, so it's safe to
// create and start polling before calling Submit.
type ProgressHandle struct {
	mu       sync.Mutex
	snapshot func() Progress
}

// NewProgressHandle returns a handle ready to pass to a run's Progress
// parameter.
func NewProgressHandle() *ProgressHandle {
	return &ProgressHandle{snapshot: func() Progress { return Progress{} }}
}

// Snapshot reads the current progress. Safe to call concurrently with the
// run this handle was bound to, and before that run has started.
func (h *ProgressHandle) Snapshot() Progress {
	h.mu.Lock()
	fn := h.snapshot
	h.mu.Unlock()
	if fn == nil {
		return Progress{}
	}
	return fn()
}

func (h *ProgressHandle) bind(fn func() Progress) {
	if h == nil {
		return
	}
	h.mu.Lock()
	h.snapshot = fn
	h.mu.Unlock()
}
