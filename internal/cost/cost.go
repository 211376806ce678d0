// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package cost computes a soft, non-negative cost for a candidate command
// ordering from the trace of forwarding states it produces. Cost is a
// pure function of the trace: it never touches the network model.
package cost

import "snowcap.dev/snowcap/internal/forward"

// Func evaluates a trace of converged forwarding states — one entry per
// command applied, in order, starting from the state before the first
// command — against the initial and target states, returning a
// non-negative cost. Implementations must be pure and side-effect free so
// the optimizer can call them freely while comparing candidate orderings.
type Func interface {
	Evaluate(trace []forward.State, initial, target forward.State) float64
}

// TrafficShiftCost is the default soft cost: the total number of
// (router, prefix) next-hop changes across the trace, minus one for each
// change that is strictly necessary — present between the initial and
// target states regardless of ordering. It rewards orderings that avoid
// transient reroutes beyond what reaching the target configuration
// inherently requires.
type TrafficShiftCost struct{}

// Evaluate implements Func.
func (TrafficShiftCost) Evaluate(trace []forward.State, initial, target forward.State) float64 {
	total := 0
	prev := initial
	for _, fs := range trace {
		total += len(forward.Diff(prev, fs))
		prev = fs
	}

	necessary := len(forward.Diff(initial, target))

	shifted := total - necessary
	if shifted < 0 {
		shifted = 0
	}
	return float64(shifted)
}
