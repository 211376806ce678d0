// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package optimize implements the Optimizer TRTA (spec.md section 4.7): it
// wraps a strategy.Strategy, repeatedly asking it for the next hard-valid
// ordering rather than stopping at the first one, scores each with a
// cost.Func, and keeps the cheapest seen so far.
package optimize

import (
	"math"
	"sync/atomic"

	"snowcap.dev/snowcap/internal/config"
	"snowcap.dev/snowcap/internal/cost"
	"snowcap.dev/snowcap/internal/strategy"
)

// Result is the best hard-valid ordering found before the budget expired,
// the search space was exhausted, or the stopper fired.
type Result struct {
	Ordering   []config.Command
	Cost       float64
	Iterations int
}

// Optimizer drives a Strategy past its first Satisfied result, computing a
// soft cost for each hard-valid ordering it turns up and keeping the best.
// It is not safe for concurrent use, for the same reason Strategy isn't:
// both share one live network.Network.
type Optimizer struct {
	strategy *strategy.Strategy
	costFn   cost.Func

	// bestCostBits and hasBest let a Progress viewer read the running best
	// cost from another goroutine while Optimize is still looping, the same
	// way strategy.Strategy.Snapshot exposes its iteration/group counts.
	bestCostBits atomic.Uint64
	hasBest      atomic.Bool
}

// New builds an Optimizer over an already-constructed Strategy (so the
// caller retains access to its Groups()/Initial() for diagnostics) and a
// soft-cost function.
func New(s *strategy.Strategy, costFn cost.Func) *Optimizer {
	return &Optimizer{strategy: s, costFn: costFn}
}

// Optimize runs Strategy.Synthesize in a loop — each call resumes from the
// Strategy's own problem-group and permutator state rather than restarting
// — scoring every hard-valid ordering it returns and keeping the cheapest.
// It returns the best ordering found once Synthesize can no longer produce
// a new one (budget exhausted, search space exhausted, or canceled),
// surfacing that terminal error only if no hard-valid ordering was ever
// found; otherwise the best-so-far is returned with a nil error, per the
// "returns best at budget expiry" contract. With an unbounded budget and a
// finite search space, this exhausts every ordering and so returns the
// globally optimal hard-valid one.
func (o *Optimizer) Optimize(budget strategy.Budget, stopper strategy.Stopper) (Result, error) {
	var best *Result

	for {
		res, err := o.strategy.Synthesize(budget, stopper)
		if err != nil {
			if best != nil {
				return *best, nil
			}
			return Result{}, err
		}

		c, err := o.evaluate(res.Ordering)
		if err != nil {
			return Result{}, err
		}

		if best == nil || c < best.Cost {
			best = &Result{Ordering: res.Ordering, Cost: c, Iterations: res.Iterations}
			o.bestCostBits.Store(math.Float64bits(c))
			o.hasBest.Store(true)
		}

		if budget.Exceeded(res.Iterations) {
			return *best, nil
		}
	}
}

// Progress is a point-in-time snapshot of an Optimize call in progress,
// safe to read from a goroutine other than the one driving Optimize.
type Progress struct {
	Iterations    int
	ProblemGroups int
	BestCost      float64
	HasBest       bool
}

// Snapshot reads this Optimizer's current progress.
func (o *Optimizer) Snapshot() Progress {
	s := o.strategy.Snapshot()
	return Progress{
		Iterations:    s.Iterations,
		ProblemGroups: s.ProblemGroups,
		BestCost:      math.Float64frombits(o.bestCostBits.Load()),
		HasBest:       o.hasBest.Load(),
	}
}

func (o *Optimizer) evaluate(ordering []config.Command) (float64, error) {
	trace, err := o.strategy.Trace(ordering)
	if err != nil {
		return 0, err
	}
	initial := o.strategy.Initial()
	target := initial
	if len(trace) > 0 {
		target = trace[len(trace)-1]
	}
	return o.costFn.Evaluate(trace, initial, target), nil
}
