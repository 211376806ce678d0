// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package synth houses the three core entry points spec.md section 6
// names (synthesize, synthesize_parallel, optimize), translating the
// library's Result/error types into the persisted JSON artifact schema
// and the exit-code contract cmd/snowcapd maps to the process's exit
// status.
package synth

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"snowcap.dev/snowcap/internal/config"
	"snowcap.dev/snowcap/internal/cost"
	"snowcap.dev/snowcap/internal/errors"
	"snowcap.dev/snowcap/internal/ident"
	"snowcap.dev/snowcap/internal/ltl"
	"snowcap.dev/snowcap/internal/network"
	"snowcap.dev/snowcap/internal/optimize"
	"snowcap.dev/snowcap/internal/strategy"
)

// Result is a completed run, in the shape the persisted JSON artifact
// (Artifact) is built from: an ordering, its soft cost (0 for a plain
// Synthesize call, since no soft policy was involved), the iteration
// count, and wall-clock duration.
//
// Seed is always 0: TRTA's search (permute.TreePermutator's ranked,
// pruned DFS) is fully deterministic, so there is no RNG state to record.
// The field exists so Artifact round-trips the schema spec.md section 6
// defines; it becomes meaningful the day a run is driven by
// permute.RandomPermutator instead, whose seed it would then carry.
type Result struct {
	Ordering   []config.Command
	Cost       float64
	Iterations int
	WallMS     int64
	Seed       uint64
}

// Artifact is the JSON document cmd/snowcapd persists on every completed
// run, matching spec.md section 6's schema exactly:
// {ordering, cost, iterations, wall_ms, seed}. Ordering is rendered as
// stable (kind, expression-hash) command identity keys (CommandIDs)
// rather than full command bodies, so an artifact from one run can be
// compared against another even if the in-memory Command values differ
// in field order or transient annotations.
type Artifact struct {
	Ordering   []string `json:"ordering"`
	Cost       float64  `json:"cost"`
	Iterations int      `json:"iterations"`
	WallMS     int64    `json:"wall_ms"`
	Seed       uint64   `json:"seed"`
}

// BuildArtifact renders a Result into its persisted JSON shape.
func BuildArtifact(res Result) (Artifact, error) {
	ids, err := CommandIDs(res.Ordering)
	if err != nil {
		return Artifact{}, err
	}
	return Artifact{
		Ordering:   ids,
		Cost:       res.Cost,
		Iterations: res.Iterations,
		WallMS:     res.WallMS,
		Seed:       res.Seed,
	}, nil
}

// ExitCode maps a synth/optimize outcome to the process exit status
// spec.md section 6 defines: 0 on success, 1 when the search legitimately
// exhausted itself without finding a hard-valid ordering (KindNoSolution)
// or the hard policy was already violated at the initial state
// (KindConvergence), and 2 for anything else — bad input, cancellation,
// or an internal failure.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch errors.GetKind(err) {
	case errors.KindNoSolution, errors.KindConvergence:
		return 1
	default:
		return 2
	}
}

// Synthesize is the `synthesize` entry point of spec.md section 6: find
// any hard-valid ordering of delta within budget. progress may be nil; if
// given, it reports this run's iteration and problem-group counts for as
// long as the search runs.
func Synthesize(net *network.Network, hardPolicy *ltl.Formula, delta []config.Command, budget strategy.Budget, stopper strategy.Stopper, progress *ProgressHandle) (Result, error) {
	start := time.Now()
	s := strategy.New(net, hardPolicy, delta)
	progress.bind(func() Progress {
		p := s.Snapshot()
		return Progress{Iterations: p.Iterations, ProblemGroups: p.ProblemGroups}
	})
	res, err := s.Synthesize(budget, stopper)
	if err != nil {
		return Result{}, err
	}
	return Result{Ordering: res.Ordering, Iterations: res.Iterations, WallMS: time.Since(start).Milliseconds()}, nil
}

// SynthesizeParallel is the `synthesize_parallel` entry point: numWorkers
// Strategies, each over its own network.Clone() and each pinned to a
// distinct slice of the root-level permutation branches, race to find a
// hard-valid ordering; the first to succeed trips a shared Stopper so the
// rest stop at their next iteration boundary. Partitioning by root branch
// (rather than running numWorkers identical searches) is what makes the
// fan-out actually parallelize the search instead of repeating it.
func SynthesizeParallel(net *network.Network, hardPolicy *ltl.Formula, delta []config.Command, numWorkers int, budget strategy.Budget, stopper strategy.Stopper, progress *ProgressHandle) (Result, error) {
	start := time.Now()
	if numWorkers < 1 {
		numWorkers = 1
	}
	if numWorkers > len(delta) {
		numWorkers = len(delta)
	}
	if numWorkers <= 1 {
		return Synthesize(net, hardPolicy, delta, budget, stopper, progress)
	}

	var winner strategy.AtomicStopper
	combined := combinedStopper{a: &winner, b: stopper}

	groups := partitionRootBranches(delta, numWorkers)
	workers := make([]*strategy.Strategy, len(groups))
	for w, group := range groups {
		workers[w] = strategy.New(net.Clone(), hardPolicy, delta, strategy.WithPinPrefix(group))
	}
	progress.bind(func() Progress {
		var p Progress
		for _, s := range workers {
			snap := s.Snapshot()
			p.Iterations += snap.Iterations
			p.ProblemGroups += snap.ProblemGroups
		}
		return p
	})

	type workerResult struct {
		res        strategy.Result
		iterations int
		err        error
	}
	results := make([]workerResult, len(workers))

	g, _ := errgroup.WithContext(context.Background())
	for w, s := range workers {
		w, s := w, s
		g.Go(func() error {
			res, err := s.Synthesize(budget, combined)
			results[w] = workerResult{res: res, iterations: s.Iterations(), err: err}
			if err == nil {
				winner.Stop()
			}
			return nil
		})
	}
	_ = g.Wait()

	var best *workerResult
	totalIterations := 0
	var firstErr error
	for i := range results {
		totalIterations += results[i].iterations
		if results[i].err == nil {
			if best == nil {
				best = &results[i]
			}
			continue
		}
		if firstErr == nil || errors.GetKind(results[i].err) == errors.KindConvergence {
			firstErr = results[i].err
		}
	}

	if best == nil {
		if firstErr == nil {
			firstErr = errors.New(errors.KindNoSolution, "no worker found a hard-valid ordering")
		}
		return Result{}, firstErr
	}
	return Result{Ordering: best.res.Ordering, Iterations: totalIterations, WallMS: time.Since(start).Milliseconds()}, nil
}

// combinedStopper reports stopped once either the shared first-winner flag
// or the caller's own stopper fires.
type combinedStopper struct {
	a strategy.Stopper
	b strategy.Stopper
}

func (c combinedStopper) Stopped() bool {
	if c.a != nil && c.a.Stopped() {
		return true
	}
	return c.b != nil && c.b.Stopped()
}

// partitionRootBranches assigns delta's commands, sorted for determinism,
// one per worker, and returns each as a single-command pin prefix: the
// granularity this fan-out offers is one root-level permutation branch per
// worker, capped at len(delta) workers by the caller.
func partitionRootBranches(delta []config.Command, numWorkers int) [][]config.Command {
	sorted := make([]config.Command, len(delta))
	copy(sorted, delta)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })

	groups := make([][]config.Command, 0, numWorkers)
	for w := 0; w < numWorkers && w < len(sorted); w++ {
		groups = append(groups, []config.Command{sorted[w]})
	}
	return groups
}

// Optimize is the `optimize` entry point: find the cheapest hard-valid
// ordering of delta under softPolicy within budget.
func Optimize(net *network.Network, hardPolicy *ltl.Formula, delta []config.Command, softPolicy cost.Func, budget strategy.Budget, stopper strategy.Stopper, progress *ProgressHandle) (Result, error) {
	start := time.Now()
	s := strategy.New(net, hardPolicy, delta)
	o := optimize.New(s, softPolicy)
	progress.bind(func() Progress {
		p := o.Snapshot()
		return Progress{Iterations: p.Iterations, ProblemGroups: p.ProblemGroups, Cost: p.BestCost, HasCost: p.HasBest}
	})
	res, err := o.Optimize(budget, stopper)
	if err != nil {
		return Result{}, err
	}
	return Result{Ordering: res.Ordering, Cost: res.Cost, Iterations: res.Iterations, WallMS: time.Since(start).Milliseconds()}, nil
}

// CommandIDs renders ordering as the stable command identity keys the
// persisted JSON artifact stores, per spec.md section 6's "command
// identity is preserved across runs via a stable key format
// (kind, expression-hash)".
func CommandIDs(ordering []config.Command) ([]string, error) {
	ids := make([]string, len(ordering))
	for i, c := range ordering {
		k, err := ident.NewKey(identKind(c.Kind), c.Expr.Value)
		if err != nil {
			return nil, errors.Wrap(err, errors.KindInternal, "hashing command identity")
		}
		ids[i] = k.String()
	}
	return ids, nil
}

func identKind(k config.CommandKind) ident.Kind {
	switch k {
	case config.CommandInsert:
		return ident.KindInsert
	case config.CommandRemove:
		return ident.KindRemove
	default:
		return ident.KindUpdate
	}
}
