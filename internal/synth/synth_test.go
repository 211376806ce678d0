// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package synth

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"snowcap.dev/snowcap/internal/config"
	"snowcap.dev/snowcap/internal/cost"
	"snowcap.dev/snowcap/internal/errors"
	"snowcap.dev/snowcap/internal/ltl"
	"snowcap.dev/snowcap/internal/network"
	"snowcap.dev/snowcap/internal/strategy"
)

func insert(t *testing.T, n *network.Network, e config.Expr) {
	t.Helper()
	_, err := n.ApplyCommand(config.Command{Kind: config.CommandInsert, Key: e.Key, Expr: e})
	require.NoError(t, err)
}

// migrationTopology and migrationDelta reuse the same fixture
// internal/strategy's tests exercise the search against: a static route
// that must be withdrawn only once its BGP replacement is ready.
func migrationTopology(t *testing.T) *network.Network {
	t.Helper()
	n := network.New(2)
	require.NoError(t, n.SetRouterKind(1, network.RouterExternal))
	insert(t, n, config.Expr{Kind: config.ExprLocalAnnouncement, Key: "ann:1-0", Value: config.LocalAnnouncementValue{Router: 1, Prefix: 0, ASPath: []int{65001}}})
	insert(t, n, config.Expr{Kind: config.ExprStaticRoute, Key: "static:0-0", Value: config.StaticRouteValue{Router: 0, Prefix: 0, NextHop: 1}})
	return n
}

func migrationDelta() []config.Command {
	return []config.Command{
		{Kind: config.CommandRemove, Key: "a_remove_static0", Expr: config.Expr{Kind: config.ExprStaticRoute, Key: "a_remove_static0", Value: config.StaticRouteValue{Router: 0, Prefix: 0, NextHop: 1}}},
		{Kind: config.CommandInsert, Key: "b_igp_01", Expr: config.Expr{Kind: config.ExprIGPWeight, Key: "b_igp_01", Value: config.IGPWeightValue{A: 0, B: 1, Weight: 1}}},
		{Kind: config.CommandInsert, Key: "c_bgp_01", Expr: config.Expr{Kind: config.ExprBGPSession, Key: "c_bgp_01", Value: config.BGPSessionValue{A: 0, B: 1, Kind: config.SessionEBGP}}},
	}
}

func keysOf(cmds []config.Command) []string {
	out := make([]string, len(cmds))
	for i, c := range cmds {
		out[i] = c.Key
	}
	return out
}

func TestSynthesizeFindsHardValidOrdering(t *testing.T) {
	n := migrationTopology(t)
	formula, err := ltl.Compile("G reach(0,0)")
	require.NoError(t, err)

	res, err := Synthesize(n, formula, migrationDelta(), strategy.Budget{MaxIterations: 50}, nil, nil)
	require.NoError(t, err)
	require.Equal(t, "a_remove_static0", res.Ordering[len(res.Ordering)-1].Key)
	require.Greater(t, res.Iterations, 0)
	require.GreaterOrEqual(t, res.WallMS, int64(0))
	require.Equal(t, uint64(0), res.Seed)
}

func TestSynthesizeReturnsUnderlyingErrorOnNoSolution(t *testing.T) {
	n := network.New(2)
	formula, err := ltl.Compile("G reach(0,0)")
	require.NoError(t, err)

	_, err = Synthesize(n, formula, migrationDelta(), strategy.Budget{MaxIterations: 50}, nil, nil)
	require.Error(t, err)
	require.Equal(t, errors.KindConvergence, errors.GetKind(err))
}

func TestSynthesizeParallelFindsHardValidOrdering(t *testing.T) {
	n := migrationTopology(t)
	formula, err := ltl.Compile("G reach(0,0)")
	require.NoError(t, err)

	res, err := SynthesizeParallel(n, formula, migrationDelta(), 3, strategy.Budget{MaxIterations: 200}, nil, nil)
	require.NoError(t, err)
	keys := keysOf(res.Ordering)
	require.Less(t, slices.Index(keys, "c_bgp_01"), slices.Index(keys, "a_remove_static0"))

	// The network handed in must be untouched: every worker operates on
	// its own network.Clone().
	require.True(t, n.Query().Reachable(0, 0))
}

func TestSynthesizeParallelFallsBackToSynthesizeForOneWorker(t *testing.T) {
	n := migrationTopology(t)
	formula, err := ltl.Compile("G reach(0,0)")
	require.NoError(t, err)

	res, err := SynthesizeParallel(n, formula, migrationDelta(), 1, strategy.Budget{MaxIterations: 50}, nil, nil)
	require.NoError(t, err)
	require.Equal(t, "a_remove_static0", res.Ordering[len(res.Ordering)-1].Key)
}

func TestSynthesizeParallelCapsWorkersToDeltaSize(t *testing.T) {
	n := migrationTopology(t)
	formula, err := ltl.Compile("G reach(0,0)")
	require.NoError(t, err)

	// Requesting more workers than there are commands must not panic or
	// spawn empty-pin-prefix workers that redundantly repeat a full search.
	res, err := SynthesizeParallel(n, formula, migrationDelta(), 100, strategy.Budget{MaxIterations: 200}, nil, nil)
	require.NoError(t, err)
	keys := keysOf(res.Ordering)
	require.Less(t, slices.Index(keys, "c_bgp_01"), slices.Index(keys, "a_remove_static0"))
}

func TestSynthesizeParallelReturnsNoSolutionWhenNoWorkerSucceeds(t *testing.T) {
	n := network.New(2) // unreachable from FS0: no worker can ever succeed
	formula, err := ltl.Compile("G reach(0,0)")
	require.NoError(t, err)

	_, err = SynthesizeParallel(n, formula, migrationDelta(), 3, strategy.Budget{MaxIterations: 50}, nil, nil)
	require.Error(t, err)
}

func TestOptimizeFindsCheapestHardValidOrdering(t *testing.T) {
	n := network.New(2)
	require.NoError(t, n.SetRouterKind(1, network.RouterExternal))
	insert(t, n, config.Expr{Kind: config.ExprLocalAnnouncement, Key: "ann:1-1", Value: config.LocalAnnouncementValue{Router: 1, Prefix: 1, ASPath: []int{65001}}})
	insert(t, n, config.Expr{Kind: config.ExprStaticRoute, Key: "perm_static", Value: config.StaticRouteValue{Router: 0, Prefix: 1, NextHop: 1}})

	formula, err := ltl.Compile("G reach(0,1)")
	require.NoError(t, err)

	delta := []config.Command{
		{Kind: config.CommandInsert, Key: "only", Expr: config.Expr{Kind: config.ExprStaticRoute, Key: "only", Value: config.StaticRouteValue{Router: 0, Prefix: 0, NextHop: 1}}},
	}

	res, err := Optimize(n, formula, delta, cost.TrafficShiftCost{}, strategy.Budget{MaxIterations: 10}, nil, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"only"}, keysOf(res.Ordering))
	require.Equal(t, 0.0, res.Cost)
}

func TestSynthesizeReportsProgressAfterCompletion(t *testing.T) {
	n := migrationTopology(t)
	formula, err := ltl.Compile("G reach(0,0)")
	require.NoError(t, err)

	progress := NewProgressHandle()
	res, err := Synthesize(n, formula, migrationDelta(), strategy.Budget{MaxIterations: 50}, nil, progress)
	require.NoError(t, err)

	snap := progress.Snapshot()
	require.Equal(t, res.Iterations, snap.Iterations)
}

func TestProgressHandleReportsEmptySnapshotBeforeBound(t *testing.T) {
	progress := NewProgressHandle()
	require.Equal(t, Progress{}, progress.Snapshot())
}

func TestBuildArtifactRendersStableCommandIDs(t *testing.T) {
	res := Result{
		Ordering:   migrationDelta(),
		Cost:       1.5,
		Iterations: 7,
		WallMS:     42,
	}

	a, err := BuildArtifact(res)
	require.NoError(t, err)
	require.Len(t, a.Ordering, 3)
	require.Equal(t, 1.5, a.Cost)
	require.Equal(t, 7, a.Iterations)
	require.Equal(t, int64(42), a.WallMS)
	require.Equal(t, uint64(0), a.Seed)

	// Rendering the same ordering again must produce the same IDs: the
	// artifact's command identity is a pure function of (kind, expr), not
	// of anything positional or run-specific.
	again, err := BuildArtifact(res)
	require.NoError(t, err)
	require.Equal(t, a.Ordering, again.Ordering)
}

func TestCommandIDsDistinguishInsertFromRemoveOfTheSameExpression(t *testing.T) {
	e := config.Expr{Kind: config.ExprStaticRoute, Key: "k", Value: config.StaticRouteValue{Router: 0, Prefix: 0, NextHop: 1}}
	ids, err := CommandIDs([]config.Command{
		{Kind: config.CommandInsert, Key: "k", Expr: e},
		{Kind: config.CommandRemove, Key: "k", Expr: e},
	})
	require.NoError(t, err)
	require.NotEqual(t, ids[0], ids[1])
}

func TestExitCode(t *testing.T) {
	require.Equal(t, 0, ExitCode(nil))
	require.Equal(t, 1, ExitCode(errors.New(errors.KindNoSolution, "exhausted")))
	require.Equal(t, 1, ExitCode(errors.New(errors.KindConvergence, "fs0 violated")))
	require.Equal(t, 2, ExitCode(errors.New(errors.KindInput, "bad topology")))
	require.Equal(t, 2, ExitCode(errors.New(errors.KindCanceled, "stopped")))
}
