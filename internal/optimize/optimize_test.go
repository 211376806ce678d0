// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package optimize

import (
	"testing"

	"github.com/stretchr/testify/require"

	"snowcap.dev/snowcap/internal/config"
	"snowcap.dev/snowcap/internal/cost"
	"snowcap.dev/snowcap/internal/forward"
	"snowcap.dev/snowcap/internal/ltl"
	"snowcap.dev/snowcap/internal/network"
	"snowcap.dev/snowcap/internal/strategy"
)

func insert(t *testing.T, n *network.Network, e config.Expr) {
	t.Helper()
	_, err := n.ApplyCommand(config.Command{Kind: config.CommandInsert, Key: e.Key, Expr: e})
	require.NoError(t, err)
}

// migrationTopology is the same two-router, static-route-to-BGP migration
// gadget strategy's own tests build: router 0 reaches prefix 0 via a
// static route to router 1 (an External announcer) that must be
// withdrawn only after its BGP replacement is ready.
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

// zeroCost is a stand-in soft-cost function: all three hard-valid orderings of
// migrationDelta leave prefix 0 routed to router 1 throughout (the static
// route and its BGP replacement resolve to the same next hop), so every
// trace step is a no-op FIB diff either way and TrafficShiftCost itself
// can't tell them apart. Real per-command scoring is TrafficShiftCost,
// exercised directly in internal/cost and by
// TestOptimizeKeepsOnlyOneResultWhenSearchSpaceIsTrivial below; this stub
// exists only so TestOptimizeExhaustsTheSearchSpaceAndKeepsTheFirstOfEqualCostFinds
// can drive the optimizer loop across its whole search space deterministically.
type zeroCost struct{}

func (zeroCost) Evaluate(trace []forward.State, initial, target forward.State) float64 { return 0 }

// TestOptimizeExhaustsTheSearchSpaceAndKeepsTheFirstOfEqualCostFinds drives
// the Optimizer past Strategy's first hard-valid ordering: since every
// hard-valid ordering of this delta scores identically under zeroCost, the
// loop must keep going until Synthesize exhausts the permutation tree and
// still return a hard-valid ordering with a nil error, rather than
// stopping at (or erroring out after) the first one found. Only a strictly
// cheaper find replaces the best, so the first find is the one kept.
func TestOptimizeExhaustsTheSearchSpaceAndKeepsTheFirstOfEqualCostFinds(t *testing.T) {
	n := migrationTopology(t)
	formula, err := ltl.Compile("G reach(0,0)")
	require.NoError(t, err)

	s := strategy.New(n, formula, migrationDelta())
	o := New(s, zeroCost{})

	result, err := o.Optimize(strategy.Budget{MaxIterations: 50}, nil)
	require.NoError(t, err)

	require.Equal(t, "a_remove_static0", result.Ordering[len(result.Ordering)-1].Key,
		"the first hard-valid find, kept because later finds are not cheaper, withdraws the static route last")
	require.Equal(t, 0.0, result.Cost)
	require.Greater(t, result.Iterations, 1, "Optimize must have called Synthesize again after the first hard-valid find")
}

func TestOptimizeKeepsOnlyOneResultWhenSearchSpaceIsTrivial(t *testing.T) {
	n := network.New(2)
	require.NoError(t, n.SetRouterKind(1, network.RouterExternal))
	insert(t, n, config.Expr{Kind: config.ExprLocalAnnouncement, Key: "ann:1-1", Value: config.LocalAnnouncementValue{Router: 1, Prefix: 1, ASPath: []int{65001}}})
	insert(t, n, config.Expr{Kind: config.ExprStaticRoute, Key: "perm_static", Value: config.StaticRouteValue{Router: 0, Prefix: 1, NextHop: 1}})

	formula, err := ltl.Compile("G reach(0,1)")
	require.NoError(t, err)

	delta := []config.Command{
		{Kind: config.CommandInsert, Key: "only", Expr: config.Expr{Kind: config.ExprStaticRoute, Key: "only", Value: config.StaticRouteValue{Router: 0, Prefix: 0, NextHop: 1}}},
	}

	s := strategy.New(n, formula, delta)
	o := New(s, cost.TrafficShiftCost{})

	result, err := o.Optimize(strategy.Budget{MaxIterations: 10}, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"only"}, keysOf(result.Ordering))
	require.Equal(t, 1, result.Iterations)
	require.Equal(t, 0.0, result.Cost, "the one shift a fresh static-route insert causes is also in the initial-to-target diff, so it is subtracted as necessary")
}

// TestOptimizeReturnsUnderlyingErrorWhenNoHardValidOrderingExists confirms
// the "best == nil" path: if Synthesize never once succeeds, Optimize must
// propagate its terminal error rather than returning a zero Result with a
// nil error.
func TestOptimizeReturnsUnderlyingErrorWhenNoHardValidOrderingExists(t *testing.T) {
	n := network.New(2) // no static route, no announcer: prefix 0 is unreachable from the start
	formula, err := ltl.Compile("G reach(0,0)")
	require.NoError(t, err)

	s := strategy.New(n, formula, migrationDelta())
	o := New(s, cost.TrafficShiftCost{})

	_, err = o.Optimize(strategy.Budget{MaxIterations: 50}, nil)
	require.Error(t, err)
}

func TestSnapshotReflectsBestCostFoundAfterCompletion(t *testing.T) {
	n := migrationTopology(t)
	formula, err := ltl.Compile("G reach(0,0)")
	require.NoError(t, err)

	s := strategy.New(n, formula, migrationDelta())
	o := New(s, zeroCost{})

	before := o.Snapshot()
	require.False(t, before.HasBest)

	_, err = o.Optimize(strategy.Budget{MaxIterations: 50}, nil)
	require.NoError(t, err)

	after := o.Snapshot()
	require.True(t, after.HasBest)
	require.Equal(t, 0.0, after.BestCost)
	require.Greater(t, after.Iterations, 1)
}

func keysOf(cmds []config.Command) []string {
	out := make([]string, len(cmds))
	for i, c := range cmds {
		out[i] = c.Key
	}
	return out
}
