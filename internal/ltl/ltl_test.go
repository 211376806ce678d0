// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ltl

import (
	"testing"

	"github.com/stretchr/testify/require"

	"snowcap.dev/snowcap/internal/forward"
)

func queryFrom(t *testing.T, numRouters int, nextHop map[forward.Key]int, announcers forward.Announcers) forward.Query {
	t.Helper()
	return forward.Query{State: forward.New(nextHop), Announcers: announcers, NumRouters: numRouters}
}

func TestCompileRejectsMalformedFormula(t *testing.T) {
	_, err := Compile("reach(0,")
	require.Error(t, err)

	_, err = Compile("path(0,1,\"[unterminated\")")
	require.Error(t, err)
}

func TestCompileExpandsImpliesAndNegation(t *testing.T) {
	f, err := Compile("!reach(0,1) -> noloop(2,3)")
	require.NoError(t, err)
	// !reach(0,1) -> noloop(2,3)  ==  reach(0,1) || noloop(2,3)  in NNF.
	require.Equal(t, KindOr, f.Kind)
	require.Equal(t, KindReach, f.Sub[0].Kind)
	require.False(t, f.Sub[0].Negated)
	require.Equal(t, KindNoLoop, f.Sub[1].Kind)
}

func TestMonitorGloballyReachSatisfiedAcrossTrace(t *testing.T) {
	f, err := Compile("G reach(0,1)")
	require.NoError(t, err)
	m := NewMonitor(f)

	announcers := forward.Announcers{1: {1: true}}
	q1 := queryFrom(t, 2, map[forward.Key]int{{Router: 0, Prefix: 1}: 1}, announcers)

	res := m.Step(q1, false)
	require.Equal(t, Undetermined, res.Verdict)

	res = m.Step(q1, true)
	require.Equal(t, Satisfied, res.Verdict)
}

func TestMonitorGloballyReachViolatedWhenLinkDrops(t *testing.T) {
	f, err := Compile("G reach(0,1)")
	require.NoError(t, err)
	m := NewMonitor(f)

	announcers := forward.Announcers{1: {1: true}}
	q1 := queryFrom(t, 2, map[forward.Key]int{{Router: 0, Prefix: 1}: 1}, announcers)
	res := m.Step(q1, false)
	require.Equal(t, Undetermined, res.Verdict)

	q2 := queryFrom(t, 2, map[forward.Key]int{}, announcers)
	res = m.Step(q2, false)
	require.Equal(t, Violated, res.Verdict)
	require.Equal(t, "reach(0,1)", res.Witness)
}

func TestMonitorEventuallyUnmetAtTraceEndIsViolated(t *testing.T) {
	f, err := Compile("F reach(0,1)")
	require.NoError(t, err)
	m := NewMonitor(f)

	announcers := forward.Announcers{1: {}}
	q := queryFrom(t, 2, map[forward.Key]int{}, announcers)

	res := m.Step(q, false)
	require.Equal(t, Undetermined, res.Verdict)

	res = m.Step(q, true)
	require.Equal(t, Violated, res.Verdict)
}

func TestMonitorEventuallySatisfiedAsSoonAsItFires(t *testing.T) {
	f, err := Compile("F reach(0,1)")
	require.NoError(t, err)
	m := NewMonitor(f)

	announcers := forward.Announcers{1: {1: true}}
	q := queryFrom(t, 2, map[forward.Key]int{{Router: 0, Prefix: 1}: 1}, announcers)

	res := m.Step(q, false)
	require.Equal(t, Satisfied, res.Verdict)
}

func TestMonitorUntilRequiresRightSideBeforeTraceEnds(t *testing.T) {
	f, err := Compile("noloop(0,1) U reach(0,1)")
	require.NoError(t, err)
	m := NewMonitor(f)

	announcers := forward.Announcers{1: {1: true}}
	// Step 1: right side false, left side true: stays undetermined.
	q1 := queryFrom(t, 2, map[forward.Key]int{}, announcers)
	res := m.Step(q1, false)
	require.Equal(t, Undetermined, res.Verdict)

	// Step 2 (final): right side now true: satisfied.
	q2 := queryFrom(t, 2, map[forward.Key]int{{Router: 0, Prefix: 1}: 1}, announcers)
	res = m.Step(q2, true)
	require.Equal(t, Satisfied, res.Verdict)
}

func TestMonitorNextObligationPastTraceEndIsViolated(t *testing.T) {
	f, err := Compile("X reach(0,1)")
	require.NoError(t, err)
	m := NewMonitor(f)

	announcers := forward.Announcers{1: {1: true}}
	q := queryFrom(t, 2, map[forward.Key]int{{Router: 0, Prefix: 1}: 1}, announcers)

	res := m.Step(q, true)
	require.Equal(t, Violated, res.Verdict)
}

func TestMonitorPathWaypointRegex(t *testing.T) {
	f, err := Compile(`path(0,2,"0 1 2 ")`)
	require.NoError(t, err)
	m := NewMonitor(f)

	announcers := forward.Announcers{2: {2: true}}
	q := queryFrom(t, 3, map[forward.Key]int{
		{Router: 0, Prefix: 2}: 1,
		{Router: 1, Prefix: 2}: 2,
	}, announcers)

	res := m.Step(q, true)
	require.Equal(t, Satisfied, res.Verdict)
}

func TestMonitorAndOrConnectives(t *testing.T) {
	f, err := Compile("reach(0,1) && (noloop(0,1) || reach(2,1))")
	require.NoError(t, err)
	m := NewMonitor(f)

	announcers := forward.Announcers{1: {1: true}}
	q := queryFrom(t, 3, map[forward.Key]int{{Router: 0, Prefix: 1}: 1}, announcers)

	res := m.Step(q, true)
	require.Equal(t, Satisfied, res.Verdict)
}
