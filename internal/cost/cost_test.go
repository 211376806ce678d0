// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package cost

import (
	"testing"

	"github.com/stretchr/testify/require"

	"snowcap.dev/snowcap/internal/forward"
)

func state(m map[forward.Key]int) forward.State {
	return forward.New(m)
}

func TestTrafficShiftCostSubtractsNecessaryShifts(t *testing.T) {
	initial := state(map[forward.Key]int{{Router: 0, Prefix: 0}: 1})
	target := state(map[forward.Key]int{{Router: 0, Prefix: 0}: 2})

	// A direct flip straight to the target: one shift, which is exactly the
	// one necessary shift, so cost is zero.
	trace := []forward.State{target}
	require.Equal(t, 0.0, TrafficShiftCost{}.Evaluate(trace, initial, target))
}

func TestTrafficShiftCostPenalizesExtraTransientShifts(t *testing.T) {
	initial := state(map[forward.Key]int{{Router: 0, Prefix: 0}: 1})
	intermediate := state(map[forward.Key]int{{Router: 0, Prefix: 0}: 3})
	target := state(map[forward.Key]int{{Router: 0, Prefix: 0}: 2})

	trace := []forward.State{intermediate, target}
	// Two shifts occur (1->3, 3->2), but only one was necessary.
	require.Equal(t, 1.0, TrafficShiftCost{}.Evaluate(trace, initial, target))
}

func TestTrafficShiftCostNeverNegative(t *testing.T) {
	initial := state(map[forward.Key]int{{Router: 0, Prefix: 0}: 1, {Router: 1, Prefix: 0}: 5})
	target := state(map[forward.Key]int{{Router: 0, Prefix: 0}: 2, {Router: 1, Prefix: 0}: 9})

	// Trace goes straight to target in one step: exactly the necessary
	// shifts, no transient extras, still zero.
	trace := []forward.State{target}
	require.Equal(t, 0.0, TrafficShiftCost{}.Evaluate(trace, initial, target))
}
