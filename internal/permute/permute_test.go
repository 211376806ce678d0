// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package permute

import (
	"testing"

	"github.com/stretchr/testify/require"

	"snowcap.dev/snowcap/internal/config"
)

func cmd(key string) config.Command {
	return config.Command{Kind: config.CommandInsert, Key: key, Expr: config.Expr{Key: key}}
}

func keysOf(cmds []config.Command) []string {
	out := make([]string, len(cmds))
	for i, c := range cmds {
		out[i] = c.Key
	}
	return out
}

func TestRandomPermutatorYieldsDistinctOrderingsUpToBound(t *testing.T) {
	items := []config.Command{cmd("a"), cmd("b"), cmd("c"), cmd("d")}
	p := NewRandomPermutator(items, 42, 5)

	seen := map[string]bool{}
	count := 0
	for {
		c, ok := p.Next()
		if !ok {
			break
		}
		require.Len(t, c, 4)
		sig := ""
		for _, k := range keysOf(c) {
			sig += k
		}
		require.False(t, seen[sig], "must not repeat an ordering")
		seen[sig] = true
		count++
	}
	require.LessOrEqual(t, count, 5)
	require.Greater(t, count, 0)
}

func TestRandomPermutatorDeterministicForSameSeed(t *testing.T) {
	items := []config.Command{cmd("a"), cmd("b"), cmd("c")}
	p1 := NewRandomPermutator(items, 7, 3)
	p2 := NewRandomPermutator(items, 7, 3)

	for {
		c1, ok1 := p1.Next()
		c2, ok2 := p2.Next()
		require.Equal(t, ok1, ok2)
		if !ok1 {
			break
		}
		require.Equal(t, keysOf(c1), keysOf(c2))
	}
}

func TestTreePermutatorEnumeratesAllPermutationsInKeyOrder(t *testing.T) {
	items := []config.Command{cmd("b"), cmd("a"), cmd("c")}
	tp := NewTreePermutator(items)
	defer tp.Close()

	var all [][]string
	for {
		c, ok := tp.Next()
		if !ok {
			break
		}
		all = append(all, keysOf(c))
	}
	require.Len(t, all, 6) // 3!
	require.Equal(t, []string{"a", "b", "c"}, all[0], "default rank is ascending key, so the first candidate is fully sorted")
}

func TestTreePermutatorPinPrefix(t *testing.T) {
	items := []config.Command{cmd("a"), cmd("b"), cmd("c")}
	tp := NewTreePermutator(items)
	tp.SetPinPrefix([]config.Command{cmd("c")})
	defer tp.Close()

	for {
		c, ok := tp.Next()
		if !ok {
			break
		}
		require.Equal(t, "c", c[0].Key)
	}
}

func TestTreePermutatorPruneSkipsSubtree(t *testing.T) {
	items := []config.Command{cmd("a"), cmd("b"), cmd("c")}
	tp := NewTreePermutator(items)
	tp.SetPrune(func(partial []config.Command) bool {
		return len(partial) > 0 && partial[0].Key == "a"
	})
	defer tp.Close()

	var all [][]string
	for {
		c, ok := tp.Next()
		if !ok {
			break
		}
		all = append(all, keysOf(c))
	}
	require.Len(t, all, 4) // 3! minus the 2 starting with "a"
	for _, o := range all {
		require.NotEqual(t, "a", o[0])
	}
}

func TestHeuristicPermutatorSortsByScoreThenKey(t *testing.T) {
	items := []config.Command{cmd("z"), cmd("a"), cmd("m")}
	scores := map[string]float64{"z": 1, "a": 1, "m": 5}
	hp := NewHeuristicPermutator(items, func(c config.Command) float64 { return scores[c.Key] })

	c, ok := hp.Next()
	require.True(t, ok)
	require.Equal(t, []string{"m", "a", "z"}, keysOf(c))

	_, ok = hp.Next()
	require.False(t, ok)
}
