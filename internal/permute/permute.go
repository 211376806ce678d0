// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package permute yields, on demand, permutations of a finite multiset of
// configuration commands for the strategy search to try.
package permute

import "snowcap.dev/snowcap/internal/config"

// Permutator yields successive candidate orderings of a fixed set of
// commands. Next returns (nil, false) once exhausted.
type Permutator interface {
	Next() ([]config.Command, bool)
}

func cloneCommands(cmds []config.Command) []config.Command {
	out := make([]config.Command, len(cmds))
	copy(out, cmds)
	return out
}

// byKey sorts a copy of cmds ascending by Key, the deterministic tie-break
// the strategy's candidate generator relies on.
func byKey(cmds []config.Command) []config.Command {
	out := cloneCommands(cmds)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Key < out[j-1].Key; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func removeAt(cmds []config.Command, i int) []config.Command {
	out := make([]config.Command, 0, len(cmds)-1)
	out = append(out, cmds[:i]...)
	out = append(out, cmds[i+1:]...)
	return out
}

func containsKey(cmds []config.Command, key string) bool {
	for _, c := range cmds {
		if c.Key == key {
			return true
		}
	}
	return false
}

// subtractByKey returns the elements of all not present (by Key) in used.
func subtractByKey(all, used []config.Command) []config.Command {
	out := make([]config.Command, 0, len(all))
	for _, c := range all {
		if !containsKey(used, c.Key) {
			out = append(out, c)
		}
	}
	return out
}
