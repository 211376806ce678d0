// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package permute

import (
	"math/rand/v2"

	"snowcap.dev/snowcap/internal/config"
)

// RandomPermutator samples orderings of items uniformly without
// replacement, up to bound distinct orderings, using a seeded RNG so a
// fixed seed reproduces the same sequence of candidates.
type RandomPermutator struct {
	items []config.Command
	rng   *rand.Rand
	bound int

	seen    map[string]bool
	emitted int
}

// NewRandomPermutator builds a RandomPermutator over items, seeded for
// reproducibility, that stops yielding new orderings after bound distinct
// permutations (or after it gives up finding an unseen one, for item
// counts small enough that the full permutation space is close to bound).
func NewRandomPermutator(items []config.Command, seed uint64, bound int) *RandomPermutator {
	return &RandomPermutator{
		items: cloneCommands(items),
		rng:   rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		bound: bound,
		seen:  make(map[string]bool),
	}
}

// Next yields a uniformly random not-yet-seen permutation, or (nil, false)
// once bound distinct orderings have been emitted or the item count is too
// small to keep finding unseen ones.
func (r *RandomPermutator) Next() ([]config.Command, bool) {
	if r.emitted >= r.bound {
		return nil, false
	}

	maxAttempts := 64
	for attempt := 0; attempt < maxAttempts; attempt++ {
		candidate := r.shuffle()
		sig := signature(candidate)
		if r.seen[sig] {
			continue
		}
		r.seen[sig] = true
		r.emitted++
		return candidate, true
	}
	return nil, false
}

func (r *RandomPermutator) shuffle() []config.Command {
	out := cloneCommands(r.items)
	for i := len(out) - 1; i > 0; i-- {
		j := r.rng.IntN(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func signature(cmds []config.Command) string {
	s := ""
	for _, c := range cmds {
		s += c.Key + "\x00"
	}
	return s
}
