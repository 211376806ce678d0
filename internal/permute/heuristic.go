// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package permute

import "snowcap.dev/snowcap/internal/config"

// RankScore assigns a command an importance score; HeuristicPermutator
// sorts descending by score (ties broken ascending by Key), implementing
// baselines like Most-Important-First.
type RankScore func(config.Command) float64

// HeuristicPermutator yields exactly one ordering: items sorted by a rank
// function. It exists as a non-search baseline to compare the TRTA
// strategy's search quality against.
type HeuristicPermutator struct {
	items    []config.Command
	score    RankScore
	emitted  bool
}

// NewHeuristicPermutator builds a HeuristicPermutator that yields items
// sorted descending by score, ties broken ascending by Key.
func NewHeuristicPermutator(items []config.Command, score RankScore) *HeuristicPermutator {
	return &HeuristicPermutator{items: cloneCommands(items), score: score}
}

// Next returns the single heuristically-ranked ordering, then (nil, false)
// on every subsequent call.
func (h *HeuristicPermutator) Next() ([]config.Command, bool) {
	if h.emitted {
		return nil, false
	}
	h.emitted = true

	out := byKey(h.items)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && h.score(out[j]) > h.score(out[j-1]); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out, true
}
