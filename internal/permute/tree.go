// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package permute

import "snowcap.dev/snowcap/internal/config"

// RankFunc orders the not-yet-placed commands at one level of the DFS
// before TreePermutator descends into them; the strategy uses this to
// implement "fewest PG constraints first, ascending command key".
type RankFunc func(remaining []config.Command) []config.Command

// PruneFunc reports whether the subtree rooted at partial (a prefix of a
// candidate ordering) should be skipped entirely.
type PruneFunc func(partial []config.Command) bool

// TreePermutator performs a depth-first search over the permutation tree
// of a command set, supporting a fixed pin prefix (the first k commands
// of every candidate) and a prune hook consulted at every node, so a
// counter-example recorded against one branch prunes the whole branch
// rather than being rediscovered by every subsequent candidate.
//
// It's implemented as a generator: Next pulls one leaf at a time off a
// background goroutine that walks the tree via DFS, recursion standing in
// for the tree's stack, and a cancellable output channel in place of an
// explicit resumable-stack data structure.
type TreePermutator struct {
	items     []config.Command
	pinPrefix []config.Command
	rank      RankFunc
	prune     PruneFunc

	out  chan []config.Command
	done chan struct{}
}

// NewTreePermutator builds a TreePermutator over items with no pin prefix
// and no pruning; use SetPinPrefix/SetPrune before the first Next call to
// configure it.
func NewTreePermutator(items []config.Command) *TreePermutator {
	return &TreePermutator{items: cloneCommands(items)}
}

// SetPinPrefix fixes the first len(prefix) commands of every candidate
// this permutator yields from here on. Must be called before the first
// Next, or after Reset.
func (t *TreePermutator) SetPinPrefix(prefix []config.Command) {
	t.pinPrefix = cloneCommands(prefix)
}

// SetRank installs the ordering hook used to choose among not-yet-placed
// commands at each DFS level. Must be called before the first Next, or
// after Reset.
func (t *TreePermutator) SetRank(fn RankFunc) { t.rank = fn }

// SetPrune installs the pruning hook consulted at every partial ordering,
// including the empty prefix. Must be called before the first Next, or
// after Reset.
func (t *TreePermutator) SetPrune(fn PruneFunc) { t.prune = fn }

// Reset discards any in-flight enumeration (stopping its goroutine) so the
// permutator can be reconfigured and restarted from the root.
func (t *TreePermutator) Reset() {
	if t.done != nil {
		close(t.done)
	}
	t.out = nil
	t.done = nil
}

// Next returns the next candidate ordering in DFS order, or (nil, false)
// once the tree (after pruning) is exhausted.
func (t *TreePermutator) Next() ([]config.Command, bool) {
	if t.out == nil {
		t.start()
	}
	v, ok := <-t.out
	return v, ok
}

// Close stops the background goroutine if a Next is never going to be
// called again; safe to call multiple times.
func (t *TreePermutator) Close() { t.Reset() }

func (t *TreePermutator) start() {
	t.out = make(chan []config.Command)
	t.done = make(chan struct{})
	go func() {
		defer close(t.out)
		remaining := subtractByKey(t.items, t.pinPrefix)
		t.dfs(cloneCommands(t.pinPrefix), remaining)
	}()
}

// dfs walks the permutation tree, sending each completed ordering on
// t.out. It returns false to unwind immediately once t.done is closed.
func (t *TreePermutator) dfs(partial, remaining []config.Command) bool {
	if t.prune != nil && t.prune(partial) {
		return true
	}
	if len(remaining) == 0 {
		select {
		case t.out <- cloneCommands(partial):
			return true
		case <-t.done:
			return false
		}
	}

	ordered := remaining
	if t.rank != nil {
		ordered = t.rank(remaining)
	} else {
		ordered = byKey(remaining)
	}

	for i, c := range ordered {
		next := append(cloneCommands(partial), c)
		rest := removeAt(ordered, i)
		if !t.dfs(next, rest) {
			return false
		}
	}
	return true
}
