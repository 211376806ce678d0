// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package forward represents a converged forwarding state — a total
// function (router, prefix) -> next-hop ∪ {none} — and answers path and
// reachability queries over it without materializing full paths eagerly.
package forward

import "sort"

// NoNextHop marks a (router, prefix) pair with no forwarding entry.
const NoNextHop = -1

// Key identifies one forwarding-table slot.
type Key struct {
	Router int
	Prefix int
}

// State is an immutable snapshot of the converged forwarding table.
type State struct {
	nextHop map[Key]int
}

// New builds a State from a plain map. The caller must not mutate m
// afterward; New does not copy it.
func New(m map[Key]int) State {
	return State{nextHop: m}
}

// Empty returns a State with no forwarding entries.
func Empty() State {
	return State{nextHop: make(map[Key]int)}
}

// NextHop returns the next-hop router for (router, prefix), or
// (NoNextHop, false) if none exists.
func (s State) NextHop(router, prefix int) (int, bool) {
	nh, ok := s.nextHop[Key{Router: router, Prefix: prefix}]
	if !ok {
		return NoNextHop, false
	}
	return nh, true
}

// Keys returns all (router, prefix) pairs with a forwarding entry, in
// deterministic order.
func (s State) Keys() []Key {
	keys := make([]Key, 0, len(s.nextHop))
	for k := range s.nextHop {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Router != keys[j].Router {
			return keys[i].Router < keys[j].Router
		}
		return keys[i].Prefix < keys[j].Prefix
	})
	return keys
}

// Change is one (router, prefix) next-hop transition between two States.
type Change struct {
	Router         int
	Prefix         int
	OldNextHop     int // NoNextHop if there was none
	NewNextHop     int // NoNextHop if there is none now
}

// Diff returns the (router, prefix) entries that differ between prev and
// s, in deterministic order. Used both as the apply() TraceDelta and as the
// incremental snapshot kept between synthesis steps, so per-step memory is
// O(|changes|) rather than O(|routers|*|prefixes|).
func Diff(prev, s State) []Change {
	seen := make(map[Key]struct{}, len(prev.nextHop)+len(s.nextHop))
	for k := range prev.nextHop {
		seen[k] = struct{}{}
	}
	for k := range s.nextHop {
		seen[k] = struct{}{}
	}

	keys := make([]Key, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Router != keys[j].Router {
			return keys[i].Router < keys[j].Router
		}
		return keys[i].Prefix < keys[j].Prefix
	})

	var changes []Change
	for _, k := range keys {
		oldNH, oldOK := prev.nextHop[k]
		newNH, newOK := s.nextHop[k]
		if !oldOK {
			oldNH = NoNextHop
		}
		if !newOK {
			newNH = NoNextHop
		}
		if oldNH != newNH {
			changes = append(changes, Change{Router: k.Router, Prefix: k.Prefix, OldNextHop: oldNH, NewNextHop: newNH})
		}
	}
	return changes
}
