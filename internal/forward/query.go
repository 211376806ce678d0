// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package forward

// Announcers reports, per prefix, which routers either originate it
// locally or announce it in over an eBGP session — the terminal condition
// for Reachable. Supplied by the network model, since the forwarding state
// alone doesn't carry route-origin information.
type Announcers map[int]map[int]bool

// Query bundles a forwarding State with the topology context (router count
// and prefix announcers) needed to answer path/reachability questions.
type Query struct {
	State      State
	Announcers Announcers
	NumRouters int
}

// NextHop delegates to the underlying State.
func (q Query) NextHop(router, prefix int) (int, bool) {
	return q.State.NextHop(router, prefix)
}

// Path walks next-hops from src for prefix, returning the router sequence
// ending at a terminal announcer, or (nil, false) if it runs off the edge
// of the forwarding table or loops. Paths are computed lazily: walking
// stops as soon as a repeat or a dead end is found.
func (q Query) Path(src, prefix int) ([]int, bool) {
	path := []int{src}
	visited := map[int]bool{src: true}

	cur := src
	for step := 0; step <= q.NumRouters; step++ {
		if q.isAnnouncer(cur, prefix) {
			return path, true
		}
		nh, ok := q.State.NextHop(cur, prefix)
		if !ok {
			return nil, false
		}
		if visited[nh] {
			return nil, false // loop
		}
		visited[nh] = true
		path = append(path, nh)
		cur = nh
	}
	return nil, false // exceeded |routers|+1 hops without resolving: treat as non-terminating
}

// LoopDetected reports whether Path(src, prefix) would cycle: a router
// repeats within |routers|+1 hops before reaching a terminal announcer.
func (q Query) LoopDetected(src, prefix int) bool {
	visited := map[int]bool{src: true}
	cur := src
	for step := 0; step <= q.NumRouters; step++ {
		if q.isAnnouncer(cur, prefix) {
			return false
		}
		nh, ok := q.State.NextHop(cur, prefix)
		if !ok {
			return false // dead end, not a loop
		}
		if visited[nh] {
			return true
		}
		visited[nh] = true
		cur = nh
	}
	return true
}

// Reachable reports whether a non-looping path from src for prefix ends at
// a router that originates the prefix or announces it in over eBGP.
func (q Query) Reachable(src, prefix int) bool {
	_, ok := q.Path(src, prefix)
	return ok
}

func (q Query) isAnnouncer(router, prefix int) bool {
	m, ok := q.Announcers[prefix]
	if !ok {
		return false
	}
	return m[router]
}
