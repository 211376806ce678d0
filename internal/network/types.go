// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package network is a deterministic, event-driven BGP/IGP convergence
// engine. Routers and links are held in flat, index-addressed tables (no
// back-pointers), so deep-clone and rollback stay cheap and the message
// exchange during convergence is reproducible byte-for-byte across runs.
package network

import (
	"sort"

	"snowcap.dev/snowcap/internal/config"
)

// RouterKind distinguishes a router that runs IGP + iBGP route selection
// from one that only announces prefixes in over eBGP.
type RouterKind int

const (
	RouterInternal RouterKind = iota
	RouterExternal
)

// NoNextHop marks the absence of a forwarding entry or BGP next-hop.
const NoNextHop = -1

// NoPeer marks a Route as self-originated: LearnedFrom has no valid router
// id to collide with, since router ids are zero-indexed.
const NoPeer = -1

// Route is a BGP route as carried in a RIB-in slot or a local RIB slot.
type Route struct {
	Prefix      int
	ASPath      []int
	NextHop     int // the border/origin router packets should ultimately egress toward
	LocalPref   int
	MED         int
	Communities []string // kept sorted
	Origin      int      // the router that first announced this prefix

	// LearnedFrom/LearnedVia record provenance: the immediate peer and
	// session kind this route arrived over, used for propagation
	// eligibility (split horizon vs. route reflection). LearnedVia is
	// empty for a self-originated route.
	LearnedFrom int // NoPeer for a self-originated route
	LearnedVia  config.SessionKind
}

func (r Route) clone() Route {
	cp := r
	cp.ASPath = append([]int(nil), r.ASPath...)
	cp.Communities = append([]string(nil), r.Communities...)
	return cp
}

func (r Route) hasCommunity(c string) bool {
	for _, have := range r.Communities {
		if have == c {
			return true
		}
	}
	return false
}

func addCommunity(cs []string, c string) []string {
	for _, have := range cs {
		if have == c {
			return cs
		}
	}
	out := append(append([]string(nil), cs...), c)
	sort.Strings(out)
	return out
}

func removeCommunity(cs []string, c string) []string {
	out := make([]string, 0, len(cs))
	for _, have := range cs {
		if have != c {
			out = append(out, have)
		}
	}
	return out
}

type session struct {
	peer int
	kind config.SessionKind
}

// routerState is one router's mutable BGP/IGP state.
type routerState struct {
	kind RouterKind

	sessions map[int]session

	routeMapIn  map[int][]config.RouteMapClause // peer -> clauses
	routeMapOut map[int][]config.RouteMapClause

	ribIn    map[int]map[int]Route // peer -> prefix -> route (post route-map-in)
	localRIB map[int]Route         // prefix -> selected best route

	staticFIB map[int]int // prefix -> next-hop override, bypassing BGP selection
	fib       map[int]int // prefix -> effective next-hop (static override, else BGP selection), or NoNextHop

	announced map[int]config.LocalAnnouncementValue // prefix -> announcement (External routers only)
}

func newRouterState(kind RouterKind) *routerState {
	return &routerState{
		kind:        kind,
		sessions:    make(map[int]session),
		routeMapIn:  make(map[int][]config.RouteMapClause),
		routeMapOut: make(map[int][]config.RouteMapClause),
		ribIn:       make(map[int]map[int]Route),
		localRIB:    make(map[int]Route),
		staticFIB:   make(map[int]int),
		fib:         make(map[int]int),
		announced:   make(map[int]config.LocalAnnouncementValue),
	}
}

func (r *routerState) clone() *routerState {
	cp := newRouterState(r.kind)
	for k, v := range r.sessions {
		cp.sessions[k] = v
	}
	for k, v := range r.routeMapIn {
		cp.routeMapIn[k] = append([]config.RouteMapClause(nil), v...)
	}
	for k, v := range r.routeMapOut {
		cp.routeMapOut[k] = append([]config.RouteMapClause(nil), v...)
	}
	for peer, byPrefix := range r.ribIn {
		m := make(map[int]Route, len(byPrefix))
		for p, route := range byPrefix {
			m[p] = route.clone()
		}
		cp.ribIn[peer] = m
	}
	for p, route := range r.localRIB {
		cp.localRIB[p] = route.clone()
	}
	for p, nh := range r.staticFIB {
		cp.staticFIB[p] = nh
	}
	for p, nh := range r.fib {
		cp.fib[p] = nh
	}
	for p, a := range r.announced {
		av := a
		av.ASPath = append([]int(nil), a.ASPath...)
		cp.announced[p] = av
	}
	return cp
}

type link struct {
	a, b, weight int
}

func linkKey(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}
