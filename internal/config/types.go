// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package config models a network configuration as a set of atomic
// configuration expressions, the commands that mutate such a set, and the
// symmetric-difference diff between two configurations.
package config

// SessionKind distinguishes the three BGP session types recognized by
// route selection's eBGP-over-iBGP tie-break and by route reflection.
type SessionKind string

const (
	SessionIBGPPeer   SessionKind = "ibgp-peer"
	SessionIBGPClient SessionKind = "ibgp-client"
	SessionEBGP       SessionKind = "ebgp"
)

// Direction is a route-map's application point relative to a session.
type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// MatchPredicate is a route-map clause's match criteria. A zero-value field
// means "don't care" along that dimension.
type MatchPredicate struct {
	Prefix      *int
	ASPathRegex string
	Community   string
	NeighborAS  *int
}

// RouteMapAction is what a matching clause does to the route.
type RouteMapAction struct {
	Permit          bool
	SetLocalPref    *int
	SetMED          *int
	AddCommunity    string
	RemoveCommunity string
}

// RouteMapClause is one ordered match/action pair in a route-map.
type RouteMapClause struct {
	Seq    int
	Match  MatchPredicate
	Action RouteMapAction
}

// ExprKind tags the variant of a configuration expression.
type ExprKind string

const (
	ExprIGPWeight         ExprKind = "igp_weight"
	ExprStaticRoute       ExprKind = "static_route"
	ExprBGPSession        ExprKind = "bgp_session"
	ExprRouteMapClause    ExprKind = "route_map_clause"
	ExprLocalAnnouncement ExprKind = "local_announcement"
)

// IGPWeightValue sets the IGP weight of the link between routers A and B.
type IGPWeightValue struct {
	A, B   int
	Weight int
}

// StaticRouteValue installs a static next-hop for a prefix at a router,
// bypassing route selection.
type StaticRouteValue struct {
	Router  int
	Prefix  int
	NextHop int
}

// BGPSessionValue establishes (or, via a Remove command, tears down) a BGP
// session.
type BGPSessionValue struct {
	A, B int
	Kind SessionKind
}

// RouteMapClauseValue places one clause in the named (router, peer,
// direction) route-map.
type RouteMapClauseValue struct {
	Router    int
	Peer      int
	Direction Direction
	Clause    RouteMapClause
}

// LocalAnnouncementValue has an external router originate a prefix with the
// given AS-path.
type LocalAnnouncementValue struct {
	Router int
	Prefix int
	ASPath []int
}

// Expr is one atomic configuration expression: a stable key (its identity
// within a Configuration) and a kind-specific value.
type Expr struct {
	Kind  ExprKind
	Key   string
	Value any
}
