// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package network

import (
	"snowcap.dev/snowcap/internal/config"
	"snowcap.dev/snowcap/internal/forward"
	"snowcap.dev/snowcap/internal/ident"
)

// Network is the simulated BGP/IGP network: a flat, index-addressed table of
// routers and links, a per-directed-edge record of what was last advertised
// on the wire, and a command-keyed undo log built during convergence.
type Network struct {
	routers []*routerState

	links     []link
	linkIndex map[[2]int]int

	// advertisedOut[from][to][prefix] is the route "from" last sent "to"
	// over the wire, post from's route-map-out and pre to's route-map-in.
	advertisedOut map[int]map[int]map[int]Route

	igpDist    [][]int // all-pairs shortest IGP distance; -1 where unreachable
	igpNextHop [][]int // igpNextHop[a][b] = first hop from a toward b; -1 where unreachable

	queue    []message
	nextSeq  int
	stepCap  int

	log    []logEntry
	active *logEntry
}

// New builds an empty network of numRouters routers, all RouterInternal
// until SetRouterKind marks them otherwise.
func New(numRouters int) *Network {
	n := &Network{
		routers:       make([]*routerState, numRouters),
		linkIndex:     make(map[[2]int]int),
		advertisedOut: make(map[int]map[int]map[int]Route),
		stepCap:       100 * numRouters,
	}
	for i := range n.routers {
		n.routers[i] = newRouterState(RouterInternal)
	}
	n.recomputeIGP()
	return n
}

// NumRouters returns the router count.
func (n *Network) NumRouters() int {
	return len(n.routers)
}

// ForwardingState snapshots the current FIB across all routers into an
// immutable forward.State.
func (n *Network) ForwardingState() forward.State {
	m := make(map[forward.Key]int)
	for r, rs := range n.routers {
		for prefix, nh := range rs.fib {
			if nh != NoNextHop {
				m[forward.Key{Router: r, Prefix: prefix}] = nh
			}
		}
	}
	return forward.New(m)
}

// Announcers reports, per prefix, which routers originate or eBGP-announce
// it — used to build a forward.Query alongside ForwardingState.
func (n *Network) Announcers() forward.Announcers {
	out := forward.Announcers{}
	for r, rs := range n.routers {
		for prefix := range rs.announced {
			if out[prefix] == nil {
				out[prefix] = map[int]bool{}
			}
			out[prefix][r] = true
		}
	}
	return out
}

// Query bundles ForwardingState and Announcers into a forward.Query.
func (n *Network) Query() forward.Query {
	return forward.Query{State: n.ForwardingState(), Announcers: n.Announcers(), NumRouters: n.NumRouters()}
}

func (n *Network) record(op undoOp) {
	if n.active != nil {
		n.active.ops = append(n.active.ops, op)
	}
}

type undoOp func(n *Network)

type logEntry struct {
	key ident.Key
	ops []undoOp
}

func identityOf(cmd config.Command) (ident.Key, error) {
	kind := ident.Kind(cmd.Kind)
	switch cmd.Kind {
	case config.CommandInsert:
		return ident.NewKey(kind, cmd.Expr)
	case config.CommandRemove:
		return ident.NewKey(kind, cmd.Expr)
	case config.CommandUpdate:
		return ident.NewKey(kind, struct {
			Key string
			Old any
			New any
		}{cmd.Key, cmd.OldValue, cmd.NewValue})
	default:
		return ident.NewKey(kind, cmd)
	}
}
