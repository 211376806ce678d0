// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package network

import "snowcap.dev/snowcap/internal/config"

// selectBest recomputes the best route for (router, prefix) from its
// ribIn entries, updates localRIB/fib if it changed, logs the reversal,
// and reports whether the selected route changed.
func (n *Network) selectBest(router, prefix int) (changed bool) {
	rs := n.routers[router]

	var best Route
	haveBest := false
	for _, byPrefix := range rs.ribIn {
		cand, ok := byPrefix[prefix]
		if !ok {
			continue
		}
		if !haveBest || n.betterRoute(router, cand, best) {
			best = cand
			haveBest = true
		}
	}

	old, hadOld := rs.localRIB[prefix]
	oldFIB, hadFIB := rs.fib[prefix]

	if !haveBest {
		if hadOld {
			delete(rs.localRIB, prefix)
			n.record(func(n *Network) { n.routers[router].localRIB[prefix] = old })
		}
	} else if !hadOld || !routeEqual(old, best) {
		rs.localRIB[prefix] = best
		if hadOld {
			n.record(func(n *Network) { n.routers[router].localRIB[prefix] = old })
		} else {
			n.record(func(n *Network) { delete(n.routers[router].localRIB, prefix) })
		}
	}

	newFIB := NoNextHop
	if _, static := rs.staticFIB[prefix]; static {
		newFIB = rs.staticFIB[prefix]
	} else if haveBest {
		if best.NextHop == router {
			// This router is itself the egress border for the prefix:
			// forward straight out to the eBGP peer it learned it from.
			newFIB = best.LearnedFrom
		} else if hop, ok := n.igpNextHopTo(router, best.NextHop); ok {
			newFIB = hop
		}
	}
	if newFIB != oldFIB {
		rs.fib[prefix] = newFIB
		if hadFIB {
			n.record(func(n *Network) { n.routers[router].fib[prefix] = oldFIB })
		} else {
			n.record(func(n *Network) { delete(n.routers[router].fib, prefix) })
		}
	}

	if hadOld != haveBest {
		return true
	}
	return hadOld && haveBest && !routeEqual(old, best)
}

func routeEqual(a, b Route) bool {
	if a.Prefix != b.Prefix || a.NextHop != b.NextHop || a.LocalPref != b.LocalPref ||
		a.MED != b.MED || a.Origin != b.Origin || a.LearnedFrom != b.LearnedFrom || a.LearnedVia != b.LearnedVia {
		return false
	}
	if len(a.ASPath) != len(b.ASPath) || len(a.Communities) != len(b.Communities) {
		return false
	}
	for i := range a.ASPath {
		if a.ASPath[i] != b.ASPath[i] {
			return false
		}
	}
	for i := range a.Communities {
		if a.Communities[i] != b.Communities[i] {
			return false
		}
	}
	return true
}

// betterRoute reports whether candidate a is strictly preferred over b for
// router's route selection: local-pref, AS-path length, MED (only between
// routes with the same neighbor — here approximated by the same immediate
// LearnedFrom peer, since peer-AS mapping isn't separately modeled), eBGP
// over iBGP, IGP cost to next-hop, and finally a deterministic router-id
// tie-break on LearnedFrom.
func (n *Network) betterRoute(router int, a, b Route) bool {
	if a.LocalPref != b.LocalPref {
		return a.LocalPref > b.LocalPref
	}
	if len(a.ASPath) != len(b.ASPath) {
		return len(a.ASPath) < len(b.ASPath)
	}
	if a.LearnedFrom == b.LearnedFrom && a.MED != b.MED {
		return a.MED < b.MED
	}
	aEBGP := a.LearnedVia == config.SessionEBGP
	bEBGP := b.LearnedVia == config.SessionEBGP
	if aEBGP != bEBGP {
		return aEBGP
	}
	aCost, aOK := n.igpCost(router, a.NextHop)
	bCost, bOK := n.igpCost(router, b.NextHop)
	switch {
	case aOK && !bOK:
		return true
	case !aOK && bOK:
		return false
	case aOK && bOK && aCost != bCost:
		return aCost < bCost
	}
	return a.LearnedFrom < b.LearnedFrom
}

// eligibleToPropagate decides, per classic split-horizon / route-reflection
// rules, whether a route learned as described may be re-advertised toward
// peer "toward" of the given session kind.
func eligibleToPropagate(route Route, towardKind config.SessionKind) bool {
	switch route.LearnedVia {
	case "":
		return true // self-originated
	case config.SessionEBGP:
		return true
	case config.SessionIBGPClient:
		return true // reflected from a client: send everywhere
	case config.SessionIBGPPeer:
		return towardKind == config.SessionEBGP || towardKind == config.SessionIBGPClient
	default:
		return false
	}
}

// propagate re-evaluates what router should advertise to each of its peers
// for prefix, given the just-selected new best route (absent if withdrawn),
// enqueueing update/withdraw messages for anything that changed on the wire.
func (n *Network) propagate(router, prefix int) {
	for peer := range n.routers[router].sessions {
		n.propagateToPeer(router, prefix, peer)
	}
}

// propagateToPeer re-evaluates, and if needed re-sends or withdraws, what
// router advertises to a single peer for prefix.
func (n *Network) propagateToPeer(router, prefix, peer int) {
	rs := n.routers[router]
	best, haveBest := rs.localRIB[prefix]
	sess := rs.sessions[peer]

	if haveBest && peer == best.LearnedFrom {
		return // never re-advertise back to the sender
	}

	var outRoute Route
	permitted := false
	if haveBest && eligibleToPropagate(best, sess.kind) {
		outRoute, permitted = applyRouteMapOrDefault(rs.routeMapOut[peer], best)
	}

	prevMap := n.advertisedOut[router][peer]
	prev, hadPrev := prevMap[prefix]

	switch {
	case permitted && (!hadPrev || !routeEqual(prev, outRoute)):
		n.setAdvertised(router, peer, prefix, outRoute, true)
		n.enqueue(message{to: peer, from: router, prefix: prefix, route: outRoute, kind: msgUpdate})
	case !permitted && hadPrev:
		n.setAdvertised(router, peer, prefix, Route{}, false)
		n.enqueue(message{to: peer, from: router, prefix: prefix, kind: msgWithdraw})
	}
}

func (n *Network) setAdvertised(from, to, prefix int, r Route, present bool) {
	if n.advertisedOut[from] == nil {
		n.advertisedOut[from] = map[int]map[int]Route{}
	}
	if n.advertisedOut[from][to] == nil {
		n.advertisedOut[from][to] = map[int]Route{}
	}
	prevMap := n.advertisedOut[from][to]
	prev, hadPrev := prevMap[prefix]

	if present {
		prevMap[prefix] = r
	} else {
		delete(prevMap, prefix)
	}

	n.record(func(n *Network) {
		m := n.advertisedOut[from][to]
		if hadPrev {
			m[prefix] = prev
		} else {
			delete(m, prefix)
		}
	})
}
