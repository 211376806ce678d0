// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package network

import (
	"sort"

	"snowcap.dev/snowcap/internal/config"
	"snowcap.dev/snowcap/internal/errors"
	"snowcap.dev/snowcap/internal/forward"
)

// TraceDelta is the set of forwarding-table changes a single ApplyCommand
// call produced, in deterministic (router, prefix) order.
type TraceDelta []forward.Change

// ApplyCommand applies one atomic configuration command: it performs the
// command's direct effect (installing a link weight, a session, a
// route-map clause, a static route, or an announcement), runs convergence
// to quiescence, and returns the resulting forwarding-table delta. Every
// mutation made along the way — direct and cascading — is pushed to an
// undo log keyed by the command's identity, so UndoCommand can restore the
// pre-apply state exactly.
func (n *Network) ApplyCommand(cmd config.Command) (TraceDelta, error) {
	id, err := identityOf(cmd)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "computing command identity")
	}

	entry := &logEntry{key: id}
	n.active = entry
	prevFS := n.ForwardingState()

	n.applyDirectEffect(cmd)
	convErr := n.converge()

	n.active = nil
	n.log = append(n.log, *entry)

	if convErr != nil {
		return nil, convErr
	}

	newFS := n.ForwardingState()
	return TraceDelta(forward.Diff(prevFS, newFS)), nil
}

// UndoCommand reverses the most recently applied command matching cmd's
// identity, replaying its recorded mutations in reverse order. Used by the
// search strategy to roll back to a prior ordering prefix; correctness
// (bit-identical to a freshly built network) relies on commands being
// undone in strict reverse application order.
func (n *Network) UndoCommand(cmd config.Command) error {
	id, err := identityOf(cmd)
	if err != nil {
		return errors.Wrap(err, errors.KindInternal, "computing command identity")
	}

	for i := len(n.log) - 1; i >= 0; i-- {
		if n.log[i].key != id {
			continue
		}
		entry := n.log[i]
		for j := len(entry.ops) - 1; j >= 0; j-- {
			entry.ops[j](n)
		}
		n.log = append(n.log[:i], n.log[i+1:]...)
		return nil
	}
	return errors.Errorf(errors.KindNotFound, "no applied command matches identity %s", id)
}

func (n *Network) applyDirectEffect(cmd config.Command) {
	switch cmd.Kind {
	case config.CommandInsert:
		n.applyInsert(cmd.Expr)
	case config.CommandRemove:
		n.applyRemove(cmd.Expr)
	case config.CommandUpdate:
		n.applyUpdate(cmd.Expr, cmd.OldValue, cmd.NewValue)
	}
}

func (n *Network) applyInsert(e config.Expr) {
	switch e.Kind {
	case config.ExprIGPWeight:
		v := e.Value.(config.IGPWeightValue)
		n.installIGPWeight(v.A, v.B, v.Weight)
	case config.ExprStaticRoute:
		v := e.Value.(config.StaticRouteValue)
		n.setStaticRoute(v.Router, v.Prefix, v.NextHop)
	case config.ExprBGPSession:
		v := e.Value.(config.BGPSessionValue)
		n.establishSession(v.A, v.B, v.Kind)
	case config.ExprRouteMapClause:
		v := e.Value.(config.RouteMapClauseValue)
		n.insertRouteMapClause(v)
	case config.ExprLocalAnnouncement:
		v := e.Value.(config.LocalAnnouncementValue)
		n.installAnnouncement(v)
	}
}

func (n *Network) applyRemove(e config.Expr) {
	switch e.Kind {
	case config.ExprIGPWeight:
		v := e.Value.(config.IGPWeightValue)
		n.uninstallIGPWeight(v.A, v.B)
	case config.ExprStaticRoute:
		v := e.Value.(config.StaticRouteValue)
		n.removeStaticRoute(v.Router, v.Prefix)
	case config.ExprBGPSession:
		v := e.Value.(config.BGPSessionValue)
		n.teardownSession(v.A, v.B)
	case config.ExprRouteMapClause:
		v := e.Value.(config.RouteMapClauseValue)
		n.removeRouteMapClause(v)
	case config.ExprLocalAnnouncement:
		v := e.Value.(config.LocalAnnouncementValue)
		n.uninstallAnnouncement(v)
	}
}

func (n *Network) applyUpdate(e config.Expr, oldValue, newValue any) {
	switch e.Kind {
	case config.ExprIGPWeight:
		ov, nv := oldValue.(config.IGPWeightValue), newValue.(config.IGPWeightValue)
		if ov.A != nv.A || ov.B != nv.B {
			n.uninstallIGPWeight(ov.A, ov.B)
		}
		n.installIGPWeight(nv.A, nv.B, nv.Weight)
	case config.ExprStaticRoute:
		nv := newValue.(config.StaticRouteValue)
		n.setStaticRoute(nv.Router, nv.Prefix, nv.NextHop)
	case config.ExprBGPSession:
		ov, nv := oldValue.(config.BGPSessionValue), newValue.(config.BGPSessionValue)
		n.teardownSession(ov.A, ov.B)
		n.establishSession(nv.A, nv.B, nv.Kind)
	case config.ExprRouteMapClause:
		ov, nv := oldValue.(config.RouteMapClauseValue), newValue.(config.RouteMapClauseValue)
		n.removeRouteMapClause(ov)
		n.insertRouteMapClause(nv)
	case config.ExprLocalAnnouncement:
		ov, nv := oldValue.(config.LocalAnnouncementValue), newValue.(config.LocalAnnouncementValue)
		n.uninstallAnnouncement(ov)
		n.installAnnouncement(nv)
	}
}

func (n *Network) installIGPWeight(a, b, weight int) {
	prevWeight, existed := n.setLinkWeight(a, b, weight)
	n.record(func(n *Network) {
		if existed {
			n.setLinkWeight(a, b, prevWeight)
		} else {
			n.removeLink(a, b)
		}
	})
	n.enqueueReselectAll()
}

func (n *Network) uninstallIGPWeight(a, b int) {
	prevWeight, existed := n.removeLink(a, b)
	if existed {
		n.record(func(n *Network) { n.setLinkWeight(a, b, prevWeight) })
	}
	n.enqueueReselectAll()
}

func (n *Network) setStaticRoute(router, prefix, nextHop int) {
	rs := n.routers[router]
	prevStatic, hadStatic := rs.staticFIB[prefix]
	rs.staticFIB[prefix] = nextHop
	n.record(func(n *Network) {
		rs := n.routers[router]
		if hadStatic {
			rs.staticFIB[prefix] = prevStatic
		} else {
			delete(rs.staticFIB, prefix)
		}
	})
	n.enqueue(message{to: router, prefix: prefix, kind: msgReselect})
}

func (n *Network) removeStaticRoute(router, prefix int) {
	rs := n.routers[router]
	prevStatic, hadStatic := rs.staticFIB[prefix]
	if hadStatic {
		delete(rs.staticFIB, prefix)
		n.record(func(n *Network) { n.routers[router].staticFIB[prefix] = prevStatic })
	}
	n.enqueue(message{to: router, prefix: prefix, kind: msgReselect})
}

func reciprocalKind(k config.SessionKind) config.SessionKind {
	if k == config.SessionIBGPClient {
		return config.SessionIBGPPeer
	}
	return k
}

func (n *Network) establishSession(a, b int, kind config.SessionKind) {
	n.addSessionSide(a, b, kind)
	n.addSessionSide(b, a, reciprocalKind(kind))

	for _, prefix := range sortedIntKeys(n.routers[a].localRIB) {
		n.propagate(a, prefix)
	}
	for _, prefix := range sortedIntKeys(n.routers[b].localRIB) {
		n.propagate(b, prefix)
	}
	for _, prefix := range sortedIntKeys(n.routers[a].announced) {
		n.announcePrefix(a, prefix)
	}
	for _, prefix := range sortedIntKeys(n.routers[b].announced) {
		n.announcePrefix(b, prefix)
	}
}

func (n *Network) addSessionSide(router, peer int, kind config.SessionKind) {
	rs := n.routers[router]
	prev, had := rs.sessions[peer]
	rs.sessions[peer] = session{peer: peer, kind: kind}
	n.record(func(n *Network) {
		if had {
			n.routers[router].sessions[peer] = prev
		} else {
			delete(n.routers[router].sessions, peer)
		}
	})
}

func (n *Network) teardownSession(a, b int) {
	n.withdrawAllFrom(a, b)
	n.withdrawAllFrom(b, a)
	n.removeSessionSide(a, b)
	n.removeSessionSide(b, a)
}

func (n *Network) removeSessionSide(router, peer int) {
	rs := n.routers[router]
	prev, had := rs.sessions[peer]
	if !had {
		return
	}
	delete(rs.sessions, peer)
	n.record(func(n *Network) { n.routers[router].sessions[peer] = prev })
}

func (n *Network) withdrawAllFrom(router, peer int) {
	rs := n.routers[router]
	byPrefix, ok := rs.ribIn[peer]
	if ok {
		for _, prefix := range sortedIntKeys(byPrefix) {
			n.setRIBIn(router, peer, prefix, Route{}, false)
			n.enqueue(message{to: router, prefix: prefix, kind: msgReselect})
		}
	}
	if n.advertisedOut[router] != nil {
		if m, ok := n.advertisedOut[router][peer]; ok {
			for _, prefix := range sortedIntKeys(m) {
				n.setAdvertised(router, peer, prefix, Route{}, false)
			}
		}
	}
}

func (n *Network) insertRouteMapClause(v config.RouteMapClauseValue) {
	n.mutateRouteMap(v, func(list []config.RouteMapClause) []config.RouteMapClause {
		out := append(append([]config.RouteMapClause(nil), list...), v.Clause)
		sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
		return out
	})
}

func (n *Network) removeRouteMapClause(v config.RouteMapClauseValue) {
	n.mutateRouteMap(v, func(list []config.RouteMapClause) []config.RouteMapClause {
		out := make([]config.RouteMapClause, 0, len(list))
		for _, c := range list {
			if c.Seq != v.Clause.Seq {
				out = append(out, c)
			}
		}
		return out
	})
}

func (n *Network) mutateRouteMap(v config.RouteMapClauseValue, mutate func([]config.RouteMapClause) []config.RouteMapClause) {
	rs := n.routers[v.Router]
	var table map[int][]config.RouteMapClause
	if v.Direction == config.DirectionIn {
		table = rs.routeMapIn
	} else {
		table = rs.routeMapOut
	}

	prev := table[v.Peer]
	next := mutate(prev)
	table[v.Peer] = next
	n.record(func(n *Network) {
		rs := n.routers[v.Router]
		if v.Direction == config.DirectionIn {
			rs.routeMapIn[v.Peer] = prev
		} else {
			rs.routeMapOut[v.Peer] = prev
		}
	})

	if v.Direction == config.DirectionIn {
		n.reapplyIngress(v.Router, v.Peer)
	} else {
		n.reapplyEgress(v.Router, v.Peer)
	}
}

// reapplyIngress re-runs route-map-in at router for everything peer last
// put on the wire, as if peer had just re-sent its whole table.
func (n *Network) reapplyIngress(router, peer int) {
	m := n.advertisedOut[peer][router]
	for _, prefix := range sortedIntKeys(m) {
		n.applyRIBIn(router, peer, prefix, m[prefix])
		n.enqueue(message{to: router, prefix: prefix, kind: msgReselect})
	}
}

// reapplyEgress re-evaluates everything router currently selects (or, for
// an External router, everything it originates), toward peer only, under
// the new route-map-out.
func (n *Network) reapplyEgress(router, peer int) {
	rs := n.routers[router]
	if rs.kind == RouterExternal {
		for _, prefix := range sortedIntKeys(rs.announced) {
			n.announceToPeer(router, prefix, peer)
		}
		return
	}
	for _, prefix := range sortedIntKeys(rs.localRIB) {
		n.propagateToPeer(router, prefix, peer)
	}
}

func (n *Network) installAnnouncement(v config.LocalAnnouncementValue) {
	rs := n.routers[v.Router]
	prev, had := rs.announced[v.Prefix]
	rs.announced[v.Prefix] = v
	n.record(func(n *Network) {
		rs := n.routers[v.Router]
		if had {
			rs.announced[v.Prefix] = prev
		} else {
			delete(rs.announced, v.Prefix)
		}
	})
	n.announcePrefix(v.Router, v.Prefix)
}

func (n *Network) uninstallAnnouncement(v config.LocalAnnouncementValue) {
	rs := n.routers[v.Router]
	prev, had := rs.announced[v.Prefix]
	if had {
		delete(rs.announced, v.Prefix)
		n.record(func(n *Network) { n.routers[v.Router].announced[v.Prefix] = prev })
	}
	n.withdrawAnnouncement(v.Router, v.Prefix)
}

func (n *Network) announcePrefix(router, prefix int) {
	for _, peer := range sortedSessionPeers(n.routers[router].sessions) {
		n.announceToPeer(router, prefix, peer)
	}
}

func (n *Network) announceToPeer(router, prefix, peer int) {
	av := n.routers[router].announced[prefix]
	route := Route{Prefix: prefix, ASPath: append([]int(nil), av.ASPath...), NextHop: router, Origin: router, LearnedFrom: NoPeer}

	out, permitted := applyRouteMapOrDefault(n.routers[router].routeMapOut[peer], route)
	prevMap := n.advertisedOut[router][peer]
	prev, hadPrev := prevMap[prefix]

	switch {
	case permitted && (!hadPrev || !routeEqual(prev, out)):
		n.setAdvertised(router, peer, prefix, out, true)
		n.enqueue(message{to: peer, from: router, prefix: prefix, route: out, kind: msgUpdate})
	case !permitted && hadPrev:
		n.setAdvertised(router, peer, prefix, Route{}, false)
		n.enqueue(message{to: peer, from: router, prefix: prefix, kind: msgWithdraw})
	}
}

func (n *Network) withdrawAnnouncement(router, prefix int) {
	for _, peer := range sortedSessionPeers(n.routers[router].sessions) {
		if n.advertisedOut[router] == nil {
			continue
		}
		m, ok := n.advertisedOut[router][peer]
		if !ok {
			continue
		}
		if _, had := m[prefix]; had {
			n.setAdvertised(router, peer, prefix, Route{}, false)
			n.enqueue(message{to: peer, from: router, prefix: prefix, kind: msgWithdraw})
		}
	}
}

// enqueueReselectAll forces every internal router to recompute best path
// for every prefix it currently holds any RIB-in data for, used after an
// IGP weight change since that can flip a cost tie-break without any BGP
// message being exchanged.
func (n *Network) enqueueReselectAll() {
	for r, rs := range n.routers {
		if rs.kind != RouterInternal {
			continue
		}
		prefixes := map[int]bool{}
		for _, byPrefix := range rs.ribIn {
			for p := range byPrefix {
				prefixes[p] = true
			}
		}
		for p := range rs.localRIB {
			prefixes[p] = true
		}
		ordered := make([]int, 0, len(prefixes))
		for p := range prefixes {
			ordered = append(ordered, p)
		}
		sort.Ints(ordered)
		for _, p := range ordered {
			n.enqueue(message{to: r, prefix: p, kind: msgReselect})
		}
	}
}

func sortedIntKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

func sortedSessionPeers(sessions map[int]session) []int {
	keys := make([]int, 0, len(sessions))
	for k := range sessions {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
