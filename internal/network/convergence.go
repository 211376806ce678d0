// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package network

import (
	"snowcap.dev/snowcap/internal/config"
	"snowcap.dev/snowcap/internal/errors"
)

type msgKind int

const (
	msgUpdate msgKind = iota
	msgWithdraw
	msgReselect
)

// message is one unit of the convergence event queue: a BGP update or
// withdraw, or a pseudo-message forcing a router to recompute its best path
// for a prefix (used after an IGP weight change, which can flip a tie-break
// without any route exchange).
type message struct {
	seq    int
	to     int
	from   int
	prefix int
	route  Route
	kind   msgKind
}

// enqueue appends msg to the event queue with the next arrival sequence
// number, for deterministic FIFO-per-router ordering.
func (n *Network) enqueue(msg message) {
	msg.seq = n.nextSeq
	n.nextSeq++
	n.queue = append(n.queue, msg)
}

// popMin removes and returns the queued message with the lexicographically
// smallest (to, seq) key — the router processing order is deterministic and
// does not depend on slice insertion position.
func (n *Network) popMin() message {
	best := 0
	for i := 1; i < len(n.queue); i++ {
		if less(n.queue[i], n.queue[best]) {
			best = i
		}
	}
	msg := n.queue[best]
	n.queue = append(n.queue[:best], n.queue[best+1:]...)
	return msg
}

func less(a, b message) bool {
	if a.to != b.to {
		return a.to < b.to
	}
	return a.seq < b.seq
}

// converge drains the event queue, applying each message's effect and
// re-enqueueing downstream updates, until quiescent or the step cap
// (100 * |routers|) is exceeded.
func (n *Network) converge() error {
	steps := 0
	for len(n.queue) > 0 {
		steps++
		if steps > n.stepCap {
			return errors.New(errors.KindConvergence, "convergence did not quiesce within the step budget")
		}
		msg := n.popMin()
		n.process(msg)
	}
	return nil
}

func (n *Network) process(msg message) {
	rs := n.routers[msg.to]
	if rs.kind != RouterInternal {
		return // external routers don't run BGP route selection
	}

	switch msg.kind {
	case msgReselect:
		if n.selectBest(msg.to, msg.prefix) {
			n.propagate(msg.to, msg.prefix)
		}
		return
	case msgWithdraw:
		n.withdrawRIBIn(msg.to, msg.from, msg.prefix)
	case msgUpdate:
		n.applyRIBIn(msg.to, msg.from, msg.prefix, msg.route)
	}

	if n.selectBest(msg.to, msg.prefix) {
		n.propagate(msg.to, msg.prefix)
	}
}

func (n *Network) applyRIBIn(router, peer, prefix int, wireRoute Route) {
	rs := n.routers[router]
	sess, ok := rs.sessions[peer]
	if !ok {
		return
	}
	filtered, permitted := applyRouteMapOrDefault(rs.routeMapIn[peer], wireRoute)
	if permitted {
		filtered.LearnedFrom = peer
		filtered.LearnedVia = sess.kind
		if sess.kind == config.SessionEBGP {
			// Next-hop-self: an eBGP peer's address isn't assumed
			// IGP-reachable, so the receiving border router
			// becomes the next-hop for anything redistributed
			// into the AS.
			filtered.NextHop = router
		}
	}
	n.setRIBIn(router, peer, prefix, filtered, permitted)
}

func (n *Network) withdrawRIBIn(router, peer, prefix int) {
	n.setRIBIn(router, peer, prefix, Route{}, false)
}

func (n *Network) setRIBIn(router, peer, prefix int, r Route, present bool) {
	rs := n.routers[router]
	if rs.ribIn[peer] == nil {
		rs.ribIn[peer] = map[int]Route{}
	}
	m := rs.ribIn[peer]
	prev, hadPrev := m[prefix]

	if present {
		m[prefix] = r
	} else if hadPrev {
		delete(m, prefix)
	}

	n.record(func(n *Network) {
		m := n.routers[router].ribIn[peer]
		if hadPrev {
			m[prefix] = prev
		} else {
			delete(m, prefix)
		}
	})
}
