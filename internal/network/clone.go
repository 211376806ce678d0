// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package network

// Clone deep-copies the network, including its undo log. Parallel search
// workers each operate on an independent Clone so no mutable state is
// shared across goroutines.
func (n *Network) Clone() *Network {
	cp := &Network{
		linkIndex:     make(map[[2]int]int, len(n.linkIndex)),
		advertisedOut: make(map[int]map[int]map[int]Route, len(n.advertisedOut)),
		stepCap:       n.stepCap,
		nextSeq:       n.nextSeq,
	}

	cp.routers = make([]*routerState, len(n.routers))
	for i, rs := range n.routers {
		cp.routers[i] = rs.clone()
	}

	cp.links = append([]link(nil), n.links...)
	for k, v := range n.linkIndex {
		cp.linkIndex[k] = v
	}

	cp.igpDist = make([][]int, len(n.igpDist))
	for i, row := range n.igpDist {
		cp.igpDist[i] = append([]int(nil), row...)
	}
	cp.igpNextHop = make([][]int, len(n.igpNextHop))
	for i, row := range n.igpNextHop {
		cp.igpNextHop[i] = append([]int(nil), row...)
	}

	for from, byTo := range n.advertisedOut {
		m := make(map[int]map[int]Route, len(byTo))
		for to, byPrefix := range byTo {
			pm := make(map[int]Route, len(byPrefix))
			for prefix, r := range byPrefix {
				pm[prefix] = r.clone()
			}
			m[to] = pm
		}
		cp.advertisedOut[from] = m
	}

	for _, msg := range n.queue {
		m := msg
		m.route = msg.route.clone()
		cp.queue = append(cp.queue, m)
	}

	cp.log = append([]logEntry(nil), n.log...)

	return cp
}
