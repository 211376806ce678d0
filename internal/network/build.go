// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package network

import (
	"sort"

	"snowcap.dev/snowcap/internal/config"
	"snowcap.dev/snowcap/internal/errors"
)

// SetRouterKind marks router as Internal (runs IGP + BGP route selection)
// or External (only originates announcements over eBGP). Not itself a
// configuration expression: router kinds are topology-fixed, decided once
// when the network is built from a topology, before any command is
// applied.
func (n *Network) SetRouterKind(router int, kind RouterKind) error {
	if router < 0 || router >= len(n.routers) {
		return errors.Errorf(errors.KindInput, "router %d out of range", router)
	}
	n.routers[router].kind = kind
	return nil
}

// BuildFromConfig constructs a converged Network of numRouters routers by
// inserting every expression in c as a Command, in deterministic key order.
// Used to materialize both the initial (C0) and target (C1) configurations
// before diffing them into the command sequence the search permutes.
func BuildFromConfig(numRouters int, c *config.Configuration) (*Network, error) {
	n := New(numRouters)
	for r, kind := range RouterKindsFromConfig(numRouters, c) {
		_ = n.SetRouterKind(r, kind)
	}
	for _, key := range c.Keys() {
		e, _ := c.Get(key)
		if _, err := n.ApplyCommand(config.Command{Kind: config.CommandInsert, Key: key, Expr: e}); err != nil {
			return nil, errors.Wrapf(err, errors.KindConvergence, "building network from configuration key %s", key)
		}
	}
	return n, nil
}

// RouterKindsFromConfig infers which routers are External: a router that
// originates at least one LocalAnnouncementValue and never appears as an
// endpoint of an IGPWeightValue link stays outside the IGP entirely, the
// hallmark of a simulated external neighbor. Everything else defaults to
// Internal. Topology loaders that don't carry explicit kind information
// can use this as a default.
func RouterKindsFromConfig(numRouters int, c *config.Configuration) []RouterKind {
	kinds := make([]RouterKind, numRouters)
	announces := make([]bool, numRouters)
	inIGP := make([]bool, numRouters)

	keys := c.Keys()
	sort.Strings(keys)
	for _, key := range keys {
		e, _ := c.Get(key)
		switch e.Kind {
		case config.ExprLocalAnnouncement:
			v := e.Value.(config.LocalAnnouncementValue)
			if v.Router >= 0 && v.Router < numRouters {
				announces[v.Router] = true
			}
		case config.ExprIGPWeight:
			v := e.Value.(config.IGPWeightValue)
			markIGP(inIGP, v.A)
			markIGP(inIGP, v.B)
		}
	}

	for r := 0; r < numRouters; r++ {
		if announces[r] && !inIGP[r] {
			kinds[r] = RouterExternal
		}
	}
	return kinds
}

func markIGP(inIGP []bool, router int) {
	if router >= 0 && router < len(inIGP) {
		inIGP[router] = true
	}
}
