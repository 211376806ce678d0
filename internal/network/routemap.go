// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package network

import (
	"regexp"
	"strconv"
	"strings"

	"snowcap.dev/snowcap/internal/config"
)

// applyRouteMap runs a route through an ordered clause list, stopping at the
// first matching clause. Clauses with no match at all implicitly deny (the
// teacher's route-map semantics: an empty or exhausted clause list denies),
// mirroring standard route-map deny-by-default behavior.
func applyRouteMap(clauses []config.RouteMapClause, r Route) (Route, bool) {
	for _, c := range clauses {
		if !matches(c.Match, r) {
			continue
		}
		if !c.Action.Permit {
			return Route{}, false
		}
		return applyAction(c.Action, r), true
	}
	return Route{}, false
}

func matches(m config.MatchPredicate, r Route) bool {
	if m.Prefix != nil && *m.Prefix != r.Prefix {
		return false
	}
	if m.NeighborAS != nil && (len(r.ASPath) == 0 || r.ASPath[0] != *m.NeighborAS) {
		return false
	}
	if m.Community != "" && !r.hasCommunity(m.Community) {
		return false
	}
	if m.ASPathRegex != "" {
		re, err := regexp.Compile(m.ASPathRegex)
		if err != nil || !re.MatchString(asPathString(r.ASPath)) {
			return false
		}
	}
	return true
}

func asPathString(path []int) string {
	parts := make([]string, len(path))
	for i, asn := range path {
		parts[i] = strconv.Itoa(asn)
	}
	return " " + strings.Join(parts, " ") + " "
}

func applyAction(a config.RouteMapAction, r Route) Route {
	out := r.clone()
	if a.SetLocalPref != nil {
		out.LocalPref = *a.SetLocalPref
	}
	if a.SetMED != nil {
		out.MED = *a.SetMED
	}
	if a.AddCommunity != "" {
		out.Communities = addCommunity(out.Communities, a.AddCommunity)
	}
	if a.RemoveCommunity != "" {
		out.Communities = removeCommunity(out.Communities, a.RemoveCommunity)
	}
	return out
}

// applyRouteMapOrDefault applies clauses, or permits the route unchanged
// when a (router, peer, direction) has no configured route-map at all.
func applyRouteMapOrDefault(clauses []config.RouteMapClause, r Route) (Route, bool) {
	if clauses == nil {
		return r.clone(), true
	}
	return applyRouteMap(clauses, r)
}
