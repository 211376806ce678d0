// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package config

import (
	"sort"

	"snowcap.dev/snowcap/internal/errors"
)

// Configuration is a well-formed set of configuration expressions: keys are
// unique within it.
type Configuration struct {
	exprs map[string]Expr
}

// New returns an empty Configuration.
func New() *Configuration {
	return &Configuration{exprs: make(map[string]Expr)}
}

// Insert adds expr, failing if its key already exists.
func (c *Configuration) Insert(e Expr) error {
	if _, exists := c.exprs[e.Key]; exists {
		return errors.Errorf(errors.KindConflict, "duplicate configuration key: %s", e.Key)
	}
	c.exprs[e.Key] = e
	return nil
}

// Remove deletes the expression at key, failing if it is absent.
func (c *Configuration) Remove(key string) error {
	if _, exists := c.exprs[key]; !exists {
		return errors.Errorf(errors.KindNotFound, "unknown configuration key: %s", key)
	}
	delete(c.exprs, key)
	return nil
}

// Get returns the expression at key, if present.
func (c *Configuration) Get(key string) (Expr, bool) {
	e, ok := c.exprs[key]
	return e, ok
}

// Keys returns all keys in deterministic sorted order.
func (c *Configuration) Keys() []string {
	keys := make([]string, 0, len(c.exprs))
	for k := range c.exprs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of expressions.
func (c *Configuration) Len() int {
	return len(c.exprs)
}

// Clone deep-copies the configuration.
func (c *Configuration) Clone() *Configuration {
	out := New()
	for k, v := range c.exprs {
		out.exprs[k] = v
	}
	return out
}

// CommandKind is the variant of an atomic configuration command.
type CommandKind string

const (
	CommandInsert CommandKind = "insert"
	CommandRemove CommandKind = "remove"
	CommandUpdate CommandKind = "update"
)

// Command is one atomic, reversible mutation of a Configuration.
type Command struct {
	Kind CommandKind
	Key  string
	// Expr is populated for Insert (the expression being added) and Remove
	// (the expression being removed, so undo can re-insert it verbatim).
	Expr Expr
	// OldValue/NewValue are populated for Update.
	OldValue any
	NewValue any
}

// Diff computes the symmetric difference c1 △ c0 as an unordered list of
// commands: Insert for keys only in c1, Remove for keys only in c0, and
// Update for keys present in both with a changed value. Mirrors the
// teacher's Added/Modified/Removed ConfigDiff shape, generalized from HCL
// block diffing to configuration-expression diffing.
func Diff(c0, c1 *Configuration) []Command {
	var cmds []Command

	allKeys := make(map[string]struct{}, c0.Len()+c1.Len())
	for _, k := range c0.Keys() {
		allKeys[k] = struct{}{}
	}
	for _, k := range c1.Keys() {
		allKeys[k] = struct{}{}
	}

	sorted := make([]string, 0, len(allKeys))
	for k := range allKeys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	for _, key := range sorted {
		oldExpr, inOld := c0.Get(key)
		newExpr, inNew := c1.Get(key)

		switch {
		case !inOld && inNew:
			cmds = append(cmds, Command{Kind: CommandInsert, Key: key, Expr: newExpr})
		case inOld && !inNew:
			cmds = append(cmds, Command{Kind: CommandRemove, Key: key, Expr: oldExpr})
		case inOld && inNew:
			if !valueEqual(oldExpr.Value, newExpr.Value) {
				cmds = append(cmds, Command{
					Kind:     CommandUpdate,
					Key:      key,
					Expr:     newExpr,
					OldValue: oldExpr.Value,
					NewValue: newExpr.Value,
				})
			}
		}
	}

	return cmds
}

func valueEqual(a, b any) bool {
	switch av := a.(type) {
	case IGPWeightValue:
		bv, ok := b.(IGPWeightValue)
		return ok && av == bv
	case StaticRouteValue:
		bv, ok := b.(StaticRouteValue)
		return ok && av == bv
	case BGPSessionValue:
		bv, ok := b.(BGPSessionValue)
		return ok && av == bv
	case LocalAnnouncementValue:
		bv, ok := b.(LocalAnnouncementValue)
		if !ok || av.Router != bv.Router || av.Prefix != bv.Prefix || len(av.ASPath) != len(bv.ASPath) {
			return false
		}
		for i := range av.ASPath {
			if av.ASPath[i] != bv.ASPath[i] {
				return false
			}
		}
		return true
	case RouteMapClauseValue:
		bv, ok := b.(RouteMapClauseValue)
		return ok && routeMapClauseValueEqual(av, bv)
	default:
		return a == b
	}
}

func routeMapClauseValueEqual(a, b RouteMapClauseValue) bool {
	return a.Router == b.Router && a.Peer == b.Peer && a.Direction == b.Direction &&
		a.Clause.Seq == b.Clause.Seq &&
		matchPredicateEqual(a.Clause.Match, b.Clause.Match) &&
		actionEqual(a.Clause.Action, b.Clause.Action)
}

func matchPredicateEqual(a, b MatchPredicate) bool {
	return intPtrEqual(a.Prefix, b.Prefix) && a.ASPathRegex == b.ASPathRegex &&
		a.Community == b.Community && intPtrEqual(a.NeighborAS, b.NeighborAS)
}

func actionEqual(a, b RouteMapAction) bool {
	return a.Permit == b.Permit && intPtrEqual(a.SetLocalPref, b.SetLocalPref) &&
		intPtrEqual(a.SetMED, b.SetMED) && a.AddCommunity == b.AddCommunity &&
		a.RemoveCommunity == b.RemoveCommunity
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
