// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package ltl implements the hard-policy formula language: a textual LTL
// over atomic path predicates (reach, path, noloop), a tagged-tree formula
// representation, and a Monitor that evaluates a formula incrementally
// against a growing forwarding-state trace via formula progression.
package ltl

import "regexp"

// Kind discriminates a Formula node.
type Kind int

const (
	KindReach Kind = iota
	KindPath
	KindNoLoop
	KindAnd
	KindOr
	KindNot    // only present pre-compile; Compile eliminates it via NNF
	KindImplies // only present pre-compile; Compile expands it
	KindNext
	KindGlobally
	KindEventually
	KindUntil
	KindRelease // internal only: the NNF dual of Until, never produced by the parser
	KindTrue
	KindFalse
)

// Formula is a node in the tagged tree. Atom nodes (Reach/Path/NoLoop) carry
// Src/Dst and, for Path, a compiled waypoint regex; Negated flips an atom's
// truth value and is only ever set after Compile has pushed negation down
// to the leaves. Every other node holds its operands in Sub.
type Formula struct {
	Kind Kind
	Sub  []*Formula

	Src, Dst    int
	Waypoint    string
	waypointRe  *regexp.Regexp
	Negated     bool
}

func atomReach(src, dst int) *Formula {
	return &Formula{Kind: KindReach, Src: src, Dst: dst}
}

func atomNoLoop(src, dst int) *Formula {
	return &Formula{Kind: KindNoLoop, Src: src, Dst: dst}
}

func atomPath(src, dst int, waypoint string) *Formula {
	return &Formula{Kind: KindPath, Src: src, Dst: dst, Waypoint: waypoint}
}

func unary(k Kind, sub *Formula) *Formula { return &Formula{Kind: k, Sub: []*Formula{sub}} }

func binary(k Kind, a, b *Formula) *Formula { return &Formula{Kind: k, Sub: []*Formula{a, b}} }

var trueFormula = &Formula{Kind: KindTrue}
var falseFormula = &Formula{Kind: KindFalse}

func boolFormula(v bool) *Formula {
	if v {
		return trueFormula
	}
	return falseFormula
}

// String renders a Formula back to its surface syntax, mainly for witness
// messages and test assertions.
func (f *Formula) String() string {
	return formulaString(f)
}
