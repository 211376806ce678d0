// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ltl

import (
	"snowcap.dev/snowcap/internal/errors"
	"snowcap.dev/snowcap/internal/validation"
)

// Compile parses a textual hard-policy formula and rewrites it into
// negation normal form so the monitor only ever has to negate atoms, never
// arbitrary subtrees. '->' is expanded to its Or/Not equivalent first.
// Waypoint regexes are compiled eagerly so a malformed formula — bad
// syntax or a bad regex — is rejected here, never mid-search.
func Compile(src string) (*Formula, error) {
	raw, err := parse(src)
	if err != nil {
		return nil, errors.Wrapf(err, errors.KindInput, "malformed hard-policy formula %q", src)
	}
	f, err := nnf(raw, false)
	if err != nil {
		return nil, errors.Wrapf(err, errors.KindInput, "malformed hard-policy formula %q", src)
	}
	return f, nil
}

// nnf pushes negation down to the atoms. neg is whether the enclosing
// context negates this subtree.
func nnf(f *Formula, neg bool) (*Formula, error) {
	switch f.Kind {
	case KindReach, KindNoLoop:
		return &Formula{Kind: f.Kind, Src: f.Src, Dst: f.Dst, Negated: neg}, nil
	case KindPath:
		re, err := validation.ValidateWaypointRegex(f.Waypoint)
		if err != nil {
			return nil, err
		}
		return &Formula{Kind: f.Kind, Src: f.Src, Dst: f.Dst, Waypoint: f.Waypoint, waypointRe: re, Negated: neg}, nil
	case KindNot:
		return nnf(f.Sub[0], !neg)
	case KindImplies:
		// a -> b  ==  !a || b
		left, err := nnf(f.Sub[0], !neg)
		if err != nil {
			return nil, err
		}
		right, err := nnf(f.Sub[1], neg)
		if err != nil {
			return nil, err
		}
		if neg {
			return binary(KindAnd, left, right), nil
		}
		return binary(KindOr, left, right), nil
	case KindAnd:
		left, err := nnf(f.Sub[0], neg)
		if err != nil {
			return nil, err
		}
		right, err := nnf(f.Sub[1], neg)
		if err != nil {
			return nil, err
		}
		if neg {
			return binary(KindOr, left, right), nil
		}
		return binary(KindAnd, left, right), nil
	case KindOr:
		left, err := nnf(f.Sub[0], neg)
		if err != nil {
			return nil, err
		}
		right, err := nnf(f.Sub[1], neg)
		if err != nil {
			return nil, err
		}
		if neg {
			return binary(KindAnd, left, right), nil
		}
		return binary(KindOr, left, right), nil
	case KindNext:
		sub, err := nnf(f.Sub[0], neg)
		if err != nil {
			return nil, err
		}
		return unary(KindNext, sub), nil
	case KindGlobally:
		sub, err := nnf(f.Sub[0], neg)
		if err != nil {
			return nil, err
		}
		if neg {
			return unary(KindEventually, sub), nil
		}
		return unary(KindGlobally, sub), nil
	case KindEventually:
		sub, err := nnf(f.Sub[0], neg)
		if err != nil {
			return nil, err
		}
		if neg {
			return unary(KindGlobally, sub), nil
		}
		return unary(KindEventually, sub), nil
	case KindUntil:
		left, err := nnf(f.Sub[0], neg)
		if err != nil {
			return nil, err
		}
		right, err := nnf(f.Sub[1], neg)
		if err != nil {
			return nil, err
		}
		if neg {
			return binary(KindRelease, left, right), nil
		}
		return binary(KindUntil, left, right), nil
	case KindRelease:
		left, err := nnf(f.Sub[0], neg)
		if err != nil {
			return nil, err
		}
		right, err := nnf(f.Sub[1], neg)
		if err != nil {
			return nil, err
		}
		if neg {
			return binary(KindUntil, left, right), nil
		}
		return binary(KindRelease, left, right), nil
	default:
		return f, nil
	}
}
