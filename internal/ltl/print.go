// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ltl

import "fmt"

func formulaString(f *Formula) string {
	if f == nil {
		return "<nil>"
	}
	neg := ""
	if f.Negated {
		neg = "!"
	}
	switch f.Kind {
	case KindTrue:
		return "true"
	case KindFalse:
		return "false"
	case KindReach:
		return fmt.Sprintf("%sreach(%d,%d)", neg, f.Src, f.Dst)
	case KindNoLoop:
		return fmt.Sprintf("%snoloop(%d,%d)", neg, f.Src, f.Dst)
	case KindPath:
		return fmt.Sprintf("%spath(%d,%d,%q)", neg, f.Src, f.Dst, f.Waypoint)
	case KindNot:
		return fmt.Sprintf("!%s", formulaString(f.Sub[0]))
	case KindAnd:
		return fmt.Sprintf("(%s && %s)", formulaString(f.Sub[0]), formulaString(f.Sub[1]))
	case KindOr:
		return fmt.Sprintf("(%s || %s)", formulaString(f.Sub[0]), formulaString(f.Sub[1]))
	case KindImplies:
		return fmt.Sprintf("(%s -> %s)", formulaString(f.Sub[0]), formulaString(f.Sub[1]))
	case KindNext:
		return fmt.Sprintf("X%s", formulaString(f.Sub[0]))
	case KindGlobally:
		return fmt.Sprintf("G%s", formulaString(f.Sub[0]))
	case KindEventually:
		return fmt.Sprintf("F%s", formulaString(f.Sub[0]))
	case KindUntil:
		return fmt.Sprintf("(%s U %s)", formulaString(f.Sub[0]), formulaString(f.Sub[1]))
	case KindRelease:
		return fmt.Sprintf("(%s R %s)", formulaString(f.Sub[0]), formulaString(f.Sub[1]))
	default:
		return "?"
	}
}
