// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package strategy

import (
	"snowcap.dev/snowcap/internal/config"
	"snowcap.dev/snowcap/internal/ltl"
)

// recordGroup performs the linear dependency-set sweep: for the failing
// prefix candidate[0:atStep], it tries removing each command in turn (last
// to first) and re-running the monitor over the reduced prefix from FS0.
// A command belongs to the dependency set iff removing it alone turns the
// violation at the same logical point into a non-violation. The group's
// relative order is D's keys in the order they appeared in candidate.
func (s *Strategy) recordGroup(candidate []config.Command, atStep int, witness string) {
	prefix := candidate[:atStep]

	var dependencies []config.Command
	for i := len(prefix) - 1; i >= 0; i-- {
		trial := make([]config.Command, 0, len(prefix)-1)
		trial = append(trial, prefix[:i]...)
		trial = append(trial, prefix[i+1:]...)

		if !s.stillViolatedWithout(trial) {
			dependencies = append([]config.Command{prefix[i]}, dependencies...)
		}
	}
	if len(dependencies) == 0 {
		// The sweep found no single command whose removal alone fixes it
		// (the violation needs the whole prefix, or is caused jointly);
		// fall back to the terminal command alone so the group is never
		// vacuous.
		dependencies = []config.Command{prefix[len(prefix)-1]}
	}

	order := make([]string, len(dependencies))
	for i, c := range dependencies {
		order[i] = c.Key
	}

	s.groups = append(s.groups, ProblemGroup{
		Dependencies:  dependencies,
		RelativeOrder: order,
		Terminal:      prefix[len(prefix)-1],
		Witness:       witness,
	})
	s.liveGroups.Add(1)
}

// stillViolatedWithout replays trial from FS0 on a scratch clone of the
// network and reports whether the hard policy is still violated by the
// time it's fully applied.
func (s *Strategy) stillViolatedWithout(trial []config.Command) bool {
	scratch := s.net.Clone()
	m := ltl.NewMonitor(s.formula)

	res := m.Step(scratch.Query(), len(trial) == 0)
	if res.Verdict == ltl.Violated {
		return true
	}
	if res.Verdict == ltl.Satisfied {
		return false
	}

	for i, cmd := range trial {
		if _, err := scratch.ApplyCommand(cmd); err != nil {
			return true
		}
		final := i == len(trial)-1
		res := m.Step(scratch.Query(), final)
		if res.Verdict == ltl.Violated {
			return true
		}
		if res.Verdict == ltl.Satisfied {
			return false
		}
	}
	return false
}

// rank orders not-yet-placed commands by fewest problem-group constraints
// first, then ascending command key, implementing the strategy's
// deterministic tie-break.
func (s *Strategy) rank(remaining []config.Command) []config.Command {
	out := append([]config.Command(nil), remaining...)
	constraints := func(c config.Command) int {
		n := 0
		for _, g := range s.groups {
			for _, d := range g.Dependencies {
				if d.Key == c.Key {
					n++
					break
				}
			}
		}
		return n
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0; j-- {
			ci, cj := constraints(out[j]), constraints(out[j-1])
			if ci < cj || (ci == cj && out[j].Key < out[j-1].Key) {
				out[j], out[j-1] = out[j-1], out[j]
			} else {
				break
			}
		}
	}
	return out
}

// prune reports whether partial matches, on every dependency set fully
// present so far, the exact relative order recorded as failing.
func (s *Strategy) prune(partial []config.Command) bool {
	for _, g := range s.groups {
		if len(g.Dependencies) < 2 {
			// A single-command dependency set carries no relative-order
			// information: the relation that actually mattered was this
			// command's position against commands outside D, which this
			// group doesn't track. Matching on presence alone would prune
			// every candidate containing it, including valid ones, so
			// singleton groups are kept for diagnostics and for rank's
			// constraint count but never drive pruning.
			continue
		}
		if matchesFailingOrder(partial, g) {
			return true
		}
	}
	return false
}

func matchesFailingOrder(partial []config.Command, g ProblemGroup) bool {
	positions := make(map[string]int, len(partial))
	for i, c := range partial {
		positions[c.Key] = i
	}
	order := make([]string, 0, len(g.Dependencies))
	for _, d := range g.Dependencies {
		if _, ok := positions[d.Key]; !ok {
			return false // not all of D placed yet: can't conclude a match
		}
	}
	// Collect D's keys as they actually appear in partial, in partial's order.
	type placed struct {
		key string
		pos int
	}
	var ps []placed
	for _, d := range g.Dependencies {
		ps = append(ps, placed{key: d.Key, pos: positions[d.Key]})
	}
	for i := 1; i < len(ps); i++ {
		for j := i; j > 0 && ps[j].pos < ps[j-1].pos; j-- {
			ps[j], ps[j-1] = ps[j-1], ps[j]
		}
	}
	for _, p := range ps {
		order = append(order, p.key)
	}
	if len(order) != len(g.RelativeOrder) {
		return false
	}
	if orderSignature(order) != orderSignature(g.RelativeOrder) {
		return false
	}
	for i := range order {
		if order[i] != g.RelativeOrder[i] {
			return false
		}
	}
	return true
}
