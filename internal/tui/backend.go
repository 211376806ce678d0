// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package tui visualizes a synthesis campaign live against a running
// snowcapd server: every tracked run's status, iteration count, problem
// groups accumulated, and, once a run has finished, its cost.
package tui

import "time"

// Status mirrors internal/api's run lifecycle states without this package
// importing internal/api directly, the same decoupling-by-narrow-interface
// the teacher draws between its TUI and ctlplane.
type Status string

const (
	StatusRunning    Status = "running"
	StatusSatisfied  Status = "satisfied"
	StatusNoSolution Status = "no_solution"
	StatusCanceled   Status = "canceled"
	StatusError      Status = "error"
)

// RunSummary is one run as the TUI renders it: the fields GET /v1/runs and
// GET /v1/runs/{id} return, whether the run is still in flight (Iterations
// and ProblemGroups updating live) or finished (Ordering/WallMS populated).
type RunSummary struct {
	ID            string
	Topology      string
	Mode          string
	Status        Status
	Ordering      []string
	Cost          float64
	Iterations    int
	ProblemGroups int
	WallMS        int64
	Error         string
}

// Backend is how the TUI reaches a snowcapd server: listing tracked runs,
// polling one by ID, and canceling one in flight.
type Backend interface {
	ListRuns() ([]RunSummary, error)
	GetRun(id string) (RunSummary, error)
	CancelRun(id string) error
}

// BackendError wraps a failed backend call as a tea.Msg, the same shape
// the firewall HUD uses to drive its disconnected/reconnecting state.
type BackendError struct {
	Err error
}

// RetryMsg fires the auto-reconnect attempt after a BackendError.
type RetryMsg struct{}

// TickMsg drives the periodic run-list refresh.
type TickMsg time.Time
