// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package metrics

import (
	"time"

	"snowcap.dev/snowcap/internal/errors"
	"snowcap.dev/snowcap/internal/logging"
)

// JobSource reports how many runs internal/api currently has in flight,
// without this package needing to depend on internal/api's job-tracking
// types directly — the same decoupling-by-narrow-interface the teacher
// uses for its BaselinePersister.
type JobSource interface {
	ActiveCount() int
}

// Collector periodically refreshes the active-run gauge from a JobSource
// and offers RecordRun for synth/optimize callers to report a completed
// run's outcome directly, on the spot, rather than waiting for the next
// poll tick.
type Collector struct {
	registry *Registry
	logger   *logging.Logger
	interval time.Duration
	source   JobSource
	stopCh   chan struct{}
}

// NewCollector builds a Collector that polls source every interval.
func NewCollector(logger *logging.Logger, interval time.Duration, source JobSource) *Collector {
	return &Collector{
		registry: Get(),
		logger:   logger,
		interval: interval,
		source:   source,
		stopCh:   make(chan struct{}),
	}
}

// Start runs the polling loop until Stop is called. Meant to be run in its
// own goroutine by the caller.
func (c *Collector) Start() {
	c.logger.Info("starting metrics collector", "interval", c.interval.String())

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.poll()
		case <-c.stopCh:
			c.logger.Info("stopping metrics collector")
			return
		}
	}
}

// Stop ends the polling loop.
func (c *Collector) Stop() { close(c.stopCh) }

// SetSource (re)binds the JobSource polled for the active-run gauge. Useful
// when the source (e.g. internal/api's Server) can only be constructed
// after the Collector it in turn reports completed runs to.
func (c *Collector) SetSource(source JobSource) { c.source = source }

func (c *Collector) poll() {
	if c.source == nil {
		return
	}
	c.registry.ActiveRuns.Set(float64(c.source.ActiveCount()))
}

// RecordRun reports one completed run: its outcome (derived from err the
// same way synth.ExitCode classifies it), iteration count, wall-clock
// duration, and problem-group count. cost is only meaningful when the run
// was an Optimize call; pass 0 for a plain Synthesize/SynthesizeParallel.
func (c *Collector) RecordRun(err error, iterations int, duration time.Duration, cost float64, problemGroups int) {
	c.registry.RunsTotal.WithLabelValues(outcomeLabel(err)).Inc()
	c.registry.SearchIterations.Observe(float64(iterations))
	c.registry.SearchDuration.Observe(duration.Seconds())
	c.registry.ProblemGroupCount.Observe(float64(problemGroups))
	if err == nil {
		c.registry.BestCost.Set(cost)
	}
}

func outcomeLabel(err error) string {
	if err == nil {
		return "success"
	}
	switch errors.GetKind(err) {
	case errors.KindNoSolution, errors.KindConvergence:
		return "no_solution"
	case errors.KindCanceled:
		return "canceled"
	default:
		return "error"
	}
}
