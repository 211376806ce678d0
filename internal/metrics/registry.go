// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package metrics exposes Snowcap's Prometheus surface: counters and
// histograms over completed synthesis/optimization runs, and a gauge of
// runs currently in flight, served at GET /metrics by internal/api.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds every metric this package registers, grouped the way the
// teacher's own Registry groups interface/policy/system metrics into one
// struct passed around by reference rather than looked up by name.
type Registry struct {
	RunsTotal         *prometheus.CounterVec
	SearchIterations  prometheus.Histogram
	SearchDuration    prometheus.Histogram
	BestCost          prometheus.Gauge
	ActiveRuns        prometheus.Gauge
	ProblemGroupCount prometheus.Histogram
}

var (
	registryOnce sync.Once
	registry     *Registry
)

// Get returns the process-wide Registry, constructing and registering it
// with the default Prometheus registerer on first call.
func Get() *Registry {
	registryOnce.Do(func() {
		registry = newRegistry()
	})
	return registry
}

func newRegistry() *Registry {
	return &Registry{
		RunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "snowcap",
			Name:      "runs_total",
			Help:      "Completed synthesize/optimize runs, labeled by outcome.",
		}, []string{"outcome"}),

		SearchIterations: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "snowcap",
			Name:      "search_iterations",
			Help:      "Candidate orderings tried per run before it concluded.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 16),
		}),

		SearchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "snowcap",
			Name:      "search_duration_seconds",
			Help:      "Wall-clock duration of a run from entry point to result.",
			Buckets:   prometheus.DefBuckets,
		}),

		BestCost: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "snowcap",
			Name:      "best_cost",
			Help:      "Soft cost of the most recently completed successful run (0 for a synthesize run).",
		}),

		ActiveRuns: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "snowcap",
			Name:      "active_runs",
			Help:      "Synthesize/optimize runs currently in flight.",
		}),

		ProblemGroupCount: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "snowcap",
			Name:      "problem_groups_recorded",
			Help:      "Problem groups accumulated by a run's search before it concluded.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
	}
}
