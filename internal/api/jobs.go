// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package api

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"snowcap.dev/snowcap/internal/config"
	"snowcap.dev/snowcap/internal/cost"
	"snowcap.dev/snowcap/internal/errors"
	"snowcap.dev/snowcap/internal/history"
	"snowcap.dev/snowcap/internal/logging"
	"snowcap.dev/snowcap/internal/ltl"
	"snowcap.dev/snowcap/internal/metrics"
	"snowcap.dev/snowcap/internal/network"
	"snowcap.dev/snowcap/internal/notification"
	"snowcap.dev/snowcap/internal/strategy"
	"snowcap.dev/snowcap/internal/synth"
)

// Mode selects which of synth's three entry points a run uses.
type Mode string

const (
	ModeSynthesize         Mode = "synthesize"
	ModeSynthesizeParallel Mode = "synthesize_parallel"
	ModeOptimize           Mode = "optimize"
)

// Status is a run's lifecycle state, named per the persisted API contract:
// running|satisfied|no_solution|canceled, plus an error state for failures
// that aren't a legitimate search outcome (bad input caught mid-run,
// internal errors).
type Status string

const (
	StatusRunning    Status = "running"
	StatusSatisfied  Status = "satisfied"
	StatusNoSolution Status = "no_solution"
	StatusCanceled   Status = "canceled"
	StatusError      Status = "error"
)

// RunRequest is the POST /v1/runs request body: the topology before and
// after the campaign, inline as HCL source, the hard policy every
// intermediate forwarding state must satisfy, and the search mode.
type RunRequest struct {
	Topology      string `json:"topology"`
	Before        string `json:"before"`
	After         string `json:"after"`
	HardPolicy    string `json:"hard_policy"`
	Mode          Mode   `json:"mode"`
	SoftPolicy    string `json:"soft_policy"`
	Workers       int    `json:"workers"`
	MaxIterations int    `json:"max_iterations"`
	DeadlineMS    int64  `json:"deadline_ms"`
}

// Job is one synthesize/synthesize_parallel/optimize run, tracked from
// submission through completion.
type Job struct {
	ID         string
	Topology   string
	Mode       Mode
	Workers    int
	Status     Status
	Result     synth.Result
	Artifact   synth.Artifact
	Err        string
	CreatedAt  time.Time
	FinishedAt time.Time
	Progress   *synth.ProgressHandle
	stopper    *strategy.AtomicStopper
}

// JobManager runs submitted requests in background goroutines and keeps
// their outcome in memory, persisting completed runs to history.Store and
// reporting them to metrics.Collector — the same split the teacher draws
// between a live in-memory view and a durable log.
type JobManager struct {
	mu        sync.RWMutex
	jobs      map[string]*Job
	history   *history.Store
	collector *metrics.Collector
	notifier  *notification.Dispatcher
	logger    *logging.Logger
}

// NewJobManager builds a JobManager. history, collector, and notifier may
// be nil (runs then aren't persisted, reported, or alerted on, which is
// useful for tests).
func NewJobManager(logger *logging.Logger, store *history.Store, collector *metrics.Collector, notifier *notification.Dispatcher) *JobManager {
	return &JobManager{
		jobs:      make(map[string]*Job),
		history:   store,
		collector: collector,
		notifier:  notifier,
		logger:    logger,
	}
}

// ActiveCount implements metrics.JobSource.
func (m *JobManager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, j := range m.jobs {
		if j.Status == StatusRunning {
			n++
		}
	}
	return n
}

// Get returns the job with the given ID.
func (m *JobManager) Get(id string) (*Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, false
	}
	cp := *j
	return &cp, true
}

// List returns every tracked job, most recently created first.
func (m *JobManager) List() []*Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		cp := *j
		out = append(out, &cp)
	}
	sortJobsByCreatedDesc(out)
	return out
}

func sortJobsByCreatedDesc(jobs []*Job) {
	for i := 1; i < len(jobs); i++ {
		for j := i; j > 0 && jobs[j].CreatedAt.After(jobs[j-1].CreatedAt); j-- {
			jobs[j], jobs[j-1] = jobs[j-1], jobs[j]
		}
	}
}

// Cancel requests cancellation of a running job. Returns KindNotFound if the
// job doesn't exist, KindConflict if it already finished.
func (m *JobManager) Cancel(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return errors.New(errors.KindNotFound, "no such run")
	}
	if j.Status != StatusRunning {
		return errors.New(errors.KindConflict, "run already finished")
	}
	j.stopper.Stop()
	return nil
}

// Submit validates req, builds the initial and target network state, and
// launches the search in its own goroutine. It returns immediately with the
// job's ID so the caller can poll GET /v1/runs/{id}.
func (m *JobManager) Submit(req RunRequest) (*Job, error) {
	before, numBefore, err := config.ParseTopology("before.hcl", []byte(req.Before))
	if err != nil {
		return nil, errors.Wrap(err, errors.KindInput, "parsing before topology")
	}
	after, numAfter, err := config.ParseTopology("after.hcl", []byte(req.After))
	if err != nil {
		return nil, errors.Wrap(err, errors.KindInput, "parsing after topology")
	}
	numRouters := numBefore
	if numAfter > numRouters {
		numRouters = numAfter
	}

	formula, err := ltl.Compile(req.HardPolicy)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindInput, "compiling hard policy")
	}

	net, err := network.BuildFromConfig(numRouters, before)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindInput, "converging initial network")
	}
	delta := config.Diff(before, after)

	budget := strategy.Budget{MaxIterations: req.MaxIterations}
	if req.DeadlineMS > 0 {
		budget.Deadline = time.Now().Add(time.Duration(req.DeadlineMS) * time.Millisecond)
	}

	softFn, err := resolveSoftPolicy(req.SoftPolicy)
	if err != nil {
		return nil, err
	}

	mode := req.Mode
	if mode == "" {
		mode = ModeSynthesize
	}

	job := &Job{
		ID:        uuid.NewString(),
		Topology:  req.Topology,
		Mode:      mode,
		Workers:   req.Workers,
		Status:    StatusRunning,
		CreatedAt: time.Now(),
		Progress:  synth.NewProgressHandle(),
		stopper:   &strategy.AtomicStopper{},
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.mu.Unlock()

	go m.run(job, net, formula, delta, softFn, budget)

	return job, nil
}

func resolveSoftPolicy(name string) (cost.Func, error) {
	switch name {
	case "", "none":
		return nil, nil
	case "traffic_shift":
		return cost.TrafficShiftCost{}, nil
	default:
		return nil, errors.Errorf(errors.KindInput, "unknown soft policy %q", name)
	}
}

func (m *JobManager) run(job *Job, net *network.Network, formula *ltl.Formula, delta []config.Command, softFn cost.Func, budget strategy.Budget) {
	start := time.Now()
	var res synth.Result
	var err error

	switch job.Mode {
	case ModeSynthesizeParallel:
		workers := job.Workers
		if workers < 1 {
			workers = 4
		}
		res, err = synth.SynthesizeParallel(net, formula, delta, workers, budget, job.stopper, job.Progress)
	case ModeOptimize:
		if softFn == nil {
			softFn = cost.TrafficShiftCost{}
		}
		res, err = synth.Optimize(net, formula, delta, softFn, budget, job.stopper, job.Progress)
	default:
		res, err = synth.Synthesize(net, formula, delta, budget, job.stopper, job.Progress)
	}

	duration := time.Since(start)

	m.mu.Lock()
	job.FinishedAt = time.Now()
	if err != nil {
		job.Status = failureStatus(err, job.stopper)
		job.Err = err.Error()
	} else {
		job.Status = StatusSatisfied
		job.Result = res
		if artifact, aerr := synth.BuildArtifact(res); aerr == nil {
			job.Artifact = artifact
		}
	}
	jobCopy := *job
	m.mu.Unlock()

	if m.collector != nil {
		m.collector.RecordRun(err, res.Iterations, duration, res.Cost, jobCopy.Progress.Snapshot().ProblemGroups)
	}
	if m.notifier != nil {
		m.notifier.Send(runNotification(jobCopy))
	}
	if m.history != nil && err == nil {
		rec := history.Record{
			ID:         jobCopy.ID,
			Topology:   jobCopy.Topology,
			Ordering:   jobCopy.Artifact.Ordering,
			Cost:       res.Cost,
			Iterations: res.Iterations,
			WallMS:     res.WallMS,
			Seed:       res.Seed,
			CreatedAt:  jobCopy.CreatedAt,
		}
		if herr := m.history.RecordRun(rec); herr != nil && m.logger != nil {
			m.logger.Error("persisting run history", "run_id", jobCopy.ID, "error", herr)
		}
	}
}

// runNotification renders a finished Job as a notification.Notification:
// info level on success, warning on a legitimate no-solution/cancellation,
// critical on everything else.
func runNotification(j Job) notification.Notification {
	level := notification.LevelInfo
	title := fmt.Sprintf("run %s %s", j.ID, j.Status)
	message := fmt.Sprintf("topology=%s mode=%s", j.Topology, j.Mode)

	switch j.Status {
	case StatusSatisfied:
		message += fmt.Sprintf(" iterations=%d cost=%.2f wall_ms=%d", j.Artifact.Iterations, j.Artifact.Cost, j.Artifact.WallMS)
	case StatusNoSolution, StatusCanceled:
		level = notification.LevelWarning
		message += fmt.Sprintf(": %s", j.Err)
	default:
		level = notification.LevelCritical
		message += fmt.Sprintf(": %s", j.Err)
	}

	return notification.Notification{Title: title, Message: message, Level: level}
}

func failureStatus(err error, stopper *strategy.AtomicStopper) Status {
	switch errors.GetKind(err) {
	case errors.KindNoSolution, errors.KindConvergence:
		return StatusNoSolution
	case errors.KindCanceled:
		return StatusCanceled
	}
	if stopper.Stopped() {
		return StatusCanceled
	}
	return StatusError
}
