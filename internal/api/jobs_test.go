// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package api

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"snowcap.dev/snowcap/internal/errors"
	"snowcap.dev/snowcap/internal/history"
	"snowcap.dev/snowcap/internal/logging"
)

const beforeTopology = `
routers = 2

static_route {
  router   = 0
  prefix   = 0
  next_hop = 1
}

bgp_session {
  a    = 0
  b    = 1
  kind = "ebgp"
}

announce {
  router  = 1
  prefix  = 0
  as_path = [65001]
}
`

const afterTopology = `
routers = 2

bgp_session {
  a    = 0
  b    = 1
  kind = "ebgp"
}

announce {
  router  = 1
  prefix  = 0
  as_path = [65001]
}
`

func waitForCompletion(t *testing.T, m *JobManager, id string) *Job {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		job, ok := m.Get(id)
		require.True(t, ok)
		if job.Status != StatusRunning {
			return job
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("job did not finish in time")
	return nil
}

func TestSubmitRunsSynthesizeAndRecordsSuccess(t *testing.T) {
	m := NewJobManager(logging.Nop(), nil, nil, nil)

	job, err := m.Submit(RunRequest{
		Topology:      "two-router",
		Before:        beforeTopology,
		After:         afterTopology,
		HardPolicy:    "G reach(0,0)",
		Mode:          ModeSynthesize,
		MaxIterations: 50,
	})
	require.NoError(t, err)
	require.NotEmpty(t, job.ID)

	done := waitForCompletion(t, m, job.ID)
	require.Equal(t, StatusSatisfied, done.Status)
	require.NotEmpty(t, done.Artifact.Ordering)
}

func TestSubmitPersistsToHistoryOnSuccess(t *testing.T) {
	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	m := NewJobManager(logging.Nop(), store, nil, nil)

	job, err := m.Submit(RunRequest{
		Topology:      "two-router",
		Before:        beforeTopology,
		After:         afterTopology,
		HardPolicy:    "G reach(0,0)",
		MaxIterations: 50,
	})
	require.NoError(t, err)

	done := waitForCompletion(t, m, job.ID)
	require.Equal(t, StatusSatisfied, done.Status)

	rec, err := store.GetRun(job.ID)
	require.NoError(t, err)
	require.Equal(t, "two-router", rec.Topology)
	require.Equal(t, done.Artifact.Ordering, rec.Ordering)
}

func TestSubmitRejectsMalformedHardPolicy(t *testing.T) {
	m := NewJobManager(logging.Nop(), nil, nil, nil)

	_, err := m.Submit(RunRequest{
		Before:     beforeTopology,
		After:      afterTopology,
		HardPolicy: "not a valid formula (((",
	})
	require.Error(t, err)
	require.Equal(t, errors.KindInput, errors.GetKind(err))
}

func TestSubmitRejectsMalformedTopology(t *testing.T) {
	m := NewJobManager(logging.Nop(), nil, nil, nil)

	_, err := m.Submit(RunRequest{
		Before:     "not hcl {{{",
		After:      afterTopology,
		HardPolicy: "G reach(0,0)",
	})
	require.Error(t, err)
	require.Equal(t, errors.KindInput, errors.GetKind(err))
}

func TestSubmitRejectsUnknownSoftPolicy(t *testing.T) {
	m := NewJobManager(logging.Nop(), nil, nil, nil)

	_, err := m.Submit(RunRequest{
		Before:     beforeTopology,
		After:      afterTopology,
		HardPolicy: "G reach(0,0)",
		Mode:       ModeOptimize,
		SoftPolicy: "bogus",
	})
	require.Error(t, err)
	require.Equal(t, errors.KindInput, errors.GetKind(err))
}

func TestCancelRejectsUnknownIDAndFinishedJob(t *testing.T) {
	m := NewJobManager(logging.Nop(), nil, nil, nil)

	err := m.Cancel("nonexistent")
	require.Error(t, err)
	require.Equal(t, errors.KindNotFound, errors.GetKind(err))

	job, err := m.Submit(RunRequest{
		Before:     beforeTopology,
		After:      afterTopology,
		HardPolicy: "G reach(0,0)",
	})
	require.NoError(t, err)

	done := waitForCompletion(t, m, job.ID)
	require.Equal(t, StatusSatisfied, done.Status)

	err = m.Cancel(job.ID)
	require.Error(t, err)
	require.Equal(t, errors.KindConflict, errors.GetKind(err))
}

func TestListOrdersMostRecentFirst(t *testing.T) {
	m := NewJobManager(logging.Nop(), nil, nil, nil)

	first, err := m.Submit(RunRequest{Before: beforeTopology, After: afterTopology, HardPolicy: "G reach(0,0)"})
	require.NoError(t, err)
	waitForCompletion(t, m, first.ID)

	time.Sleep(2 * time.Millisecond)

	second, err := m.Submit(RunRequest{Before: beforeTopology, After: afterTopology, HardPolicy: "G reach(0,0)"})
	require.NoError(t, err)
	waitForCompletion(t, m, second.ID)

	jobs := m.List()
	require.Len(t, jobs, 2)
	require.Equal(t, second.ID, jobs[0].ID)
	require.Equal(t, first.ID, jobs[1].ID)
}

func TestActiveCountReflectsRunningJobsOnly(t *testing.T) {
	m := NewJobManager(logging.Nop(), nil, nil, nil)
	require.Equal(t, 0, m.ActiveCount())

	job, err := m.Submit(RunRequest{Before: beforeTopology, After: afterTopology, HardPolicy: "G reach(0,0)"})
	require.NoError(t, err)
	waitForCompletion(t, m, job.ID)

	require.Equal(t, 0, m.ActiveCount())
}
