// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"snowcap.dev/snowcap/internal/config"
	"snowcap.dev/snowcap/internal/errors"
	"snowcap.dev/snowcap/internal/strategy"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRecord(id string) Record {
	return Record{
		ID:         id,
		Topology:   "abilene",
		Ordering:   []string{"remove:0000000000000001", "insert:0000000000000002"},
		Cost:       1.5,
		Iterations: 12,
		WallMS:     340,
		Seed:       0,
		ProblemGroups: []strategy.ProblemGroup{
			{
				Dependencies:  []config.Command{{Kind: config.CommandInsert, Key: "a"}, {Kind: config.CommandInsert, Key: "b"}},
				RelativeOrder: []string{"a", "b"},
				Terminal:      config.Command{Kind: config.CommandInsert, Key: "b"},
				Witness:       "reach(0,0)",
			},
		},
		CreatedAt: time.Unix(1_700_000_000, 0),
	}
}

func TestRecordRunAndGetRunRoundTrip(t *testing.T) {
	s := openStore(t)
	rec := sampleRecord("run-1")

	require.NoError(t, s.RecordRun(rec))

	got, err := s.GetRun("run-1")
	require.NoError(t, err)
	require.Equal(t, rec.Topology, got.Topology)
	require.Equal(t, rec.Ordering, got.Ordering)
	require.Equal(t, rec.Cost, got.Cost)
	require.Equal(t, rec.Iterations, got.Iterations)
	require.Equal(t, rec.WallMS, got.WallMS)
	require.True(t, rec.CreatedAt.Equal(got.CreatedAt))
	require.Len(t, got.ProblemGroups, 1)
	require.Equal(t, "reach(0,0)", got.ProblemGroups[0].Witness)
	require.Equal(t, []string{"a", "b"}, got.ProblemGroups[0].RelativeOrder)
}

func TestRecordRunWithNoProblemGroups(t *testing.T) {
	s := openStore(t)
	rec := sampleRecord("run-clean")
	rec.ProblemGroups = nil

	require.NoError(t, s.RecordRun(rec))

	got, err := s.GetRun("run-clean")
	require.NoError(t, err)
	require.Empty(t, got.ProblemGroups)
}

func TestRecordRunUpsertsOnSameID(t *testing.T) {
	s := openStore(t)
	rec := sampleRecord("run-1")
	require.NoError(t, s.RecordRun(rec))

	rec.Cost = 9.9
	rec.Iterations = 99
	require.NoError(t, s.RecordRun(rec))

	got, err := s.GetRun("run-1")
	require.NoError(t, err)
	require.Equal(t, 9.9, got.Cost)
	require.Equal(t, 99, got.Iterations)

	all, err := s.ListRuns("abilene", 10, 0)
	require.NoError(t, err)
	require.Len(t, all, 1, "upsert must not create a duplicate row")
}

func TestGetRunReturnsNotFoundForUnknownID(t *testing.T) {
	s := openStore(t)
	_, err := s.GetRun("nonexistent")
	require.Error(t, err)
	require.Equal(t, errors.KindNotFound, errors.GetKind(err))
}

func TestListRunsOrdersMostRecentFirstAndFiltersByTopology(t *testing.T) {
	s := openStore(t)

	older := sampleRecord("run-old")
	older.Topology = "abilene"
	older.CreatedAt = time.Unix(1_000, 0)
	require.NoError(t, s.RecordRun(older))

	newer := sampleRecord("run-new")
	newer.Topology = "abilene"
	newer.CreatedAt = time.Unix(2_000, 0)
	require.NoError(t, s.RecordRun(newer))

	other := sampleRecord("run-other-topo")
	other.Topology = "geant"
	other.CreatedAt = time.Unix(3_000, 0)
	require.NoError(t, s.RecordRun(other))

	runs, err := s.ListRuns("abilene", 10, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	require.Equal(t, "run-new", runs[0].ID)
	require.Equal(t, "run-old", runs[1].ID)

	all, err := s.ListRuns("", 10, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
}

func TestDeleteRun(t *testing.T) {
	s := openStore(t)
	require.NoError(t, s.RecordRun(sampleRecord("run-1")))

	require.NoError(t, s.DeleteRun("run-1"))

	_, err := s.GetRun("run-1")
	require.Error(t, err)

	err = s.DeleteRun("run-1")
	require.Error(t, err)
	require.Equal(t, errors.KindNotFound, errors.GetKind(err))
}

func TestCleanupRemovesOnlyRunsOlderThanRetention(t *testing.T) {
	s := openStore(t)

	old := sampleRecord("run-old")
	old.CreatedAt = time.Now().Add(-48 * time.Hour)
	require.NoError(t, s.RecordRun(old))

	fresh := sampleRecord("run-fresh")
	fresh.CreatedAt = time.Now()
	require.NoError(t, s.RecordRun(fresh))

	n, err := s.Cleanup(24 * time.Hour)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	_, err = s.GetRun("run-old")
	require.Error(t, err)
	_, err = s.GetRun("run-fresh")
	require.NoError(t, err)
}
