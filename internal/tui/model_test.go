// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package tui

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"
)

func TestInitFetchesRunsAndSchedulesTick(t *testing.T) {
	backend := &MockBackend{Runs: []RunSummary{{ID: "abc123", Status: StatusRunning}}}
	m := NewModel(backend)

	cmd := m.Init()
	require.NotNil(t, cmd)

	msg := cmd()
	batch, ok := msg.(tea.BatchMsg)
	require.True(t, ok)
	require.Len(t, batch, 2)
}

func TestUpdateWithRunListPopulatesTableRows(t *testing.T) {
	backend := &MockBackend{}
	m := NewModel(backend)

	runs := []RunSummary{
		{ID: "run-one", Topology: "two-router", Mode: "synthesize", Status: StatusRunning, Iterations: 3, ProblemGroups: 1},
		{ID: "run-two", Topology: "two-router", Mode: "optimize", Status: StatusSatisfied, Iterations: 9, Cost: 2.5},
	}

	updated, _ := m.Update(runs)
	mm := updated.(Model)
	require.Equal(t, runs, mm.Runs)
	require.Equal(t, "", mm.ConnectionError)
}

func TestUpdateWithBackendErrorSetsConnectionErrorAndSchedulesRetry(t *testing.T) {
	m := NewModel(&MockBackend{})

	updated, cmd := m.Update(BackendError{Err: errors.New("dial tcp: connection refused")})
	mm := updated.(Model)
	require.Contains(t, mm.ConnectionError, "connection refused")
	require.NotNil(t, cmd)
}

func TestRetryMsgClearsConnectionErrorAndRefetches(t *testing.T) {
	m := NewModel(&MockBackend{Runs: []RunSummary{{ID: "abc"}}})
	m.ConnectionError = "connection refused"

	updated, cmd := m.Update(RetryMsg{})
	mm := updated.(Model)
	require.Equal(t, "", mm.ConnectionError)
	require.NotNil(t, cmd)
}

func TestQuitKeySendsQuitCommand(t *testing.T) {
	m := NewModel(&MockBackend{})

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	require.IsType(t, tea.QuitMsg{}, cmd())
}

func TestCancelKeyCancelsSelectedRun(t *testing.T) {
	backend := &MockBackend{Runs: []RunSummary{{ID: "run-one", Status: StatusRunning}}}
	m := NewModel(backend)

	updated, _ := m.Update(backend.Runs)
	mm := updated.(Model)

	_, cmd := mm.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("c")})
	require.NotNil(t, cmd)
	cmd()

	require.Equal(t, []string{"run-one"}, backend.CanceledRunIDs)
}

func TestRowsForRunningRunOmitsCost(t *testing.T) {
	rows := rowsFor([]RunSummary{{ID: "abcdefgh12345", Status: StatusRunning, Cost: 99}})
	require.Len(t, rows, 1)
	require.Equal(t, "abcdefgh", rows[0][0])
	require.Equal(t, "", rows[0][6])
}

func TestRowsForFinishedRunIncludesCost(t *testing.T) {
	rows := rowsFor([]RunSummary{{ID: "short", Status: StatusSatisfied, Cost: 1.5}})
	require.Equal(t, "1.50", rows[0][6])
}
