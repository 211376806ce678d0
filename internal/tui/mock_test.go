// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package tui

import "fmt"

// MockBackend implements Backend for testing.
type MockBackend struct {
	Runs           []RunSummary
	Err            error
	CanceledRunIDs []string
}

func (m *MockBackend) ListRuns() ([]RunSummary, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Runs, nil
}

func (m *MockBackend) GetRun(id string) (RunSummary, error) {
	if m.Err != nil {
		return RunSummary{}, m.Err
	}
	for _, r := range m.Runs {
		if r.ID == id {
			return r, nil
		}
	}
	return RunSummary{}, fmt.Errorf("no such run: %s", id)
}

func (m *MockBackend) CancelRun(id string) error {
	if m.Err != nil {
		return m.Err
	}
	m.CanceledRunIDs = append(m.CanceledRunIDs, id)
	return nil
}
