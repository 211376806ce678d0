// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package tui

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// RemoteBackend implements Backend against a snowcapd server's /v1/runs
// HTTP surface.
type RemoteBackend struct {
	BaseURL string
	Client  *http.Client
}

// NewRemoteBackend builds a RemoteBackend pointed at baseURL (e.g.
// "http://localhost:7777").
func NewRemoteBackend(baseURL string) *RemoteBackend {
	return &RemoteBackend{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (b *RemoteBackend) do(method, path string) (*http.Response, error) {
	req, err := http.NewRequest(method, b.BaseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	return b.Client.Do(req)
}

// runView mirrors internal/api's JSON response shape for a run, decoded
// independently here so this package doesn't need to import internal/api.
type runView struct {
	ID            string   `json:"id"`
	Topology      string   `json:"topology"`
	Mode          string   `json:"mode"`
	Status        string   `json:"status"`
	Ordering      []string `json:"ordering"`
	Cost          float64  `json:"cost"`
	Iterations    int      `json:"iterations"`
	ProblemGroups int      `json:"problem_groups"`
	WallMS        int64    `json:"wall_ms"`
	Error         string   `json:"error"`
}

func (v runView) toSummary() RunSummary {
	return RunSummary{
		ID:            v.ID,
		Topology:      v.Topology,
		Mode:          v.Mode,
		Status:        Status(v.Status),
		Ordering:      v.Ordering,
		Cost:          v.Cost,
		Iterations:    v.Iterations,
		ProblemGroups: v.ProblemGroups,
		WallMS:        v.WallMS,
		Error:         v.Error,
	}
}

func (b *RemoteBackend) ListRuns() ([]RunSummary, error) {
	resp, err := b.do(http.MethodGet, "/v1/runs")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("listing runs: %s", resp.Status)
	}

	var views []runView
	if err := json.NewDecoder(resp.Body).Decode(&views); err != nil {
		return nil, err
	}
	out := make([]RunSummary, len(views))
	for i, v := range views {
		out[i] = v.toSummary()
	}
	return out, nil
}

func (b *RemoteBackend) GetRun(id string) (RunSummary, error) {
	resp, err := b.do(http.MethodGet, "/v1/runs/"+id)
	if err != nil {
		return RunSummary{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return RunSummary{}, fmt.Errorf("fetching run %s: %s", id, resp.Status)
	}

	var v runView
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		return RunSummary{}, err
	}
	return v.toSummary(), nil
}

func (b *RemoteBackend) CancelRun(id string) error {
	resp, err := b.do(http.MethodDelete, "/v1/runs/"+id)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("canceling run %s: %s", id, resp.Status)
	}
	return nil
}
