// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"snowcap.dev/snowcap/internal/logging"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := DefaultServerConfig()
	cfg.RateLimitPerSec = 1000
	cfg.RateLimitBurst = 1000
	return NewServer(ServerOptions{Config: cfg, Logger: logging.Nop()})
}

func postRun(t *testing.T, s *Server, req RunRequest) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(req)
	require.NoError(t, err)
	r := httptest.NewRequest(http.MethodPost, "/v1/runs", bytes.NewReader(body))
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, r)
	return w
}

func TestCreateRunReturns202WithJobID(t *testing.T) {
	s := newTestServer(t)

	w := postRun(t, s, RunRequest{
		Topology:   "two-router",
		Before:     beforeTopology,
		After:      afterTopology,
		HardPolicy: "G reach(0,0)",
	})

	require.Equal(t, http.StatusAccepted, w.Code)

	var view runView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	require.NotEmpty(t, view.ID)
	require.Equal(t, StatusRunning, view.Status)
}

func TestCreateRunWithMalformedBodyReturns400(t *testing.T) {
	s := newTestServer(t)

	r := httptest.NewRequest(http.MethodPost, "/v1/runs", bytes.NewReader([]byte("not json")))
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, r)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateRunWithBadPolicyReturns400(t *testing.T) {
	s := newTestServer(t)

	w := postRun(t, s, RunRequest{Before: beforeTopology, After: afterTopology, HardPolicy: "((( nonsense"})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetRunReturnsCompletedResult(t *testing.T) {
	s := newTestServer(t)

	w := postRun(t, s, RunRequest{Before: beforeTopology, After: afterTopology, HardPolicy: "G reach(0,0)", MaxIterations: 50})
	require.Equal(t, http.StatusAccepted, w.Code)
	var created runView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	var final runView
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		r := httptest.NewRequest(http.MethodGet, "/v1/runs/"+created.ID, nil)
		w2 := httptest.NewRecorder()
		s.Router().ServeHTTP(w2, r)
		require.Equal(t, http.StatusOK, w2.Code)
		require.NoError(t, json.Unmarshal(w2.Body.Bytes(), &final))
		if final.Status != StatusRunning {
			break
		}
		time.Sleep(time.Millisecond)
	}

	require.Equal(t, StatusSatisfied, final.Status)
	require.NotEmpty(t, final.Ordering)
}

func TestGetUnknownRunReturns404(t *testing.T) {
	s := newTestServer(t)

	r := httptest.NewRequest(http.MethodGet, "/v1/runs/nope", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, r)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteCompletedRunReturns409(t *testing.T) {
	s := newTestServer(t)

	w := postRun(t, s, RunRequest{Before: beforeTopology, After: afterTopology, HardPolicy: "G reach(0,0)", MaxIterations: 50})
	var created runView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		job, ok := s.jobs.Get(created.ID)
		require.True(t, ok)
		if job.Status != StatusRunning {
			break
		}
		time.Sleep(time.Millisecond)
	}

	r := httptest.NewRequest(http.MethodDelete, "/v1/runs/"+created.ID, nil)
	w2 := httptest.NewRecorder()
	s.Router().ServeHTTP(w2, r)
	require.Equal(t, http.StatusConflict, w2.Code)
}

func TestListRunsReturnsSubmittedJobs(t *testing.T) {
	s := newTestServer(t)
	postRun(t, s, RunRequest{Before: beforeTopology, After: afterTopology, HardPolicy: "G reach(0,0)"})

	r := httptest.NewRequest(http.MethodGet, "/v1/runs", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	var views []runView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &views))
	require.Len(t, views, 1)
}

func TestMetricsEndpointServesPrometheusFormat(t *testing.T) {
	s := newTestServer(t)

	r := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "snowcap_runs_total")
}

func TestRateLimitRejectsBurstTraffic(t *testing.T) {
	cfg := DefaultServerConfig()
	cfg.RateLimitPerSec = 1
	cfg.RateLimitBurst = 1
	s := NewServer(ServerOptions{Config: cfg, Logger: logging.Nop()})

	var codes []int
	for i := 0; i < 3; i++ {
		r := httptest.NewRequest(http.MethodGet, "/v1/runs", nil)
		w := httptest.NewRecorder()
		s.Router().ServeHTTP(w, r)
		codes = append(codes, w.Code)
	}

	require.Contains(t, codes, http.StatusTooManyRequests)
}
