// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"snowcap.dev/snowcap/internal/errors"
	"snowcap.dev/snowcap/internal/logging"
)

// RunsHandlers serves /v1/runs: submitting a synthesize/optimize campaign,
// polling its status, listing recent runs, and canceling one in flight.
type RunsHandlers struct {
	jobs   *JobManager
	logger *logging.Logger
}

// RegisterRoutes wires this handler's endpoints onto router, following the
// same PathPrefix-subrouter-plus-Methods idiom used elsewhere in this tree.
func (h *RunsHandlers) RegisterRoutes(router *mux.Router) {
	runs := router.PathPrefix("/v1/runs").Subrouter()
	runs.HandleFunc("", h.handleCreateRun).Methods(http.MethodPost)
	runs.HandleFunc("", h.handleListRuns).Methods(http.MethodGet)
	runs.HandleFunc("/{id}", h.handleGetRun).Methods(http.MethodGet)
	runs.HandleFunc("/{id}", h.handleDeleteRun).Methods(http.MethodDelete)
}

func (h *RunsHandlers) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithJSON(w, http.StatusBadRequest, errorBody("malformed request body"))
		return
	}

	job, err := h.jobs.Submit(req)
	if err != nil {
		h.respondError(w, err)
		return
	}

	respondWithJSON(w, http.StatusAccepted, jobView(job))
}

func (h *RunsHandlers) handleListRuns(w http.ResponseWriter, r *http.Request) {
	jobs := h.jobs.List()
	views := make([]runView, len(jobs))
	for i, j := range jobs {
		views[i] = jobView(j)
	}
	respondWithJSON(w, http.StatusOK, views)
}

func (h *RunsHandlers) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	job, ok := h.jobs.Get(id)
	if !ok {
		respondWithJSON(w, http.StatusNotFound, errorBody("no such run"))
		return
	}
	respondWithJSON(w, http.StatusOK, jobView(job))
}

func (h *RunsHandlers) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.jobs.Cancel(id); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RunsHandlers) respondError(w http.ResponseWriter, err error) {
	switch errors.GetKind(err) {
	case errors.KindInput:
		respondWithJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.KindNotFound:
		respondWithJSON(w, http.StatusNotFound, errorBody(err.Error()))
	case errors.KindConflict:
		respondWithJSON(w, http.StatusConflict, errorBody(err.Error()))
	default:
		h.logger.Error("run request failed", "error", err)
		respondWithJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

// runView is a Job rendered for API responses: it drops the unexported
// stopper and surfaces the command ordering via the same stable
// (kind, expression-hash) keys the persisted JSON artifact uses.
type runView struct {
	ID            string   `json:"id"`
	Topology      string   `json:"topology"`
	Mode          Mode     `json:"mode"`
	Status        Status   `json:"status"`
	Ordering      []string `json:"ordering,omitempty"`
	Cost          float64  `json:"cost,omitempty"`
	Iterations    int      `json:"iterations,omitempty"`
	ProblemGroups int      `json:"problem_groups,omitempty"`
	WallMS        int64    `json:"wall_ms,omitempty"`
	Error         string   `json:"error,omitempty"`
}

func jobView(j *Job) runView {
	if j.Status == StatusRunning && j.Progress != nil {
		p := j.Progress.Snapshot()
		view := runView{
			ID:            j.ID,
			Topology:      j.Topology,
			Mode:          j.Mode,
			Status:        j.Status,
			Iterations:    p.Iterations,
			ProblemGroups: p.ProblemGroups,
		}
		if p.HasCost {
			view.Cost = p.Cost
		}
		return view
	}

	return runView{
		ID:         j.ID,
		Topology:   j.Topology,
		Mode:       j.Mode,
		Status:     j.Status,
		Ordering:   j.Artifact.Ordering,
		Cost:       j.Artifact.Cost,
		Iterations: j.Artifact.Iterations,
		WallMS:     j.Artifact.WallMS,
		Error:      j.Err,
	}
}
