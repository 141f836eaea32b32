package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/RevCBH/unitd/internal/history"
	"github.com/RevCBH/unitd/internal/job"
	"github.com/RevCBH/unitd/internal/manager"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// handleListJobs returns every installed job.
// GET /api/jobs
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs := s.mgr.Jobs()
	if jobs == nil {
		jobs = []manager.JobView{}
	}
	writeJSON(w, http.StatusOK, jobs)
}

// installRequest is the body of POST /api/jobs
type installRequest struct {
	Unit string `json:"unit"`
	Type string `json:"type"`
	Mode string `json:"mode,omitempty"`

	Override    bool `json:"override,omitempty"`
	IgnoreOrder bool `json:"ignore_order,omitempty"`
}

// handleInstall installs a job on a unit.
// POST /api/jobs
func (s *Server) handleInstall(w http.ResponseWriter, r *http.Request) {
	var req installRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	t := job.TypeFromString(req.Type)
	if t == job.TypeInvalid {
		writeError(w, http.StatusBadRequest, job.ErrInvalidType)
		return
	}

	mode := job.ModeReplace
	if req.Mode != "" {
		mode = job.ModeFromString(req.Mode)
		if mode == job.ModeInvalid {
			writeError(w, http.StatusBadRequest, errors.New("invalid job mode"))
			return
		}
	}

	var fl job.Flags
	if req.Override {
		fl |= job.FlagOverride
	}
	if req.IgnoreOrder {
		fl |= job.FlagIgnoreOrder
	}

	view, err := s.mgr.Install(req.Unit, t, fl, mode)
	if err != nil {
		status := http.StatusConflict
		if errors.Is(err, job.ErrInvalidType) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err)
		return
	}

	writeJSON(w, http.StatusCreated, view)
}

// handleGetJob returns one installed job.
// GET /api/jobs/{id}
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 32)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	view, found := s.mgr.Get(uint32(id))
	if !found {
		writeError(w, http.StatusNotFound, job.ErrJobNotFound)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleCancelJob cancels one installed job.
// DELETE /api/jobs/{id}
func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 32)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := s.mgr.Cancel(uint32(id), false); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleCounters returns the engine's bookkeeping counters.
// GET /api/counters
func (s *Server) handleCounters(w http.ResponseWriter, r *http.Request) {
	installed, running, failed := s.mgr.Counters()
	writeJSON(w, http.StatusOK, map[string]any{
		"installed_total": installed,
		"running":         running,
		"failed_total":    failed,
	})
}

// handleHistory returns the finished-job journal, newest first.
// GET /api/history?unit=<name>&limit=<n>
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.hist == nil {
		writeError(w, http.StatusNotFound, errors.New("history journal disabled"))
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, errors.New("invalid limit"))
			return
		}
		limit = n
	}

	var err error
	var entries []history.Entry
	if unit := r.URL.Query().Get("unit"); unit != "" {
		entries, err = s.hist.ListByUnit(unit, limit)
	} else {
		entries, err = s.hist.List(limit)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
