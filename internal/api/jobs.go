package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kubiyabot/skillrt/pkg/jobs"
)

type enqueueJobRequest struct {
	Type       jobs.Type      `json:"type"`
	Payload    map[string]any `json:"payload"`
	MaxRetries int            `json:"max_retries"`
}

func (s *Server) handleEnqueueJob(w http.ResponseWriter, r *http.Request) {
	if s.jobStorage == nil {
		writeBadRequest(w, "job scheduler is not configured")
		return
	}

	var req enqueueJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Type == "" {
		writeBadRequest(w, "type is required")
		return
	}
	maxRetries := req.MaxRetries
	if maxRetries == 0 {
		maxRetries = 3
	}

	job := jobs.NewJob(req.Type, req.Payload, maxRetries)
	id, err := s.jobStorage.Enqueue(r.Context(), job)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"id": id})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	if s.jobStorage == nil {
		writeBadRequest(w, "job scheduler is not configured")
		return
	}
	job, err := s.jobStorage.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleJobStats(w http.ResponseWriter, r *http.Request) {
	if s.jobStorage == nil {
		writeBadRequest(w, "job scheduler is not configured")
		return
	}
	stats, err := s.jobStorage.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
