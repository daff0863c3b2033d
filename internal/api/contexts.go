package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	skillctx "github.com/kubiyabot/skillrt/pkg/context"
)

type createContextRequest struct {
	Name     string            `json:"name"`
	ParentID string            `json:"parent_id,omitempty"`
	Env      map[string]string `json:"env,omitempty"`
	Tags     []string          `json:"tags,omitempty"`
}

func (s *Server) handleCreateContext(w http.ResponseWriter, r *http.Request) {
	var req createContextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Name == "" {
		writeBadRequest(w, "name is required")
		return
	}

	var ctx = skillctx.New(req.Name)
	if req.ParentID != "" {
		ctx = skillctx.Inheriting(req.Name, req.ParentID)
	}
	for k, v := range req.Env {
		ctx.Env[k] = v
	}
	for _, tag := range req.Tags {
		skillctx.WithTag(ctx, tag)
	}

	if err := s.contexts.Save(ctx); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ctx)
}

func (s *Server) handleListContexts(w http.ResponseWriter, r *http.Request) {
	list, err := s.contexts.ListWithMetadata()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetContext(w http.ResponseWriter, r *http.Request) {
	ctx, err := s.contexts.Load(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ctx)
}

func (s *Server) handleDeleteContext(w http.ResponseWriter, r *http.Request) {
	if err := s.contexts.Delete(chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleResolveContext(w http.ResponseWriter, r *http.Request) {
	merged, err := s.contexts.Resolve(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, merged)
}
