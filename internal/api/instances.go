package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kubiyabot/skillrt/pkg/sandbox"
	"github.com/kubiyabot/skillrt/pkg/skill"
)

// registerInstanceRequest is the body of POST /instances.
type registerInstanceRequest struct {
	ComponentPath string                        `json:"component_path"`
	SkillName     string                        `json:"skill_name"`
	InstanceName  string                        `json:"instance_name"`
	Version       string                        `json:"version"`
	Config        map[string]skill.ConfigEntry  `json:"config"`
	Resources     skill.ResourceLimits          `json:"resources"`
	Overrides     skill.RuntimeOverrides        `json:"runtime_overrides"`
	WritablePaths []string                      `json:"writable_paths"`
}

func (s *Server) handleRegisterInstance(w http.ResponseWriter, r *http.Request) {
	var req registerInstanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.ComponentPath == "" {
		writeBadRequest(w, "component_path is required")
		return
	}

	inst := &skill.Instance{
		Metadata: skill.InstanceMetadata{
			SkillName:    req.SkillName,
			InstanceName: req.InstanceName,
			Version:      req.Version,
		},
		Config:           req.Config,
		Resources:        req.Resources,
		RuntimeOverrides: req.Overrides,
	}

	exec, err := s.registry.Register(r.Context(), req.ComponentPath, inst, req.WritablePaths)
	if err != nil {
		writeError(w, err)
		return
	}

	metadata, err := exec.GetMetadata(r.Context())
	if err != nil {
		// Registered successfully even if the component's get-metadata call
		// itself fails; surface the instance without metadata.
		writeJSON(w, http.StatusCreated, inst)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"instance": inst, "metadata": metadata})
}

func (s *Server) handleListInstances(w http.ResponseWriter, r *http.Request) {
	list, err := s.registry.List()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleUnregisterInstance(w http.ResponseWriter, r *http.Request) {
	skillName, instanceName := chi.URLParam(r, "skill"), chi.URLParam(r, "instance")
	if err := s.registry.Unregister(skillName, instanceName); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetMetadata(w http.ResponseWriter, r *http.Request) {
	exec, err := s.resolveExecutor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	metadata, err := exec.GetMetadata(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, metadata)
}

func (s *Server) handleGetTools(w http.ResponseWriter, r *http.Request) {
	exec, err := s.resolveExecutor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	tools, err := exec.GetTools(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tools)
}

type executeToolRequest struct {
	Args []skill.KV `json:"args"`
}

func (s *Server) handleExecuteTool(w http.ResponseWriter, r *http.Request) {
	exec, err := s.resolveExecutor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	toolName := chi.URLParam(r, "tool")

	var req executeToolRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeBadRequest(w, "invalid JSON body")
			return
		}
	}

	result, err := exec.ExecuteTool(r.Context(), toolName, req.Args)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) resolveExecutor(r *http.Request) (*sandbox.Executor, error) {
	skillName, instanceName := chi.URLParam(r, "skill"), chi.URLParam(r, "instance")
	return s.registry.Get(skillName, instanceName)
}
