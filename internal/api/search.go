package api

import (
	"encoding/json"
	"net/http"

	"github.com/kubiyabot/skillrt/pkg/vectorstore"
)

type searchRequest struct {
	Query        string   `json:"query"`
	SkillName    string   `json:"skill_name,omitempty"`
	InstanceName string   `json:"instance_name,omitempty"`
	ToolName     string   `json:"tool_name,omitempty"`
	Category     string   `json:"category,omitempty"`
	Tags         []string `json:"tags,omitempty"`
}

// handleSearch runs the Retrieval Pipeline (query processing, hybrid
// search, fusion, optional rerank, compression) for one query.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.pipeline == nil {
		writeBadRequest(w, "retrieval pipeline is not configured")
		return
	}

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Query == "" {
		writeBadRequest(w, "query is required")
		return
	}

	filter := vectorstore.Filter{
		SkillName:    req.SkillName,
		InstanceName: req.InstanceName,
		ToolName:     req.ToolName,
		Category:     req.Category,
		Tags:         req.Tags,
	}

	result, err := s.pipeline.Retrieve(r.Context(), req.Query, filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
