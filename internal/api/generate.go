package api

import (
	"encoding/json"
	"net/http"

	"github.com/kubiyabot/skillrt/pkg/generation"
	"github.com/kubiyabot/skillrt/pkg/skill"
)

type generateRequest struct {
	Tool             skill.ToolDefinition         `json:"tool"`
	ExistingExamples []generation.ExistingExample `json:"existing_examples,omitempty"`
}

// handleGenerate runs the Generation Pipeline synchronously and returns the
// accepted batch. Streaming consumers should use the in-process
// generation.Generator.GenerateStream API directly (the MCP server exposes
// no generation tool); this endpoint exists for callers that just want the
// final example set.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if s.generator == nil {
		writeBadRequest(w, "generation pipeline is not configured")
		return
	}

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Tool.Name == "" {
		writeBadRequest(w, "tool.name is required")
		return
	}

	examples, err := s.generator.Generate(r.Context(), generation.Tool{
		Definition: req.Tool,
		Examples:   req.ExistingExamples,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, examples)
}
