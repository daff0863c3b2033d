package api

import (
	"encoding/json"
	"net/http"

	"github.com/kubiyabot/skillrt/pkg/apperr"
)

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps an apperr.Kind to the HTTP status a caller should expect,
// per spec.md section 7's taxonomy.
func writeError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case apperr.NotFound:
		status = http.StatusNotFound
	case apperr.AlreadyExists:
		status = http.StatusConflict
	case apperr.InvalidInput, apperr.ConfigMismatch:
		status = http.StatusBadRequest
	case apperr.SandboxDenied:
		status = http.StatusForbidden
	case apperr.Timeout:
		status = http.StatusGatewayTimeout
	case apperr.Cancelled:
		status = 499
	case apperr.BackendUnavailable, apperr.RetryableBackend:
		status = http.StatusServiceUnavailable
	case apperr.LoadError, apperr.InvocationError:
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Kind: string(kind)})
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}
