package res

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the JSON shape for error replies.
type ErrorResponse struct {
	Error     string `json:"error"`                // human-readable message
	ErrorCode int    `json:"error_code,omitempty"` // machine-readable code
	Details   any    `json:"details,omitempty"`    // e.g. validation errors
}

// JsonResponse sends a JSON response with the given status.
func JsonResponse(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
