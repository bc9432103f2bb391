package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/Roenbaeck/hls-relay/internal/log"
)

// errorResponse is the structured JSON body for every non-2xx response.
type errorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// respondError writes a structured error response and stamps the request
// ID extracted from the context, so a client error and its server-side log
// line can always be correlated.
func respondError(w http.ResponseWriter, r *http.Request, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	resp := errorResponse{
		Code:      code,
		Message:   message,
		RequestID: log.RequestIDFromContext(r.Context()),
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, message, statusCode)
	}
}
