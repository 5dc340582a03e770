package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/helixir/book-content-service/internal/domain"
)

type errorResponse struct {
	Error   string       `json:"error"`
	Details []fieldError `json:"details,omitempty"`
}

type searchResponse struct {
	Query   string                `json:"query"`
	Count   int                   `json:"count"`
	Results []domain.RankedResult `json:"results"`
}

type prewarmResponse struct {
	WorkflowID string `json:"workflow_id"`
	ListID     string `json:"list_id,omitempty"`
	Books      int    `json:"books,omitempty"`
	Status     string `json:"status"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Best-effort; headers already sent.
		_ = err
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, errorResponse{Error: message})
}

func writeValidationError(w http.ResponseWriter, details []fieldError) {
	writeJSON(w, http.StatusBadRequest, errorResponse{
		Error:   "validation failed",
		Details: details,
	})
}
