package dashboard

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// writeJSON and writeError follow the teacher's internal/http/response
// envelope shape (success.go's OK, error.go's ErrorResponse/Error),
// generalized from a package of free functions to two unexported helpers
// since this dashboard has no other HTTP surface to share them with.

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode dashboard response", "error", err)
	}
}

type errorResponse struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, r *http.Request, code string, status int, err error) {
	if err != nil {
		slog.ErrorContext(r.Context(), "dashboard request failed", "code", code, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: errorDetail{Code: code, Message: code}})
}
