package shared

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// ErrorBody is the JSON envelope for error responses.
type ErrorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// RespondJSON writes v as a JSON response with the given status.
func RespondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Error("encode response", slog.Any("error", err))
	}
}

// RespondError writes a JSON error envelope.
func RespondError(w http.ResponseWriter, status int, msg string) {
	RespondJSON(w, status, ErrorBody{Error: msg})
}

// RespondFieldErrors writes a validation failure with per-field messages.
func RespondFieldErrors(w http.ResponseWriter, fields map[string]string) {
	RespondJSON(w, http.StatusBadRequest, ErrorBody{Error: "validation failed", Fields: fields})
}
