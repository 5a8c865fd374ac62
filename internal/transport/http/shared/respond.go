// Package shared centralizes JSON response encoding and domain error
// translation so every handler speaks the same envelope.
package shared

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "bazaar/pkg/domain-errors"
)

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// WriteError translates a domain error into its HTTP status and envelope.
// Non-domain errors become opaque 500s so internals never leak.
func WriteError(w http.ResponseWriter, err error) {
	var dErr *dErrors.Error
	if !errors.As(err, &dErr) {
		WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: string(dErrors.CodeInternal)})
		return
	}
	resp := ErrorResponse{Error: string(dErr.Code), Message: dErr.Message}
	if dErr.Code == dErrors.CodeInternal {
		resp.Message = ""
	}
	WriteJSON(w, dErrors.ToHTTPStatus(dErr.Code), resp)
}
