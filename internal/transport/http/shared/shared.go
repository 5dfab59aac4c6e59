// Package shared holds the JSON response helpers used by every HTTP handler
// so error envelopes and encodings stay consistent across endpoints.
package shared

import (
	"encoding/json"
	"net/http"

	dErrors "mhreg/pkg/domain-errors"
)

// ErrorResponse is the JSON error envelope returned on every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteJSON encodes v as the response body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into its HTTP status and the standard
// error envelope. Unknown errors map to 500 with no detail leaked.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	WriteJSON(w, dErrors.ToHTTPStatus(code), ErrorResponse{
		Error:   string(code),
		Message: dErrors.MessageOf(err),
	})
}
