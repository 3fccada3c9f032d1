// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"net/http"
)

// Error codes returned in the "error" field of JSON error bodies.
const (
	CodeNotFound         = "not_found"
	CodeInvalidParameter = "invalid_parameter"
	CodeInvalidSpec      = "invalid_spec"
	CodeInternal         = "internal_error"
	CodeRateLimited      = "rate_limit_exceeded"
	CodeBodyTooLarge     = "body_too_large"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error     string `json:"error"`
	Detail    string `json:"detail"`
	RequestID string `json:"request_id,omitempty"`
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an error body with the given status and code
func writeError(w http.ResponseWriter, r *http.Request, status int, code, detail string) {
	writeJSON(w, status, ErrorBody{
		Error:     code,
		Detail:    detail,
		RequestID: requestIDFrom(r),
	})
}
