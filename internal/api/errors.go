// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/argus-video/argus/internal/domain"
)

// errorBody is the wire shape of every domain error.
type errorBody struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps a domain error onto its HTTP status and error body.
// Errors outside the taxonomy surface as a generic 500.
func writeError(w http.ResponseWriter, err error) {
	code := domain.CodeOf(err)
	status := statusFor(code)

	msg := "internal server error"
	var de *domain.Error
	if errors.As(err, &de) {
		msg = de.Message
	} else if code == "" {
		code = domain.CodeVideoProcessingFailed
	}

	writeJSON(w, status, errorBody{ErrorCode: string(code), Message: msg})
}

func statusFor(code domain.Code) int {
	switch code {
	case domain.CodeServiceAlreadyRunning, domain.CodeServiceNotRunning:
		return http.StatusConflict
	case domain.CodeInvalidConfig, domain.CodeDatabaseNotConfigured:
		return http.StatusBadRequest
	case domain.CodeEventNotFound, domain.CodeInvalidVideoPath:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
