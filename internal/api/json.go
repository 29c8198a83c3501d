// internal/api/json.go
package api

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/yout0703/web-collector/internal/common/errors"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// writeError maps the standard error taxonomy to HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	code := apperrors.CodeOf(err)

	status := http.StatusInternalServerError
	switch code {
	case apperrors.ErrCodeValidationFailed:
		status = http.StatusBadRequest
	case apperrors.ErrCodeTemplateNotFound:
		status = http.StatusNotFound
	case apperrors.ErrCodeDuplicateURL:
		status = http.StatusConflict
	case apperrors.ErrCodeExtractionFailed:
		status = http.StatusBadGateway
	case apperrors.ErrCodePersistenceFailure, apperrors.ErrCodeLockNotAcquired:
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, errResponse{Error: err.Error(), Code: string(code)})
}
