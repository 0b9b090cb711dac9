package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tablescope-inc/tablescope-engine/pkg/apperrors"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(errorBody{Error: errorCode, Message: message})
}

// sentinelStatus maps the shared sentinel errors to their HTTP shape.
var sentinelStatus = []struct {
	err    error
	status int
	code   string
}{
	{apperrors.ErrNotFound, http.StatusNotFound, "not_found"},
	{apperrors.ErrUnsupportedFormat, http.StatusBadRequest, "unsupported_format"},
	{apperrors.ErrNoData, http.StatusBadRequest, "no_data"},
	{apperrors.ErrUploadTooLarge, http.StatusRequestEntityTooLarge, "upload_too_large"},
}

// SentinelResponse writes the canonical error response for a recognized
// sentinel error and reports whether it handled one. Unrecognized errors are
// left to the caller.
func SentinelResponse(w http.ResponseWriter, err error) bool {
	for _, s := range sentinelStatus {
		if errors.Is(err, s.err) {
			_ = ErrorResponse(w, s.status, s.code, err.Error())
			return true
		}
	}
	return false
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}
