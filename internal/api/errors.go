package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dennisdiepolder/monti/insights/internal/records"
)

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Error   string   `json:"error"`             // error code (e.g., "unauthorized", "not_found")
	Message string   `json:"message"`           // user-friendly message
	Details string   `json:"details,omitempty"` // optional details
	IDs     []string `json:"ids,omitempty"`     // offending record ids
}

// standard error codes
const (
	CodeUnauthorized    = "unauthorized"
	CodeNotFound        = "not_found"
	CodeValidationError = "validation_error"
	CodeServerError     = "server_error"
	CodeBadRequest      = "bad_request"
	CodeTooLarge        = "payload_too_large"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, message string, err error) {
	if message == "" {
		message = "invalid request"
	}
	response := ErrorResponse{Error: CodeBadRequest, Message: message}
	if err != nil {
		response.Details = err.Error()
	}
	writeJSON(w, http.StatusBadRequest, response)
}

func unauthorized(w http.ResponseWriter, message string) {
	if message == "" {
		message = "authentication required"
	}
	writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: CodeUnauthorized, Message: message})
}

// respondError maps store errors to their HTTP status. Anything unexpected is
// logged and reported as a server error.
func respondError(w http.ResponseWriter, r *http.Request, logger zerolog.Logger, err error) {
	var verr *records.ValidationError
	var nf *records.NotFoundError
	var tooLarge *http.MaxBytesError

	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   CodeValidationError,
			Message: "validation failed",
			Details: verr.Reason,
			IDs:     verr.IDs,
		})
	case errors.As(err, &nf):
		writeJSON(w, http.StatusNotFound, ErrorResponse{
			Error:   CodeNotFound,
			Message: "record " + nf.ID + " not found",
		})
	case errors.As(err, &tooLarge):
		writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{
			Error:   CodeTooLarge,
			Message: "upload exceeds the size limit",
		})
	default:
		logger.Error().Err(err).
			Str("path", r.URL.Path).
			Str("method", r.Method).
			Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   CodeServerError,
			Message: "an error occurred",
		})
	}
}
