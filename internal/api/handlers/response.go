package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/Prachi-Sharma23/creators-platform/internal/services"
	"github.com/rs/zerolog/hlog"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// MessageResponse is a bare acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Message: message})
}

// decodeJSON reads a single JSON object from the request body. On failure it
// has already written a 400.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		hlog.FromRequest(r).Debug().Err(err).Msg("Invalid request body")
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// writeServiceError maps service errors to statuses. Unexpected errors are
// logged and reported without detail.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, action string) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: "Validation failed", Errors: verr.Fields})
	case errors.Is(err, services.ErrDuplicateEmail):
		writeError(w, http.StatusConflict, "User already exists with this email")
	case errors.Is(err, services.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
	case errors.Is(err, services.ErrNotFound):
		writeError(w, http.StatusNotFound, "User not found")
	default:
		hlog.FromRequest(r).Error().Err(err).Msg("Failed to " + action)
		writeError(w, http.StatusInternalServerError, "Server error")
	}
}
