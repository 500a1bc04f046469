package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"htracker/internal/core"
	"htracker/internal/storage"
)

// envelope is the uniform response shape: success carries data, failure
// carries a message. Handlers never leak internal error detail.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func respondData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func respondErrorMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{Success: false, Error: msg})
}

// respondError maps domain and storage errors onto the envelope: validation
// failures 422, missing records 404, everything else a generic 500.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case isNotFound(err):
		respondErrorMessage(w, http.StatusNotFound, err.Error())
	case isValidation(err):
		respondErrorMessage(w, http.StatusUnprocessableEntity, err.Error())
	default:
		slog.ErrorContext(r.Context(), "Request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
		respondErrorMessage(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, storage.ErrTrackerNotFound) || errors.Is(err, storage.ErrEntryNotFound)
}

var validationErrors = []error{
	core.ErrEmptyName,
	core.ErrNameTooLong,
	core.ErrNoteTooLong,
	core.ErrInvalidType,
	core.ErrInvalidStatus,
	core.ErrInvalidColor,
	core.ErrInvalidValue,
	core.ErrMissingStart,
	core.ErrEndBeforeStart,
	core.ErrTypeImmutable,
	core.ErrEmptyUser,
	core.ErrMissingTracker,
}

func isValidation(err error) bool {
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}
