package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	coreevidence "cyberincident/core/evidence"
	"cyberincident/core/incidents"
	"cyberincident/core/store"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps the service error taxonomy onto HTTP. The
// caller handles nil itself.
func writeServiceError(w http.ResponseWriter, err error) {
	var fieldErr *incidents.FieldError
	var validationErr *coreevidence.ValidationError
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, coreevidence.ErrFileMissing):
		writeError(w, http.StatusNotFound, "evidence file missing")
	case errors.As(err, &fieldErr):
		writeError(w, http.StatusBadRequest, fieldErr.Error())
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, validationErr.Error())
	default:
		writeError(w, http.StatusInternalServerError, "server error")
	}
}
