package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"garage/internal/database"
	"garage/internal/service"
)

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

// statusFor maps domain errors onto HTTP status codes. Anything not in the
// taxonomy is a storage failure.
func statusFor(err error) int {
	switch {
	case errors.Is(err, database.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrValidation), errors.Is(err, database.ErrInvalidState):
		return http.StatusBadRequest
	case errors.Is(err, database.ErrConflict),
		errors.Is(err, database.ErrAlreadyAssigned),
		errors.Is(err, database.ErrHasInvoice):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func respondError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		// Storage failures keep their details in the logs, not the response.
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}
