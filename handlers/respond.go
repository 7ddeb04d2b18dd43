package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"counsellor/db"
	"counsellor/services"
)

func writeJSONResponse(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[ERROR] Failed to encode response: %v", err)
	}
}

func writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	writeJSONResponse(w, statusCode, map[string]string{"error": message})
}

// writeServiceError maps service errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrUnauthorized):
		writeErrorResponse(w, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, services.ErrInvalidInput):
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, db.ErrNotFound):
		writeErrorResponse(w, http.StatusNotFound, err.Error())
	default:
		writeErrorResponse(w, http.StatusInternalServerError, "Internal server error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		log.Printf("[ERROR] Failed to decode request JSON for %s: %v", r.URL.Path, err)
		writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON payload")
		return false
	}
	return true
}
