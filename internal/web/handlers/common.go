// Package handlers contains the HTTP handlers of the Chronoface API.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kozaktomas/chronoface/internal/bucket"
	"github.com/kozaktomas/chronoface/internal/detect"
	"github.com/kozaktomas/chronoface/internal/pipeline"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondDomainError maps pipeline errors to HTTP status codes.
func respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pipeline.ErrRunNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, pipeline.ErrInvalidRequest), errors.Is(err, bucket.ErrInvalidBucket):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, detect.ErrModelUnavailable):
		respondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
