package api

import (
	"encoding/json"
	"log"
	"net/http"

	"driftchat/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[API] Failed to encode response: %v", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// writeAppError maps the pipeline's error taxonomy onto HTTP codes.
func writeAppError(w http.ResponseWriter, err error) {
	status := apperr.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		log.Printf("[API] Internal error: %v", err)
		writeJSON(w, status, errorBody{Error: "Internal server error"})
		return
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}
