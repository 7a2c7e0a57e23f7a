package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"gemini-replica/internal/logic"
)

// errorResponse is the body of every non-2xx JSON response
type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeValidationError writes a 400 naming the offending field. Errors that
// are not validation errors get a plain 400 with their message.
func writeValidationError(w http.ResponseWriter, err error) {
	var verr *logic.ValidationError
	if !errors.As(err, &verr) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusBadRequest, verr)
}

// HealthHandler handles GET /health
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
