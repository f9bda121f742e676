package server

import (
	"net/http"
	"time"
)

// HealthHandler serves the liveness check.
type HealthHandler struct {
	now func() time.Time
}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{now: time.Now}
}

// Routes implements [Handler].
func (h *HealthHandler) Routes() []Route {
	return []Route{{Method: http.MethodGet, Path: "/status", Handler: h.Status}}
}

// Status reports that the process is up. It does not contact Spotify.
func (h *HealthHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "OK",
		"timestamp": h.now().UTC().Format(time.RFC3339),
	})
}
