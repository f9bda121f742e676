package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotify-bff/internal/services"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// DataResponse is the JSON body of a successful proxy call.
type DataResponse struct {
	Message    string      `json:"message"`
	Data       any         `json:"data"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// writeJSON encodes v before touching the response, so an unencodable value becomes a 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"Internal Server Error","message":"Failed to encode response"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Write errors mean the client disconnected.
	_, _ = w.Write(append(data, '\n'))
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, ErrorResponse{Error: kind, Message: message})
}

// writeUpstreamError maps a client failure to a response.
//
// Upstream status codes pass through with their reason phrase. Malformed 2xx bodies become 502
// and transport failures 500. kind names the operation that failed.
func writeUpstreamError(w http.ResponseWriter, logger *log.Logger, kind string, err error) {
	var (
		upstream *services.UpstreamError
		schema   *services.SchemaError
	)

	switch {
	case errors.As(err, &upstream):
		logger.Warn(kind, "status", upstream.StatusCode, "op", upstream.Op)
		writeError(w, upstream.StatusCode, kind, upstream.Status)
	case errors.As(err, &schema):
		logger.Error(kind, "err", err)
		writeError(w, http.StatusBadGateway, kind, "Upstream returned an unexpected response")
	default:
		logger.Error(kind, "err", err)
		writeError(w, http.StatusInternalServerError, kind, "Upstream request failed")
	}
}
