package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Roenbaeck/hls-relay/internal/fsutil"
)

// handleForceFinalize lets an operator (via relayctl) end a session early,
// e.g. when an encoder was left running after a broadcast actually ended.
func (s *Server) handleForceFinalize(w http.ResponseWriter, r *http.Request) {
	streamKey := chi.URLParam(r, "streamKey")
	if !fsutil.IsSafeIdentifier(streamKey) {
		respondError(w, r, http.StatusBadRequest, "bad_request", "invalid stream key")
		return
	}
	if err := s.registry.ForceFinalize(r.Context(), streamKey); err != nil {
		respondError(w, r, http.StatusNotFound, "not_found", err.Error())
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// handleUploaderLogs returns the recent uploader output for streamKey, for
// relayctl's log-tail command.
func (s *Server) handleUploaderLogs(w http.ResponseWriter, r *http.Request) {
	streamKey := chi.URLParam(r, "streamKey")
	if !fsutil.IsSafeIdentifier(streamKey) {
		respondError(w, r, http.StatusBadRequest, "bad_request", "invalid stream key")
		return
	}
	lines, err := s.registry.UploaderLogs(streamKey)
	if err != nil {
		respondError(w, r, http.StatusNotFound, "not_found", err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(struct {
		Lines []string `json:"lines"`
	}{Lines: lines}); err != nil {
		respondError(w, r, http.StatusInternalServerError, "internal", "failed to encode logs")
	}
}
