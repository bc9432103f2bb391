package httpapi

import (
	"net"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"github.com/Roenbaeck/hls-relay/internal/fsutil"
)

// isLoopback reports whether r's RemoteAddr resolves to a loopback address,
// gating the read-only segment/playlist endpoints to same-host callers
// (the uploader child) per spec.md §4.6.
func isLoopback(r *http.Request) bool {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// handlePlaylist serves a session's current playlist.m3u8, read directly
// off disk: the playlist.Writer is append-only, so plain reads are always
// safe to interleave with in-progress writes.
func (s *Server) handlePlaylist(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if !fsutil.IsSafeIdentifier(sessionID) {
		respondError(w, r, http.StatusBadRequest, "bad_request", "invalid session id")
		return
	}
	path, err := fsutil.ConfineRelPath(s.baseDir, filepath.Join(sessionID, "playlist.m3u8"))
	if err != nil {
		respondError(w, r, http.StatusNotFound, "not_found", "playlist not found")
		return
	}
	w.Header().Set("Content-Type", "application/vnd.apple.mpegurl")
	http.ServeFile(w, r, path)
}

// handleSegmentFile serves one segment body (init or media) for sessionID.
func (s *Server) handleSegmentFile(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	filename := chi.URLParam(r, "filename")
	if !fsutil.IsSafeIdentifier(sessionID) {
		respondError(w, r, http.StatusBadRequest, "bad_request", "invalid session id")
		return
	}
	path, err := fsutil.ConfineRelPath(s.baseDir, filepath.Join(sessionID, filename))
	if err != nil {
		respondError(w, r, http.StatusNotFound, "not_found", "segment not found")
		return
	}
	if _, err := os.Stat(path); err != nil {
		respondError(w, r, http.StatusNotFound, "not_found", "segment not found")
		return
	}
	w.Header().Set("Content-Type", "video/mp4")
	http.ServeFile(w, r, path)
}
