// Package httpapi wires the ingest, loopback-read, and status HTTP
// surfaces on top of chi, matching the teacher's middleware-stack
// convention (internal/api/middleware in the teacher repo).
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/Roenbaeck/hls-relay/internal/config"
	"github.com/Roenbaeck/hls-relay/internal/log"
	"github.com/Roenbaeck/hls-relay/internal/registry"
)

// Server holds the dependencies the HTTP handlers close over.
type Server struct {
	cfg      config.Config
	registry *registry.Registry
	baseDir  string
}

// New constructs a Server.
func New(cfg config.Config, reg *registry.Registry, baseDir string) *Server {
	return &Server{cfg: cfg, registry: reg, baseDir: baseDir}
}

// IngestRouter returns the router for the segment-upload endpoint: Basic
// Auth, per-source-IP rate limiting, recovery, and request logging.
func (s *Server) IngestRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(log.Middleware())
	r.Use(httprate.LimitByIP(60, time.Minute))
	r.Post("/upload_segment", requireBasicAuth(s.cfg.BasicAuthUser, s.cfg.BasicAuthPass, s.handleUploadSegment))
	return r
}

// LoopbackRouter returns the router for the read-only endpoints the
// uploader child pulls from, restricted to loopback callers.
func (s *Server) LoopbackRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(log.Middleware())
	r.Get("/segments/{sessionID}/playlist.m3u8", requireLoopback(s.handlePlaylist))
	r.Get("/segments/{sessionID}/{filename}", requireLoopback(s.handleSegmentFile))
	return r
}

// StatusRouter returns the router for the optional operator status page.
func (s *Server) StatusRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(log.Middleware())
	r.Get("/status", s.handleStatus)
	r.Post("/sessions/{streamKey}/finalize", s.handleForceFinalize)
	r.Get("/sessions/{streamKey}/logs", s.handleUploaderLogs)
	return r
}
