// Package server exposes the variation engine over HTTP. Batches run as
// background jobs; clients poll progress and fetch outputs as they appear.
package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/fpang/photo-variator/internal/config"
	"github.com/fpang/photo-variator/internal/jobs"
)

// ArchivePublisher uploads a finished archive and returns a download URL.
// *s3util.ArchiveStore satisfies it.
type ArchivePublisher interface {
	Publish(ctx context.Context, batchID, fileName string, data []byte) (key, url string, err error)
}

// Server holds the dependencies of the HTTP handlers.
type Server struct {
	cfg       *config.Config
	jobs      *jobs.Manager
	publisher ArchivePublisher
	version   string
}

// New builds a Server. publisher may be nil, in which case archives are
// streamed directly.
func New(cfg *config.Config, mgr *jobs.Manager, publisher ArchivePublisher, version string) *Server {
	return &Server{cfg: cfg, jobs: mgr, publisher: publisher, version: version}
}

// Handler returns the routed, middleware-wrapped API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(withLogging, withCORS)

	r.Get("/api/health", s.handleHealth)

	r.Route("/api/variations", func(r chi.Router) {
		r.Post("/", s.handleCreate)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleStatus)
			r.Delete("/", s.handleCancel)
			r.Get("/images/{n}", s.handleImage)
			r.Get("/thumbnails/{n}", s.handleThumbnail)
			r.Get("/archive", s.handleArchive)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

// --- Middleware ---

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		if strings.HasPrefix(r.URL.Path, "/api/") {
			log.Info().
				Str("requestId", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("API request")
		}
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Only localhost origins; the Lambda sits behind API Gateway CORS.
		origin := r.Header.Get("Origin")
		if origin != "" && (strings.HasPrefix(origin, "http://localhost:") || strings.HasPrefix(origin, "http://127.0.0.1:")) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
