// Package api exposes the publishing core over HTTP.
package api

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tendant/simple-publish/pkg/simplepublish"
)

// Server routes HTTP requests to the organization, media and content services.
type Server struct {
	core    *simplepublish.Core
	auth    *jwtauth.JWTAuth
	logger  *slog.Logger
	metrics bool
	timeout time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithJWTAuth requires a bearer token on every API route. The actor is the
// token's sub claim.
func WithJWTAuth(ja *jwtauth.JWTAuth) Option {
	return func(s *Server) {
		s.auth = ja
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics records request metrics and serves them on /metrics.
func WithMetrics(enabled bool) Option {
	return func(s *Server) {
		s.metrics = enabled
	}
}

// WithTimeout bounds every request.
func WithTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.timeout = d
	}
}

// New creates a Server over core.
func New(core *simplepublish.Core, opts ...Option) *Server {
	s := &Server{
		core:    core,
		logger:  slog.Default(),
		timeout: 60 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Mount registers the API under r. Health routes are left to the caller.
func (s *Server) Mount(r chi.Router) {
	if s.metrics {
		r.Handle("/metrics", promhttp.Handler())
	}
	r.Group(func(r chi.Router) {
		if s.metrics {
			r.Use(metricsMiddleware)
		}
		r.Use(Authenticate(s.auth))
		r.Mount("/organizations", s.organizationRoutes())
		r.Mount("/media", s.mediaRoutes())
		r.Mount("/content", s.contentRoutes())
	})
}

// Routes returns a standalone router with the standard middleware stack.
func (s *Server) Routes() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if s.timeout > 0 {
		r.Use(middleware.Timeout(s.timeout))
	}
	r.Route("/api/v1", s.Mount)
	return r
}

func (s *Server) organizationRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", s.createOrganization)
	r.Get("/", s.listOrganizations)
	r.Get("/slug-available", s.organizationSlugAvailable)
	r.Get("/by-slug/{slug}", s.getOrganizationBySlug)
	r.Get("/{id}", s.getOrganization)
	r.Patch("/{id}", s.updateOrganization)
	r.Delete("/{id}", s.deleteOrganization)
	return r
}

func (s *Server) mediaRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", s.createMedia)
	r.Get("/", s.listMedia)
	r.Get("/{id}", s.getMedia)
	r.Patch("/{id}", s.updateMedia)
	r.Delete("/{id}", s.deleteMedia)
	r.Put("/{id}/status", s.updateMediaStatus)
	r.Post("/{id}/ready", s.markMediaReady)
	r.Post("/{id}/upload-url", s.mediaUploadURL)
	r.Post("/{id}/confirm-upload", s.confirmMediaUpload)
	r.Get("/{id}/playback-url", s.mediaPlaybackURL)
	return r
}

func (s *Server) contentRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", s.createContent)
	r.Get("/", s.listContent)
	r.Get("/slug-available", s.contentSlugAvailable)
	r.Get("/by-slug/{slug}", s.getContentBySlug)
	r.Get("/{id}", s.getContent)
	r.Patch("/{id}", s.updateContent)
	r.Delete("/{id}", s.deleteContent)
	r.Post("/{id}/publish", s.publishContent)
	r.Post("/{id}/unpublish", s.unpublishContent)
	return r
}
