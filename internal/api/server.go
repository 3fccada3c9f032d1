// SPDX-License-Identifier: MIT

// Package api serves read-only inspection of the active spec set over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/ManuGH/ibpcdc/internal/catalog"
	"github.com/ManuGH/ibpcdc/internal/health"
	"github.com/ManuGH/ibpcdc/internal/metrics"
	"github.com/ManuGH/ibpcdc/internal/specset"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"
)

// maxValidateBody bounds POST /api/v1/validate request bodies.
const maxValidateBody = 1 << 20

// readyTimeout bounds the catalog ping of GET /readyz.
const readyTimeout = 2 * time.Second

// Config holds the HTTP surface settings.
type Config struct {
	Version     string
	ServiceName string
	RateLimit   RateLimitConfig
	// TracerProvider receives request spans; nil uses the global provider.
	TracerProvider trace.TracerProvider
}

// Server routes API requests to the spec set and, when present, the catalog.
type Server struct {
	cfg     Config
	specs   *specset.Holder
	catalog *catalog.Store
	ready   *health.Manager
	router  chi.Router
}

// New builds the server. store may be nil, which disables the catalog routes.
func New(cfg Config, set *specset.Holder, store *catalog.Store) *Server {
	s := &Server{cfg: cfg, specs: set, catalog: store}
	s.ready = health.NewManager(cfg.Version)
	s.ready.RegisterChecker(health.NewDirChecker("spec_dir", set.Dir()))
	s.ready.RegisterChecker(health.NewCountChecker("specs", func() int { return set.Current().Len() }))
	if store != nil {
		s.ready.RegisterChecker(health.NewPingChecker("catalog", store, readyTimeout))
	}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	service := s.cfg.ServiceName
	if service == "" {
		service = "ibpcdc"
	}
	// Tracing outermost so the span covers recovery, then correlation,
	// metrics and logging.
	r.Use(Tracing(service, s.cfg.TracerProvider))
	r.Use(Recoverer)
	r.Use(RequestID)
	r.Use(metrics.HTTPMiddleware())
	r.Use(RequestLogger)
	r.Use(traceRoute)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, CodeNotFound, "no such route")
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.ready.ServeReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(RateLimit(s.cfg.RateLimit))

		r.Get("/specs", s.handleListSpecs)
		r.Get("/specs/{tag}", s.handleGetSpec)
		r.Get("/specs/{tag}/schedule", s.handleSchedule)
		r.Get("/specs/{tag}/plan", s.handlePlan)
		r.Post("/validate", s.handleValidate)

		if s.catalog != nil {
			r.Get("/catalog", s.handleListCatalog)
			r.Get("/catalog/{tag}", s.handleGetCatalog)
			r.Get("/catalog/{tag}/validations", s.handleCatalogValidations)
		}
	})
	return r
}
