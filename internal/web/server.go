// Package web exposes the import engine over HTTP: a multipart upload
// endpoint, profile templates, the run history, health and metrics.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/uniimport/internal/config"
	"github.com/JonMunkholm/uniimport/internal/core"
	"github.com/JonMunkholm/uniimport/internal/store"
	"github.com/JonMunkholm/uniimport/internal/web/middleware"
)

// multipartOverhead is the slack allowed on top of the CSV size limit for
// form fields and part headers.
const multipartOverhead = 1 << 20

// Server is the HTTP front of the import service.
type Server struct {
	service *core.Service
	store   store.Store
	cfg     *config.Config
	router  *chi.Mux
	server  *http.Server
}

// NewServer creates a Server. st is only used for health checks; imports
// go through service.
func NewServer(service *core.Service, st store.Store, cfg *config.Config) *Server {
	s := &Server{
		service: service,
		store:   st,
		cfg:     cfg,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(securityHeaders)

	if s.cfg.Rate.Enabled {
		s.router.Use(middleware.RateLimit(s.cfg.Rate.RequestsPerMinute, s.rateLimited))
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	if s.cfg.Telemetry.MetricsEnabled {
		s.router.Handle(s.cfg.Telemetry.MetricsPath, promhttp.Handler())
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(&s.cfg.Security))

		r.Get("/profiles", s.handleListProfiles)
		r.Get("/profiles/{profile}/template", s.handleTemplate)

		r.Post("/imports/{profile}", s.handleImport)
		r.Get("/imports", s.handleListImports)
		r.Get("/imports/{id}", s.handleGetImport)
	})
}

// Start listens on the configured address until Shutdown.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("http server listening", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

// rateLimited renders RATE001 once the per-client budget is spent.
func (s *Server) rateLimited(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Retry-After", "60")
	s.respondError(w, r, errRateLimited, http.StatusTooManyRequests)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	body := healthResponse{
		Status:  "ok",
		Store:   "ok",
		Imports: s.service.Limiter().Status(),
	}
	if err := s.store.Ping(ctx); err != nil {
		slog.Warn("health check: store unreachable", "error", err)
		status = http.StatusServiceUnavailable
		body.Status = "degraded"
		body.Store = "unreachable"
	}
	writeJSONStatus(w, status, body)
}

type healthResponse struct {
	Status  string                   `json:"status"`
	Store   string                   `json:"store"`
	Imports core.ImportLimiterStatus `json:"imports"`
}

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

// writeJSONStatus logs encoding failures; the header is already sent by then.
func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
