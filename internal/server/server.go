package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"displaybox/internal/auth"
	"displaybox/internal/metrics"
	"displaybox/internal/store"
	tokenauth "displaybox/pkg/auth"
)

// siteStore is the persistence the handlers need.
type siteStore interface {
	LoadSites() []store.Site
	LoadConfig() store.Config
	AddSite(name, description, port string) store.Site
	DeleteSite(id string)
	SetThemeColor(color string) store.Config
}

type Config struct {
	Store  siteStore
	Gate   *auth.Gate
	Logger zerolog.Logger
	// Clock times requests for the access log. Defaults to the real clock.
	Clock clockwork.Clock

	// Metrics and Registry are optional. /metrics is only mounted when
	// Registry is set, behind MetricsToken if that is non-empty.
	Metrics      *metrics.Metrics
	Registry     *prometheus.Registry
	MetricsToken string
}

type Server struct {
	router chi.Router
	store  siteStore
	gate   *auth.Gate
	views  *views
	log    zerolog.Logger
	clock  clockwork.Clock
}

func New(cfg Config) (*Server, error) {
	if cfg.Store == nil {
		return nil, errors.New("store is required")
	}
	if cfg.Gate == nil {
		return nil, errors.New("session gate is required")
	}
	log := cfg.Logger.With().Str("component", "http").Logger()
	v, err := newViews(log)
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		store:  cfg.Store,
		gate:   cfg.Gate,
		views:  v,
		log:    log,
		clock:  cfg.Clock,
	}
	if s.clock == nil {
		s.clock = clockwork.NewRealClock()
	}
	s.registerRoutes(cfg)
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// HTTPServer wraps the router with the listen address and timeouts.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}

func (s *Server) registerRoutes(cfg Config) {
	r := s.router
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger(s.log, s.clock), middleware.Recoverer)
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}
	r.Use(s.gate.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if cfg.Registry != nil {
		r.With(tokenauth.TokenMiddleware(cfg.MetricsToken)).Handle("/metrics", metrics.Handler(cfg.Registry))
	}
	r.Handle("/static/*", http.FileServer(http.FS(staticFiles)))

	r.Get("/", handleSplash(s.store, s.views))
	r.Get("/site/{id}", handleSite(s.store, s.views))
	r.Get("/login", handleLoginPage(s.store, s.views))
	r.Post("/login", handleLogin(s.store, s.gate, s.views))
	r.Get("/logout", handleLogout(s.gate))

	r.Route("/admin", func(r chi.Router) {
		r.Use(s.gate.RequireAuthenticated)
		r.Get("/", handleAdmin(s.store, s.views))
		r.Post("/site", handleAddSite(s.store))
		r.Post("/site/{id}/delete", handleDeleteSite(s.store))
		r.Post("/theme", handleUpdateTheme(s.store))
	})
}

func requestLogger(log zerolog.Logger, clock clockwork.Clock) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := clock.Now()
			next.ServeHTTP(ww, r)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			log.Info().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("latency", clock.Since(start)).
				Msg("request")
		})
	}
}
