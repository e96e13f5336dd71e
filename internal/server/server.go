// internal/server/server.go

package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/wilheimcosta/adwrng2/internal/config"
	"github.com/wilheimcosta/adwrng2/internal/handler"
	"github.com/wilheimcosta/adwrng2/internal/logger"
	"github.com/wilheimcosta/adwrng2/internal/middleware"
	"github.com/wilheimcosta/adwrng2/internal/ratelimit"

	"github.com/gorilla/mux"
)

type Server struct {
	httpServer *http.Server
	router     *mux.Router
	cfg        *config.Config
	log        *logger.Logger
}

func New(cfg *config.Config, log *logger.Logger) *Server {
	router := mux.NewRouter()

	server := &Server{
		router: router,
		cfg:    cfg,
		log:    log.With("http"),
		httpServer: &http.Server{
			Addr:           fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:        router,
			ReadTimeout:    cfg.Server.ReadTimeout,
			WriteTimeout:   cfg.Server.WriteTimeout,
			MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
		},
	}

	return server
}

// Handlers groups everything mounted on the router. Limiter may be nil when
// rate limiting is disabled.
type Handlers struct {
	Alerts     *handler.AlertHandler
	Aerodromes *handler.AerodromeHandler
	Health     *handler.HealthHandler
	WebSocket  http.HandlerFunc
	Limiter    *ratelimit.Limiter
}

func (s *Server) RegisterHandlers(h Handlers) {
	s.router.Use(middleware.Recovery(s.log))

	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.Use(middleware.RequestLogger(s.log))
	api.Use(middleware.CORS(s.cfg.Security.CORSAllowedOrigins, s.cfg.Security.CORSAllowedMethods))

	if s.cfg.Security.EnableRateLimit && h.Limiter != nil {
		api.Use(middleware.RateLimit(h.Limiter))
	}

	// Middleware only runs on matched routes, so preflights need a route of
	// their own for CORS to answer them.
	api.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	h.Alerts.RegisterRoutes(api)
	h.Aerodromes.RegisterRoutes(api)
	h.Health.RegisterRoutes(s.router)

	if h.WebSocket != nil {
		s.router.HandleFunc("/ws", h.WebSocket).Methods("GET")
	}

	s.log.Info("All handlers registered")
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.log.Info("Starting HTTP server on %s", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed to start: %w", err)
	}

	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down HTTP server...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.log.Info("HTTP server stopped")
	return nil
}
