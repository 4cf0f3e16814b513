package httpserver

import (
	"context"
	"net/http"
	"strings"
	"time"

	"taskboard/backend/internal/config"
	authusecase "taskboard/backend/internal/usecase/auth"
	taskusecase "taskboard/backend/internal/usecase/task"

	"golang.org/x/time/rate"
)

// Server wraps the HTTP server lifecycle.
type Server struct {
	httpServer     *http.Server
	router         *http.ServeMux
	authService    *authusecase.Service
	taskService    *taskusecase.Service
	metrics        *Metrics
	authLimiter    *rateLimiter
	refreshTTL     time.Duration
	allowedOrigins []string
	addr           string
}

// NewServer constructs a new Server with configured dependencies.
func NewServer(cfg config.Config, authService *authusecase.Service, taskService *taskusecase.Service) *Server {
	mux := http.NewServeMux()
	addr := cfg.HTTPPort
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	metrics := NewMetrics()
	handler := withLogging(withMetrics(withCORS(mux, cfg.AllowedOrigins), metrics))

	srv := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      handler,
			ReadTimeout:  time.Duration(cfg.ReadTimeoutSec) * time.Second,
			WriteTimeout: time.Duration(cfg.WriteTimeoutSec) * time.Second,
			IdleTimeout:  time.Duration(cfg.IdleTimeoutSec) * time.Second,
		},
		router:         mux,
		authService:    authService,
		taskService:    taskService,
		metrics:        metrics,
		authLimiter:    newRateLimiter(rate.Limit(float64(cfg.AuthRatePerMin)/60.0), cfg.AuthRatePerMin),
		refreshTTL:     cfg.RefreshTokenTTL,
		allowedOrigins: cfg.AllowedOrigins,
		addr:           addr,
	}
	srv.registerRoutes()
	return srv
}

// Start bootstraps the HTTP server on the configured address.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.authLimiter.stop()
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the underlying ServeMux so routes can be registered.
func (s *Server) Router() *http.ServeMux {
	return s.router
}

// Addr returns the configured network address for the HTTP server.
func (s *Server) Addr() string {
	return s.addr
}
