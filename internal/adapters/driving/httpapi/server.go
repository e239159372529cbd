package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/loom-gateway/internal/core/ports/driving"
	"github.com/custodia-labs/loom-gateway/internal/logger"
	"github.com/custodia-labs/loom-gateway/internal/ratelimit"
)

// DefaultMaxUploadBytes caps multipart uploads.
const DefaultMaxUploadBytes = 50 << 20

// Config configures the HTTP server.
type Config struct {
	Addr            string
	MaxUploadBytes  int64
	ShutdownTimeout time.Duration

	// Metrics enables the Prometheus middleware and /metrics.
	Metrics bool

	// RateLimit is applied per client IP to /v1 routes. Zero disables it.
	RateLimit ratelimit.Config
}

// Services are the driving ports the handlers call.
type Services struct {
	Ingest  driving.IngestService
	Chat    driving.ChatService
	Catalog driving.CatalogService
}

// Server is the gateway HTTP server.
type Server struct {
	cfg      Config
	services Services
	router   *gin.Engine
	metrics  *Metrics
	limiter  *ratelimit.KeyedLimiter
	server   *http.Server
}

// New creates a server with middleware and routes registered.
func New(cfg Config, services Services) (*Server, error) {
	if services.Ingest == nil || services.Chat == nil || services.Catalog == nil {
		return nil, errors.New("httpapi: ingest, chat and catalog services are required")
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	if !logger.IsVerbose() && gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:      cfg,
		services: services,
		router:   gin.New(),
	}
	if cfg.Metrics {
		s.metrics = NewMetrics("loom")
	}
	if cfg.RateLimit.RequestsPerSecond > 0 {
		s.limiter = ratelimit.NewKeyed(cfg.RateLimit)
	}

	s.setupMiddleware()
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupMiddleware() {
	s.router.Use(recoveryMiddleware())
	s.router.Use(requestIDMiddleware())
	s.router.Use(accessLogMiddleware())
	if s.metrics != nil {
		s.router.Use(s.metrics.Middleware())
	}
}

// Handler returns the router as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Metrics returns the metrics collector, nil when disabled.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.server = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening on %s", ln.Addr())
		errCh <- s.server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	logger.Info("HTTP server shutting down")
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
