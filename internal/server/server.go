// Package server exposes the power and decision engine over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/headline-goat/powergoat/internal/cache"
	"github.com/headline-goat/powergoat/internal/config"
	"github.com/headline-goat/powergoat/internal/metrics"
	"github.com/headline-goat/powergoat/internal/power"
	"github.com/headline-goat/powergoat/internal/request"
)

const tracerName = "github.com/headline-goat/powergoat/internal/server"

const shutdownTimeout = 10 * time.Second

type Server struct {
	addr      string
	defaults  request.Defaults
	logger    *slog.Logger
	metrics   *metrics.Metrics
	mdeCache  *cache.LRU[request.MDERequest, power.MDEResult]
	limiter   *rate.Limiter
	tracer    trace.Tracer
	router    *http.ServeMux
	startTime time.Time
}

func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	mdeCache, err := cache.New[request.MDERequest, power.MDEResult](cfg.Server.CacheSize, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to create MDE cache: %w", err)
	}

	srv := &Server{
		addr:      net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		defaults:  cfg.Defaults(),
		logger:    logger,
		metrics:   metrics.New(),
		mdeCache:  mdeCache,
		limiter:   rate.NewLimiter(rate.Limit(cfg.Server.RateLimit), cfg.Server.RateBurst),
		tracer:    otel.Tracer(tracerName),
		router:    http.NewServeMux(),
		startTime: time.Now(),
	}

	srv.setupRoutes()
	return srv, nil
}

func (s *Server) setupRoutes() {
	s.router.Handle("GET /health", s.instrument("/health", http.HandlerFunc(s.handleHealth)))
	s.router.Handle("GET /metrics", s.metrics.Handler())

	s.router.Handle("POST /api/power", s.api("/api/power", s.handlePower))
	s.router.Handle("POST /api/mde", s.api("/api/mde", s.handleMDE))
	s.router.Handle("POST /api/mid-experiment", s.api("/api/mid-experiment", s.handleMidExperiment))
	s.router.Handle("POST /api/decision", s.api("/api/decision", s.handleDecision))
	s.router.Handle("POST /api/status", s.api("/api/status", s.handleStatus))
}

// api wraps a calculation endpoint with rate limiting and instrumentation.
func (s *Server) api(route string, h http.HandlerFunc) http.Handler {
	return s.instrument(route, s.rateLimit(h))
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("powergoat listening", "addr", s.addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

func (s *Server) Addr() string {
	return s.addr
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) StartTime() time.Time {
	return s.startTime
}
