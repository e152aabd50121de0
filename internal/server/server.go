// Package server exposes the latest gate verdict and run history over HTTP
// in serve mode.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/avtr-nvivas/check-jtl/internal/config"
	"github.com/avtr-nvivas/check-jtl/internal/history"
	"github.com/avtr-nvivas/check-jtl/internal/report"
)

const defaultRunsLimit = 20

// RunLister reads back archived runs.
type RunLister interface {
	RecentRuns(ctx context.Context, limit int) ([]history.Run, error)
}

// Options carries the optional backends. Nil backends disable their routes.
type Options struct {
	History RunLister
	Metrics http.Handler
}

// Server serves the evaluation API.
type Server struct {
	cfg        *config.Config
	logger     *zap.Logger
	router     chi.Router
	httpServer *http.Server
	history    RunLister
	metrics    http.Handler
	startTime  time.Time

	mu     sync.RWMutex
	latest *report.Summary
}

// New creates a server listening on cfg.Serve.ListenAddr.
func New(cfg *config.Config, logger *zap.Logger, opts Options) *Server {
	s := &Server{
		cfg:       cfg,
		logger:    logger,
		router:    chi.NewRouter(),
		history:   opts.History,
		metrics:   opts.Metrics,
		startTime: time.Now(),
	}

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         cfg.Serve.ListenAddr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.loggingMiddleware)

	s.router.Get("/healthz", s.handleHealth)
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/summary", s.handleSummary)
		r.Get("/runs", s.handleRuns)
	})
	if s.metrics != nil {
		s.router.Method(http.MethodGet, "/metrics", s.metrics)
	}
}

// SetLatest publishes the most recent run for /api/v1/summary.
func (s *Server) SetLatest(summary *report.Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = summary
}

// Latest returns the most recently published summary, nil before the first run.
func (s *Server) Latest() *report.Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// Handler returns the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start blocks serving HTTP until Shutdown or a listener error.
func (s *Server) Start() error {
	s.logger.Info("starting server", zap.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"uptime": time.Since(s.startTime).Seconds(),
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, _ *http.Request) {
	latest := s.Latest()
	if latest == nil {
		s.respondError(w, http.StatusNotFound, errors.New("no runs evaluated yet"))
		return
	}
	s.respondJSON(w, http.StatusOK, latest)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.respondError(w, http.StatusServiceUnavailable, errors.New("history not configured"))
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = defaultRunsLimit
	}

	runs, err := s.history.RecentRuns(r.Context(), limit)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("latency", time.Since(start)),
		)
	})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode JSON response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, err error) {
	s.logger.Error("API error", zap.Error(err), zap.Int("status", status))
	s.respondJSON(w, status, map[string]string{
		"error": err.Error(),
	})
}
