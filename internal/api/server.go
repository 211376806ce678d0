// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package api exposes Snowcap's HTTP surface: submitting and polling
// synthesize/synthesize_parallel/optimize runs, and a Prometheus scrape
// endpoint.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"snowcap.dev/snowcap/internal/history"
	"snowcap.dev/snowcap/internal/logging"
	"snowcap.dev/snowcap/internal/metrics"
	"snowcap.dev/snowcap/internal/notification"
)

// ServerConfig holds HTTP server hardening parameters.
type ServerConfig struct {
	ReadHeaderTimeout time.Duration // Slowloris prevention
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	MaxBodyBytes      int64
	RateLimitPerSec   float64 // requests/sec sustained
	RateLimitBurst    int
}

// DefaultServerConfig returns conservative defaults sized for a single
// synthesis daemon serving a handful of concurrent campaign submissions.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
		MaxBodyBytes:      4 << 20, // topology HCL bodies are small
		RateLimitPerSec:   5,
		RateLimitBurst:    10,
	}
}

// ServerOptions holds Server's dependencies.
type ServerOptions struct {
	Config    *ServerConfig
	Logger    *logging.Logger
	History   *history.Store // optional: omit to skip persisting completed runs
	Collector *metrics.Collector
	Notifier  *notification.Dispatcher // optional: omit to skip alerting on run completion
}

// Server is Snowcap's HTTP API: run submission/status/cancellation under
// /v1/runs, and a Prometheus scrape endpoint at /metrics.
type Server struct {
	cfg        *ServerConfig
	logger     *logging.Logger
	jobs       *JobManager
	router     *mux.Router
	httpServer *http.Server
}

// NewServer builds a Server and registers its routes.
func NewServer(opts ServerOptions) *Server {
	cfg := opts.Config
	if cfg == nil {
		cfg = DefaultServerConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.New(logging.DefaultConfig())
	}

	jobs := NewJobManager(logger, opts.History, opts.Collector, opts.Notifier)

	s := &Server{
		cfg:    cfg,
		logger: logger,
		jobs:   jobs,
		router: mux.NewRouter(),
	}

	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)
	s.router.Use(rateLimitMiddleware(limiter))

	runsHandlers := &RunsHandlers{jobs: jobs, logger: logger}
	runsHandlers.RegisterRoutes(s.router)

	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	s.httpServer = &http.Server{
		Handler:           http.MaxBytesHandler(s.router, cfg.MaxBodyBytes),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	return s
}

// Router exposes the underlying mux.Router, mainly so tests can drive
// requests through it without binding a real listener.
func (s *Server) Router() *mux.Router { return s.router }

// ActiveCount implements metrics.JobSource by delegating to this server's
// JobManager, so a Collector constructed before the Server can still poll
// it once bound via Collector.SetSource.
func (s *Server) ActiveCount() int { return s.jobs.ActiveCount() }

// ListenAndServe binds addr and serves until the process is killed or
// Shutdown is called from another goroutine.
func (s *Server) ListenAndServe(addr string) error {
	s.httpServer.Addr = addr
	s.logger.Info("api server listening", "addr", addr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func rateLimitMiddleware(limiter *rate.Limiter) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				respondWithJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// respondWithJSON marshals payload and writes it with the given status
// code, falling back to a 500 if marshaling itself fails.
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(body)
}
