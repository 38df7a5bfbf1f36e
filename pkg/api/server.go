// Package api is the debug REST API for a crcbd block device.
//
// Routes under /api/v1 are protected by an X-API-Key header when a key is
// configured. /metrics is always open for scraping.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// Server holds the API server state. The device is not safe for concurrent
// use, so every call into it holds mu.
type Server struct {
	mu      sync.Mutex
	device  IBlockDevice
	config  ServerConfig
	metrics *Metrics
	logger  *slog.Logger
}

// NewServer creates a new API server
func NewServer(device IBlockDevice, config ServerConfig, metrics *Metrics, logger *slog.Logger) *Server {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		device:  device,
		config:  config,
		metrics: metrics,
		logger:  logger,
	}
}

// Routes builds the router with all routes configured
func (s *Server) Routes() http.Handler {
	origins := s.config.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// unprotected for scraping
	r.Handle("/metrics", s.metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.metrics.InstrumentAuthMiddleware(apiKeyMiddleware(s.config.APIKey)))

		r.Get("/health", s.metrics.InstrumentHandler("GET", "/api/v1/health", s.handleHealth))
		r.Get("/device", s.metrics.InstrumentHandler("GET", "/api/v1/device", s.handleDevice))
		r.Get("/stats", s.metrics.InstrumentHandler("GET", "/api/v1/stats", s.handleStats))

		r.Get("/blocks/{block}", s.metrics.InstrumentHandler("GET", "/api/v1/blocks/{block}", s.handleRead))
		r.Put("/blocks/{block}", s.metrics.InstrumentHandler("PUT", "/api/v1/blocks/{block}", s.handleProg))
		r.Post("/blocks/{block}/erase", s.metrics.InstrumentHandler("POST", "/api/v1/blocks/{block}/erase", s.handleErase))
		r.Post("/sync", s.metrics.InstrumentHandler("POST", "/api/v1/sync", s.handleSync))

		r.Post("/faults", s.metrics.InstrumentHandler("POST", "/api/v1/faults", s.handleFault))
	})

	return r
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.config.Bind, s.config.Port)
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Addr(),
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("starting crcbd debug API", "addr", srv.Addr, "auth", s.config.APIKey != "")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen on %s: %w", srv.Addr, err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Info("shutting down crcbd debug API")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
