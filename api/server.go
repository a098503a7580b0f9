// Package api provides the HTTP REST API.
//
// Endpoints:
//
//	GET  /health             liveness probe
//	GET  /ready              readiness probe (pings the database)
//	POST /api/suggest        suggest a synthesis protocol
//	POST /api/ingest/file    queue one uploaded paper for ingestion
//	POST /api/ingest/files   queue a batch of uploaded papers
//	GET  /api/ingest/status  ingestion progress summary
//
// File structure:
//   - server.go: HTTP server setup and lifecycle
//   - middleware.go: HTTP middleware (logging, recovery)
//   - health.go: health check endpoints
//   - suggest.go: query endpoint
//   - ingestion.go: ingestion endpoints
//   - response.go: JSON response helpers
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shiboli/mofadvisor/internal/ingest"
)

const (
	// DefaultAddr is the default address for the HTTP server.
	DefaultAddr = ":8080"

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout is the timeout for reading request headers.
	// Prevents Slowloris attacks (CWE-400).
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading the entire request.
	// Uploads of paper batches fit comfortably within this.
	ReadTimeout = 60 * time.Second

	// WriteTimeout is the maximum duration for writing the response. The
	// suggest path makes up to three sequential model round trips.
	WriteTimeout = 120 * time.Second

	// IdleTimeout is the keep-alive idle limit.
	IdleTimeout = 120 * time.Second
)

// Server is the HTTP server for the REST API.
type Server struct {
	mux *http.ServeMux

	health    *HealthHandler
	suggest   *SuggestHandler
	ingestion *IngestionHandler
}

// NewServer creates a server with all routes registered.
func NewServer(pool *pgxpool.Pool, adv SynthesisAdvisor, queue IngestionQueue, tracker ProcessedLog, papersDir string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()

	s := &Server{
		mux:       mux,
		health:    NewHealthHandler(pool, logger),
		suggest:   NewSuggestHandler(adv, logger),
		ingestion: NewIngestionHandler(queue, tracker, papersDir, logger),
	}

	s.health.RegisterRoutes(mux)
	s.suggest.RegisterRoutes(mux)
	s.ingestion.RegisterRoutes(mux)

	return s
}

// IngestionQueue is the submission surface of the worker pool, satisfied by
// *ingest.Workers.
type IngestionQueue interface {
	Submit(ctx context.Context, documentID, content string) (uuid.UUID, error)
}

// Handler returns the HTTP handler with middleware applied.
// Middleware order: recovery → logging → handler.
func (s *Server) Handler() http.Handler {
	return chain(s.mux, recoveryMiddleware, loggingMiddleware)
}

// Run starts the HTTP server and blocks until the context is canceled,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

var _ IngestionQueue = (*ingest.Workers)(nil)
