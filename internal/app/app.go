// Package app wires configuration, storage, model runtime and pipelines
// into a runnable application.
package app

import (
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shiboli/mofadvisor/internal/advisor"
	"github.com/shiboli/mofadvisor/internal/config"
	"github.com/shiboli/mofadvisor/internal/ingest"
	"github.com/shiboli/mofadvisor/internal/knowledge"
	"github.com/shiboli/mofadvisor/internal/llm"
	"github.com/shiboli/mofadvisor/internal/tracker"
)

// App holds the wired application components.
// Call Close() to release resources; Close is safe to call after a partial
// Setup failure.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	DBPool   *pgxpool.Pool
	Genkit   *genkit.Genkit
	Embedder ai.Embedder

	Store   *knowledge.Store
	Tracker *tracker.Tracker
	Gateway *llm.Gateway
	Advisor *advisor.Advisor
	Workers *ingest.Workers

	// NewPipeline builds a fresh ingestion pipeline with its own pacing
	// limiter. Each worker gets one.
	NewPipeline func() (*ingest.Pipeline, error)

	otelCleanup func()
	dbCleanup   func()
}

// Close releases all resources in reverse initialization order.
func (a *App) Close() {
	if a.Workers != nil {
		a.Workers.Close()
	}
	if a.dbCleanup != nil {
		a.dbCleanup()
		a.dbCleanup = nil
	}
	if a.otelCleanup != nil {
		a.otelCleanup()
		a.otelCleanup = nil
	}
}
