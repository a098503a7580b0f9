package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/shiboli/mofadvisor/api"
	"github.com/shiboli/mofadvisor/internal/app"
	"github.com/shiboli/mofadvisor/internal/config"
)

// runServe initializes the application and starts the HTTP API server with
// the ingestion worker pool running beside it.
func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := slog.Default()
	logger.Info("starting HTTP API server", "version", AppVersion)

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer a.Close()

	server := api.NewServer(a.DBPool, a.Advisor, a.Workers, a.Tracker, cfg.PapersDir, logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.Workers.Run(ctx, cfg.Workers)
	})
	g.Go(func() error {
		defer a.Workers.Close()
		return server.Run(ctx, cfg.ServerAddr)
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
