package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/shiboli/mofadvisor/internal/app"
	"github.com/shiboli/mofadvisor/internal/config"
	"github.com/shiboli/mofadvisor/internal/ingest"
)

// runIngest batch-ingests every .md paper in a directory. Documents already
// recorded as processed are skipped unless -force is given, which purges
// the store and the completion log first.
func runIngest(args []string) error {
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	force := fs.Bool("force", false, "purge the store and completion log, then re-ingest everything")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	dir := cfg.PapersDir
	if fs.NArg() > 0 {
		dir = fs.Arg(0)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, nil)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer a.Close()

	if *force {
		fmt.Println("Purging the knowledge store and completion log...")
		if err := a.Store.Purge(ctx); err != nil {
			return fmt.Errorf("purging store: %w", err)
		}
		if err := a.Tracker.Reset(ctx); err != nil {
			return fmt.Errorf("resetting completion log: %w", err)
		}
	}

	papers, err := listPapers(dir)
	if err != nil {
		return err
	}
	if len(papers) == 0 {
		fmt.Printf("No .md papers found in %s\n", dir)
		return nil
	}
	fmt.Printf("Ingesting %d paper(s) from %s...\n", len(papers), dir)

	pipeline, err := a.NewPipeline()
	if err != nil {
		return fmt.Errorf("building pipeline: %w", err)
	}

	var stored, skippedEntries, duplicates, failures int
	for _, paper := range papers {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		content, err := os.ReadFile(paper)
		if err != nil {
			fmt.Printf("  %-40s read failed: %v\n", filepath.Base(paper), err)
			failures++
			continue
		}

		report, err := pipeline.Process(ctx, filepath.Base(paper), string(content))
		switch {
		case errors.Is(err, ingest.ErrAlreadyProcessed):
			duplicates++
			fmt.Printf("  %-40s already processed, skipped\n", filepath.Base(paper))
		case err != nil:
			failures++
			fmt.Printf("  %-40s failed: %v\n", filepath.Base(paper), err)
		default:
			stored += report.Stored
			skippedEntries += report.Skipped
			fmt.Printf("  %-40s %d entries stored, %d skipped\n", filepath.Base(paper), report.Stored, report.Skipped)
		}
	}

	fmt.Println()
	fmt.Printf("Done: %d entries stored, %d entries skipped, %d documents already processed, %d documents failed\n",
		stored, skippedEntries, duplicates, failures)
	return nil
}

// listPapers returns the .md files in dir, sorted by name.
func listPapers(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading papers directory %s: %w", dir, err)
	}

	var papers []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".md") {
			papers = append(papers, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(papers)
	return papers, nil
}
