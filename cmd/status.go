package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/shiboli/mofadvisor/internal/config"
	"github.com/shiboli/mofadvisor/internal/tracker"
)

// runStatus prints the ingestion progress summary from the papers
// directory and the completion log. No database connection is needed.
func runStatus() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	return printStatus(context.Background(), cfg.PapersDir, tracker.New(cfg.ProcessedLogPath()))
}

func printStatus(ctx context.Context, papersDir string, tr *tracker.Tracker) error {
	total := 0
	entries, err := os.ReadDir(papersDir)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading papers directory: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".md") {
			total++
		}
	}

	processed, err := tr.Processed(ctx)
	if err != nil {
		return fmt.Errorf("reading completion log: %w", err)
	}

	fmt.Printf("Papers in %s: %d\n", papersDir, total)
	fmt.Printf("Papers processed: %d\n", len(processed))
	if len(processed) > 0 {
		fmt.Println()
		for _, id := range processed {
			fmt.Printf("  %s\n", id)
		}
	}
	return nil
}
