// Package cmd provides the CLI commands.
//
// Commands:
//   - serve: HTTP API server (suggest + ingestion endpoints)
//   - ingest: batch-ingest papers from a directory
//   - status: ingestion progress summary
//
// All long-running commands handle SIGINT/SIGTERM via context
// cancellation.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/shiboli/mofadvisor/internal/log"
)

// Execute is the main entry point for the CLI.
func Execute() error {
	// Initialize logger once at entry point.
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(log.New(log.Config{Level: level, JSON: os.Getenv("LOG_JSON") != ""}))

	if len(os.Args) < 2 {
		runHelp()
		return nil
	}

	switch os.Args[1] {
	case "serve":
		return runServe()
	case "ingest":
		return runIngest(os.Args[2:])
	case "status":
		return runStatus()
	case "version", "--version", "-v":
		runVersion()
		return nil
	case "help", "--help", "-h":
		runHelp()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", os.Args[1])
	}
}

// runHelp displays the help message.
func runHelp() {
	fmt.Println("mofadvisor - MOF synthesis knowledge base and advisor")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  mofadvisor serve               Start the HTTP API server")
	fmt.Println("  mofadvisor ingest [-force] [dir]")
	fmt.Println("                                 Ingest .md papers from a directory")
	fmt.Println("                                 (-force purges the store and re-ingests everything)")
	fmt.Println("  mofadvisor status              Show ingestion progress")
	fmt.Println("  mofadvisor --version           Show version information")
	fmt.Println("  mofadvisor --help              Show this help")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  GEMINI_API_KEY     Required for the gemini provider")
	fmt.Println("  OPENAI_API_KEY     Required for the openai provider")
	fmt.Println("  DATABASE_URL       Optional: PostgreSQL connection URL")
	fmt.Println("  DEBUG              Optional: Enable debug logging")
	fmt.Println("  LOG_JSON           Optional: Emit logs as JSON")
}
