package cmd

import (
	"fmt"
	"os"

	"github.com/shiboli/mofadvisor/internal/config"
)

// Version information (injected at build time via ldflags)
var (
	AppVersion = "development"
	BuildTime  = "unknown"
	GitCommit  = "unknown"
)

func runVersion() {
	fmt.Printf("mofadvisor %s\n", AppVersion)
	fmt.Printf("Build Time: %s\n", BuildTime)
	fmt.Printf("Git Commit: %s\n", GitCommit)

	// Configuration may be incomplete here; version should still print.
	cfg, err := config.Load()
	if err != nil {
		return
	}

	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Printf("  Provider: %s\n", cfg.Provider)
	fmt.Printf("  Model: %s\n", cfg.FullModelName())
	fmt.Printf("  Embedder: %s\n", cfg.EmbedderModel)
	fmt.Printf("  Papers directory: %s\n", cfg.PapersDir)

	key := os.Getenv("GEMINI_API_KEY")
	if cfg.Provider == "openai" {
		key = os.Getenv("OPENAI_API_KEY")
	}
	if key != "" && len(key) > 8 {
		fmt.Printf("  API key: %s...%s (configured)\n", key[:4], key[len(key)-4:])
	} else if key != "" {
		fmt.Println("  API key: (configured)")
	} else {
		fmt.Println("  API key: not set")
	}
}
