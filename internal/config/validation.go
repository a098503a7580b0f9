package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	// 1. Provider must be a known identifier; the prefix map is the
	// authority, there is no silent default.
	if _, ok := providerPrefixes[c.Provider]; !ok {
		return fmt.Errorf("%w: %q (supported: %s)",
			ErrInvalidProvider, c.Provider, strings.Join(supportedProviders(), ", "))
	}

	// 2. API key presence depends on the selected provider. The keys are
	// read by the model plugins directly; only presence is checked here.
	switch c.Provider {
	case ProviderGemini:
		if os.Getenv("GEMINI_API_KEY") == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY environment variable is required\n"+
				"Get your API key at: https://ai.google.dev/gemini-api/docs/api-key",
				ErrMissingAPIKey)
		}
	case ProviderOpenAI:
		if os.Getenv("OPENAI_API_KEY") == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY environment variable is required", ErrMissingAPIKey)
		}
	case ProviderOllama:
		if c.OllamaHost == "" {
			return fmt.Errorf("%w: ollama_host cannot be empty", ErrInvalidOllamaHost)
		}
	}

	// 3. Model configuration
	if c.ModelName == "" {
		return fmt.Errorf("%w: model_name cannot be empty", ErrInvalidModelName)
	}
	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: embedder_model cannot be empty", ErrInvalidEmbedderModel)
	}

	// 4. Ingestion tuning
	if c.Workers < 1 || c.Workers > 32 {
		return fmt.Errorf("%w: must be between 1 and 32, got %d", ErrInvalidWorkers, c.Workers)
	}
	if c.PacingMS < 0 || c.PacingMS > 60000 {
		return fmt.Errorf("%w: must be between 0 and 60000, got %d", ErrInvalidPacing, c.PacingMS)
	}
	if c.PapersDir == "" {
		return fmt.Errorf("%w: papers_dir cannot be empty", ErrInvalidPapersDir)
	}

	// 5. PostgreSQL configuration
	if c.PostgresHost == "" {
		return fmt.Errorf("%w: host cannot be empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: must be between 1 and 65535, got %d", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: database name cannot be empty", ErrInvalidPostgresDBName)
	}
	if c.PostgresPassword == "" {
		return fmt.Errorf("%w: postgres_password must be set", ErrInvalidPostgresPassword)
	}
	if c.PostgresPassword == "mofadvisor_dev_password" {
		slog.Warn("Using default development password for PostgreSQL",
			"warning", "Change postgres_password for production deployments")
	}
	if len(c.PostgresPassword) < 8 {
		return fmt.Errorf("%w: postgres_password must be at least 8 characters (got %d)",
			ErrInvalidPostgresPassword, len(c.PostgresPassword))
	}

	return nil
}

func supportedProviders() []string {
	return []string{ProviderGemini, ProviderOpenAI, ProviderOllama}
}
