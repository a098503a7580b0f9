// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.mofadvisor/config.yaml or ./config.yaml)
//  3. Default values
//
// Error handling uses sentinel errors so callers can check categories with
// errors.Is(). Sensitive fields are masked in MarshalJSON; never log the
// raw struct.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidProvider indicates the model provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidModelName indicates the model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidWorkers indicates the worker count is out of range.
	ErrInvalidWorkers = errors.New("invalid workers")

	// ErrInvalidPacing indicates the extraction pacing is out of range.
	ErrInvalidPacing = errors.New("invalid pacing_ms")

	// ErrInvalidPapersDir indicates the papers directory is invalid.
	ErrInvalidPapersDir = errors.New("invalid papers_dir")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresPassword indicates the PostgreSQL password is invalid.
	ErrInvalidPostgresPassword = errors.New("invalid PostgreSQL password")

	// ErrInvalidOllamaHost indicates the Ollama host is invalid.
	ErrInvalidOllamaHost = errors.New("invalid Ollama host")
)

// Model provider identifiers used in Config.Provider.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// providerPrefixes maps a configured provider to the prefix its models are
// registered under. The map is the single source of truth: an unlisted
// provider is a configuration error, never a silent default.
var providerPrefixes = map[string]string{
	ProviderGemini: "googleai",
	ProviderOpenAI: "openai",
	ProviderOllama: "ollama",
}

const (
	// DefaultEmbedderModel outputs 3072 dimensions by default but supports
	// truncation to 768 via OutputDimensionality. The entries schema uses
	// 768; see knowledge.VectorDimension.
	DefaultEmbedderModel = "gemini-embedding-001"

	// DefaultPacingMS is the minimum spacing between extraction calls.
	DefaultPacingMS = 1000

	// DefaultWorkers is the ingestion worker count.
	DefaultWorkers = 2
)

// Config stores application configuration.
// SECURITY: sensitive fields are masked in MarshalJSON. When adding new
// sensitive fields, update MarshalJSON.
type Config struct {
	// Model provider and names
	Provider      string `mapstructure:"provider" json:"provider"`
	ModelName     string `mapstructure:"model_name" json:"model_name"`
	EmbedderModel string `mapstructure:"embedder_model" json:"embedder_model"`

	// Ollama configuration (only used when provider is "ollama")
	OllamaHost string `mapstructure:"ollama_host" json:"ollama_host"`

	// Retrieval and ingestion tuning
	PacingMS  int    `mapstructure:"pacing_ms" json:"pacing_ms"`
	Workers   int    `mapstructure:"workers" json:"workers"`
	QueueSize int    `mapstructure:"queue_size" json:"queue_size"`
	PapersDir string `mapstructure:"papers_dir" json:"papers_dir"`
	// ProcessedLog is the completion tracking file. Empty means
	// "<papers_dir>/processed_files.log".
	ProcessedLog string `mapstructure:"processed_log" json:"processed_log"`

	// HTTP server
	ServerAddr string `mapstructure:"server_addr" json:"server_addr"`

	// Storage configuration (see storage.go)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Observability configuration (see observability.go)
	Tracing TracingConfig `mapstructure:"tracing" json:"tracing"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".mofadvisor")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine, defaults apply.
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL overrides individual postgres_* settings.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	viper.SetDefault("provider", ProviderGemini)
	viper.SetDefault("model_name", "gemini-2.5-flash")
	viper.SetDefault("embedder_model", DefaultEmbedderModel)
	viper.SetDefault("ollama_host", "http://localhost:11434")

	viper.SetDefault("pacing_ms", DefaultPacingMS)
	viper.SetDefault("workers", DefaultWorkers)
	viper.SetDefault("queue_size", 64)
	viper.SetDefault("papers_dir", "papers")
	viper.SetDefault("processed_log", "")

	viper.SetDefault("server_addr", ":8080")

	// PostgreSQL defaults (matching docker-compose.yml)
	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "mofadvisor")
	viper.SetDefault("postgres_password", "mofadvisor_dev_password")
	viper.SetDefault("postgres_db_name", "mofadvisor")
	viper.SetDefault("postgres_ssl_mode", "disable")

	// Tracing defaults
	viper.SetDefault("tracing.endpoint", "localhost:4318")
	viper.SetDefault("tracing.environment", "dev")
	viper.SetDefault("tracing.service_name", "mofadvisor")
}

// bindEnvVariables binds environment overrides explicitly.
func bindEnvVariables() {
	// Hardcoded keys cannot fail to bind; a panic here is a bug.
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("provider", "MOFADVISOR_PROVIDER")
	mustBind("model_name", "MOFADVISOR_MODEL_NAME")
	mustBind("embedder_model", "MOFADVISOR_EMBEDDER_MODEL")
	mustBind("ollama_host", "MOFADVISOR_OLLAMA_HOST")
	mustBind("papers_dir", "MOFADVISOR_PAPERS_DIR")
	mustBind("server_addr", "MOFADVISOR_SERVER_ADDR")

	// NOTE: GEMINI_API_KEY and OPENAI_API_KEY are read directly by the
	// model plugins, not via Viper. Validation checks their presence
	// based on the selected provider.
}

// ProcessedLogPath resolves the completion log location.
func (c *Config) ProcessedLogPath() string {
	if c.ProcessedLog != "" {
		return c.ProcessedLog
	}
	return filepath.Join(c.PapersDir, "processed_files.log")
}

// maskedValue is the placeholder for masked sensitive data.
const maskedValue = "████████"

// maskSecret masks a secret for safe logging. Short secrets are fully
// masked; longer ones keep the first and last two characters for debug
// utility.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with explicit sensitive field
// masking.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// FullModelName returns the provider-qualified model name, e.g.
// "googleai/gemini-2.5-flash". The provider must be one of the known
// identifiers; Validate enforces that before this is called.
func (c *Config) FullModelName() string {
	prefix, ok := providerPrefixes[c.Provider]
	if !ok {
		// Validate rejects unknown providers, so this is unreachable in
		// a loaded config. Return the bare name rather than guessing.
		return c.ModelName
	}
	return prefix + "/" + c.ModelName
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
