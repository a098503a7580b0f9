package config

import (
	"errors"
	"testing"
)

// validConfig returns a config that passes validation with the gemini key set.
func validConfig() *Config {
	return &Config{
		Provider:         ProviderGemini,
		ModelName:        "gemini-2.5-flash",
		EmbedderModel:    DefaultEmbedderModel,
		PacingMS:         DefaultPacingMS,
		Workers:          DefaultWorkers,
		PapersDir:        "papers",
		PostgresHost:     "localhost",
		PostgresPort:     5432,
		PostgresUser:     "mofadvisor",
		PostgresPassword: "long_enough_password",
		PostgresDBName:   "mofadvisor",
		PostgresSSLMode:  "disable",
	}
}

func TestValidate(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")

	if err := validConfig().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func TestValidate_SentinelErrors(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")

	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"unknown provider", func(c *Config) { c.Provider = "deepseek" }, ErrInvalidProvider},
		{"empty model name", func(c *Config) { c.ModelName = "" }, ErrInvalidModelName},
		{"empty embedder model", func(c *Config) { c.EmbedderModel = "" }, ErrInvalidEmbedderModel},
		{"zero workers", func(c *Config) { c.Workers = 0 }, ErrInvalidWorkers},
		{"negative pacing", func(c *Config) { c.PacingMS = -1 }, ErrInvalidPacing},
		{"empty papers dir", func(c *Config) { c.PapersDir = "" }, ErrInvalidPapersDir},
		{"empty postgres host", func(c *Config) { c.PostgresHost = "" }, ErrInvalidPostgresHost},
		{"port out of range", func(c *Config) { c.PostgresPort = 70000 }, ErrInvalidPostgresPort},
		{"empty db name", func(c *Config) { c.PostgresDBName = "" }, ErrInvalidPostgresDBName},
		{"empty password", func(c *Config) { c.PostgresPassword = "" }, ErrInvalidPostgresPassword},
		{"short password", func(c *Config) { c.PostgresPassword = "short" }, ErrInvalidPostgresPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want sentinel %v", err, tt.want)
			}
		})
	}
}

func TestValidate_NilConfig(t *testing.T) {
	var cfg *Config
	if err := cfg.Validate(); !errors.Is(err, ErrConfigNil) {
		t.Errorf("got %v, want ErrConfigNil", err)
	}
}

func TestValidate_MissingGeminiKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	err := validConfig().Validate()
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("got %v, want ErrMissingAPIKey", err)
	}
}

func TestValidate_OpenAIKeyRequired(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	cfg := validConfig()
	cfg.Provider = ProviderOpenAI
	if err := cfg.Validate(); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("got %v, want ErrMissingAPIKey", err)
	}

	t.Setenv("OPENAI_API_KEY", "test-key")
	if err := cfg.Validate(); err != nil {
		t.Errorf("openai config with key rejected: %v", err)
	}
}

func TestValidate_OllamaHostRequired(t *testing.T) {
	cfg := validConfig()
	cfg.Provider = ProviderOllama
	cfg.OllamaHost = ""
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidOllamaHost) {
		t.Errorf("got %v, want ErrInvalidOllamaHost", err)
	}

	cfg.OllamaHost = "http://localhost:11434"
	if err := cfg.Validate(); err != nil {
		t.Errorf("ollama config rejected: %v", err)
	}
}
