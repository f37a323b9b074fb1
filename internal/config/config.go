// Package config provides application configuration with multi-source
// priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (DATABASE_URL, GEMINI_API_KEY, SAGE_* overrides)
//  2. Config file (~/.sage/config.yaml or ./config.yaml)
//  3. Default values
//
// Sensitive values (API key, database password) are masked in MarshalJSON
// so a dumped config never leaks credentials into logs.
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

// Sentinel errors returned by Validate, checkable with errors.Is().
var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates the provider API key is not set.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidModel indicates the completion model name is invalid.
	ErrInvalidModel = errors.New("invalid model name")

	// ErrInvalidEmbedder indicates the embedding model configuration is invalid.
	ErrInvalidEmbedder = errors.New("invalid embedder configuration")

	// ErrInvalidChunking indicates the chunk size/overlap pair is invalid.
	ErrInvalidChunking = errors.New("invalid chunking configuration")

	// ErrInvalidRetrieval indicates top_k or context_budget is out of range.
	ErrInvalidRetrieval = errors.New("invalid retrieval configuration")

	// ErrInvalidWorkers indicates research_workers is out of range.
	ErrInvalidWorkers = errors.New("invalid research workers")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresPassword indicates the PostgreSQL password is invalid.
	ErrInvalidPostgresPassword = errors.New("invalid PostgreSQL password")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")
)

const (
	// DefaultModel is the default completion model.
	DefaultModel = "gemini-2.5-flash"

	// DefaultEmbedModel is the default embedding model.
	// gemini-embedding-001 outputs 3072 dimensions by default and supports
	// truncation via OutputDimensionality; the pgvector schema stores 768.
	DefaultEmbedModel = "gemini-embedding-001"

	// DefaultEmbedDim must match the vector column width in the chunks
	// migration.
	DefaultEmbedDim = 768
)

// Config stores application configuration. Sensitive fields are masked in
// MarshalJSON.
type Config struct {
	// Provider configuration. APIKey comes from GEMINI_API_KEY only, never
	// from the config file.
	APIKey      string  `mapstructure:"-" json:"api_key"`
	Model       string  `mapstructure:"model" json:"model"`
	EmbedModel  string  `mapstructure:"embed_model" json:"embed_model"`
	EmbedDim    int     `mapstructure:"embed_dim" json:"embed_dim"`
	ProviderQPS float64 `mapstructure:"provider_qps" json:"provider_qps"`

	// Ingestion configuration.
	ChunkSize    int `mapstructure:"chunk_size" json:"chunk_size"`
	ChunkOverlap int `mapstructure:"chunk_overlap" json:"chunk_overlap"`

	// Retrieval configuration.
	TopK          int `mapstructure:"top_k" json:"top_k"`
	ContextBudget int `mapstructure:"context_budget" json:"context_budget"`

	// Agent configuration.
	ResearchWorkers int `mapstructure:"research_workers" json:"research_workers"`

	// Storage configuration (see storage.go).
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Tracing configuration (see observability.go).
	Tracing TracingConfig `mapstructure:"tracing" json:"tracing"`
}

// Load loads and fully validates configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}
	return cfg, nil
}

// LoadStorage loads configuration but validates only the storage settings.
// Used by commands that touch the database without calling the provider,
// so running migrations does not require an API key.
func LoadStorage() (*Config, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateStorage(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}
	return cfg, nil
}

func load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".sage")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// No config file is fine; defaults and env cover everything.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	cfg.APIKey = os.Getenv("GEMINI_API_KEY")

	// DATABASE_URL overrides the individual postgres_* settings.
	if err := cfg.parseDatabaseURL(os.Getenv("DATABASE_URL")); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("model", DefaultModel)
	v.SetDefault("embed_model", DefaultEmbedModel)
	v.SetDefault("embed_dim", DefaultEmbedDim)
	v.SetDefault("provider_qps", 2.0)

	v.SetDefault("chunk_size", 1000)
	v.SetDefault("chunk_overlap", 200)

	v.SetDefault("top_k", 5)
	v.SetDefault("context_budget", 8000)

	v.SetDefault("research_workers", 1)

	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "sage")
	v.SetDefault("postgres_password", "sage_dev_password")
	v.SetDefault("postgres_db_name", "sage")
	v.SetDefault("postgres_ssl_mode", "disable")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4318")
	v.SetDefault("tracing.service_name", "sage")
	v.SetDefault("tracing.environment", "dev")
}

// bindEnvVariables binds environment overrides explicitly. GEMINI_API_KEY
// and DATABASE_URL are read directly in Load, not through viper.
func bindEnvVariables(v *viper.Viper) {
	// Hardcoded keys cannot fail to bind; a panic here is a bug.
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("model", "SAGE_MODEL")
	mustBind("embed_model", "SAGE_EMBED_MODEL")
	mustBind("top_k", "SAGE_TOP_K")
	mustBind("research_workers", "SAGE_RESEARCH_WORKERS")
	mustBind("tracing.enabled", "SAGE_TRACING_ENABLED")
	mustBind("tracing.endpoint", "SAGE_TRACING_ENDPOINT")
}

// maskedValue is the placeholder for masked sensitive data. Full-width
// blocks avoid substring matches against real secret characters.
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
// masking. When adding new sensitive fields, update this method.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.APIKey = maskSecret(a.APIKey)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}
