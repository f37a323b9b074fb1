package config

import (
	"fmt"
	"log/slog"
	"slices"
)

// validSSLModes are the sslmode values libpq and pgx accept.
var validSSLModes = []string{"disable", "allow", "prefer", "require", "verify-ca", "verify-full"}

// Validate validates configuration values. Returns sentinel errors
// checkable with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	if c.APIKey == "" {
		return fmt.Errorf("%w: GEMINI_API_KEY environment variable is required\n"+
			"Get your API key at: https://ai.google.dev/gemini-api/docs/api-key",
			ErrMissingAPIKey)
	}

	if c.Model == "" {
		return fmt.Errorf("%w: model cannot be empty", ErrInvalidModel)
	}
	if c.EmbedModel == "" {
		return fmt.Errorf("%w: embed_model cannot be empty", ErrInvalidEmbedder)
	}
	// gemini-embedding-001 tops out at 3072 dimensions.
	if c.EmbedDim < 1 || c.EmbedDim > 3072 {
		return fmt.Errorf("%w: embed_dim must be between 1 and 3072, got %d", ErrInvalidEmbedder, c.EmbedDim)
	}
	if c.EmbedDim != DefaultEmbedDim {
		slog.Warn("embed_dim differs from the migration schema",
			"embed_dim", c.EmbedDim,
			"schema_dim", DefaultEmbedDim,
			"hint", "the chunks table vector column width must match")
	}

	if c.ChunkSize < 1 {
		return fmt.Errorf("%w: chunk_size must be positive, got %d", ErrInvalidChunking, c.ChunkSize)
	}
	if c.ChunkOverlap < 1 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap must be between 1 and chunk_size-1, got %d",
			ErrInvalidChunking, c.ChunkOverlap)
	}

	if c.TopK < 1 || c.TopK > 50 {
		return fmt.Errorf("%w: top_k must be between 1 and 50, got %d", ErrInvalidRetrieval, c.TopK)
	}
	if c.ContextBudget < 1 {
		return fmt.Errorf("%w: context_budget must be positive, got %d", ErrInvalidRetrieval, c.ContextBudget)
	}

	if c.ResearchWorkers < 1 || c.ResearchWorkers > 16 {
		return fmt.Errorf("%w: research_workers must be between 1 and 16, got %d", ErrInvalidWorkers, c.ResearchWorkers)
	}

	return c.ValidateStorage()
}

// ValidateStorage validates only the PostgreSQL settings. Commands that
// never call the provider (migrations) use this instead of Validate.
func (c *Config) ValidateStorage() error {
	if c == nil {
		return ErrConfigNil
	}

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
	if c.PostgresPassword == "sage_dev_password" {
		slog.Warn("using the default development password for PostgreSQL",
			"hint", "change postgres_password for production deployments")
	}
	if !slices.Contains(validSSLModes, c.PostgresSSLMode) {
		return fmt.Errorf("%w: %q is not one of %v", ErrInvalidPostgresSSLMode, c.PostgresSSLMode, validSSLModes)
	}

	return nil
}
