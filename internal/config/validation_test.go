package config

import (
	"errors"
	"testing"
)

func validConfig() *Config {
	return &Config{
		APIKey:           "test-key",
		Model:            DefaultModel,
		EmbedModel:       DefaultEmbedModel,
		EmbedDim:         DefaultEmbedDim,
		ProviderQPS:      2,
		ChunkSize:        1000,
		ChunkOverlap:     200,
		TopK:             5,
		ContextBudget:    8000,
		ResearchWorkers:  1,
		PostgresHost:     "localhost",
		PostgresPort:     5432,
		PostgresUser:     "sage",
		PostgresPassword: "a-strong-password",
		PostgresDBName:   "sage",
		PostgresSSLMode:  "disable",
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"valid", func(*Config) {}, nil},
		{"missing api key", func(c *Config) { c.APIKey = "" }, ErrMissingAPIKey},
		{"empty model", func(c *Config) { c.Model = "" }, ErrInvalidModel},
		{"empty embed model", func(c *Config) { c.EmbedModel = "" }, ErrInvalidEmbedder},
		{"zero embed dim", func(c *Config) { c.EmbedDim = 0 }, ErrInvalidEmbedder},
		{"embed dim too large", func(c *Config) { c.EmbedDim = 4096 }, ErrInvalidEmbedder},
		{"zero chunk size", func(c *Config) { c.ChunkSize = 0 }, ErrInvalidChunking},
		{"overlap equals size", func(c *Config) { c.ChunkOverlap = c.ChunkSize }, ErrInvalidChunking},
		{"zero overlap", func(c *Config) { c.ChunkOverlap = 0 }, ErrInvalidChunking},
		{"zero top_k", func(c *Config) { c.TopK = 0 }, ErrInvalidRetrieval},
		{"zero context budget", func(c *Config) { c.ContextBudget = 0 }, ErrInvalidRetrieval},
		{"zero workers", func(c *Config) { c.ResearchWorkers = 0 }, ErrInvalidWorkers},
		{"empty postgres host", func(c *Config) { c.PostgresHost = "" }, ErrInvalidPostgresHost},
		{"port out of range", func(c *Config) { c.PostgresPort = 70000 }, ErrInvalidPostgresPort},
		{"empty db name", func(c *Config) { c.PostgresDBName = "" }, ErrInvalidPostgresDBName},
		{"empty password", func(c *Config) { c.PostgresPassword = "" }, ErrInvalidPostgresPassword},
		{"bad ssl mode", func(c *Config) { c.PostgresSSLMode = "maybe" }, ErrInvalidPostgresSSLMode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateNil(t *testing.T) {
	var cfg *Config
	if !errors.Is(cfg.Validate(), ErrConfigNil) {
		t.Fatal("nil config should fail with ErrConfigNil")
	}
}
