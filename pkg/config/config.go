// Package config loads engine configuration from YAML plus environment
// overrides. Secrets (database passwords, collaborator API keys) must only
// come from environment variables.
package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for datalens-engine.
// Environment variables always override YAML values for fields that support both.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"3470"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Query execution limits
	Query QueryConfig `yaml:"query"`

	// Schema introspection settings
	Introspection IntrospectionConfig `yaml:"introspection"`

	// Generation collaborator (NL -> query text). The engine never generates
	// query text itself; it calls this service through its own contract.
	Generator GeneratorConfig `yaml:"generator"`

	// SourcesFile is an optional YAML catalog of named connection descriptors
	// loaded at startup.
	SourcesFile string `yaml:"sources_file" env:"SOURCES_FILE" env-default:""`
}

// QueryConfig bounds query execution.
type QueryConfig struct {
	// MaxRows is the hard cap on rows returned by a single query.
	MaxRows int `yaml:"max_rows" env:"QUERY_MAX_ROWS" env-default:"1000"`
	// DefaultSampleRows is the row count for Sample when the caller passes none.
	DefaultSampleRows int `yaml:"default_sample_rows" env:"QUERY_DEFAULT_SAMPLE_ROWS" env-default:"5"`
}

// IntrospectionConfig bounds schema discovery work.
type IntrospectionConfig struct {
	// DocumentSampleSize is how many documents are sampled per collection when
	// introspecting a schema-on-read document store.
	DocumentSampleSize int `yaml:"document_sample_size" env:"INTROSPECTION_DOCUMENT_SAMPLE_SIZE" env-default:"10"`
	// ColumnSampleValues is how many literal values are kept per column.
	ColumnSampleValues int `yaml:"column_sample_values" env:"INTROSPECTION_COLUMN_SAMPLE_VALUES" env-default:"3"`
}

// GeneratorConfig points at the query-generation collaborator.
type GeneratorConfig struct {
	// Provider selects the client: "openai" (any OpenAI-compatible endpoint)
	// or "anthropic". Empty disables the generate_query surface.
	Provider string `yaml:"provider" env:"GENERATOR_PROVIDER" env-default:""`
	BaseURL  string `yaml:"base_url" env:"GENERATOR_BASE_URL" env-default:""`
	Model    string `yaml:"model" env:"GENERATOR_MODEL" env-default:""`
	APIKey   string `yaml:"-" env:"GENERATOR_API_KEY"` // Secret - not in YAML
}

// IsConfigured returns true if a generation collaborator is available.
func (g *GeneratorConfig) IsConfigured() bool {
	return g.Provider != "" && g.Model != ""
}

// Load reads config.yaml (when present) with environment overrides.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Query.MaxRows <= 0 {
		return fmt.Errorf("query.max_rows must be positive, got %d", c.Query.MaxRows)
	}
	if c.Introspection.DocumentSampleSize <= 0 {
		return fmt.Errorf("introspection.document_sample_size must be positive, got %d", c.Introspection.DocumentSampleSize)
	}
	return nil
}
