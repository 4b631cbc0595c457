package postgres

import (
	"fmt"

	"github.com/datalens-ai/datalens-engine/pkg/adapters/datasource"
)

const (
	defaultPort    = 5432
	defaultSSLMode = "require"
)

// Config holds the connection settings for a PostgreSQL source.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string // "disable", "require", "verify-ca", "verify-full"
}

// FromMap builds a Config from a caller-supplied settings map. Host, user,
// and database are required; port and ssl_mode default. The port accepts
// both int and float64 since serving-surface maps are JSON-decoded.
func FromMap(config map[string]any) (*Config, error) {
	cfg := &Config{
		Port:    datasource.IntSetting(config, "port", defaultPort),
		SSLMode: defaultSSLMode,
	}

	var ok bool
	if cfg.Host, ok = config["host"].(string); !ok || cfg.Host == "" {
		return nil, fmt.Errorf("host is required")
	}
	if cfg.User, ok = config["user"].(string); !ok || cfg.User == "" {
		return nil, fmt.Errorf("user is required")
	}
	if cfg.Database, ok = config["database"].(string); !ok || cfg.Database == "" {
		return nil, fmt.Errorf("database is required")
	}

	cfg.Password, _ = config["password"].(string)
	if sslMode, ok := config["ssl_mode"].(string); ok {
		cfg.SSLMode = sslMode
	}

	return cfg, nil
}
