package mongodb

import "fmt"

// Config contains MongoDB-specific connection options.
type Config struct {
	URI      string
	Database string
}

// FromMap creates a Config from a generic config map.
func FromMap(config map[string]any) (*Config, error) {
	cfg := &Config{}

	if uri, ok := config["uri"].(string); ok {
		cfg.URI = uri
	} else {
		return nil, fmt.Errorf("uri is required")
	}

	if database, ok := config["database"].(string); ok {
		cfg.Database = database
	} else {
		return nil, fmt.Errorf("database is required")
	}

	return cfg, nil
}
