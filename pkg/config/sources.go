package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SavedSource is one named connection descriptor from the sources catalog.
// Settings holds the kind-specific config passed verbatim to the adapter
// factory. Secrets do not belong in the catalog; remote sources should read
// credentials from the environment instead.
type SavedSource struct {
	Name     string         `yaml:"name"`
	Kind     string         `yaml:"kind"`
	Settings map[string]any `yaml:"settings"`
}

// SourcesCatalog is the top-level shape of the sources file.
type SourcesCatalog struct {
	Sources []SavedSource `yaml:"sources"`
}

// LoadSources reads the optional sources catalog. An empty path yields an
// empty catalog, not an error.
func LoadSources(path string) (*SourcesCatalog, error) {
	if path == "" {
		return &SourcesCatalog{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources catalog: %w", err)
	}

	var catalog SourcesCatalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("parse sources catalog %s: %w", path, err)
	}

	seen := make(map[string]bool, len(catalog.Sources))
	for i, src := range catalog.Sources {
		if src.Name == "" {
			return nil, fmt.Errorf("sources catalog %s: entry %d has no name", path, i)
		}
		if src.Kind == "" {
			return nil, fmt.Errorf("sources catalog %s: source %q has no kind", path, src.Name)
		}
		if seen[src.Name] {
			return nil, fmt.Errorf("sources catalog %s: duplicate source name %q", path, src.Name)
		}
		seen[src.Name] = true
	}

	return &catalog, nil
}
