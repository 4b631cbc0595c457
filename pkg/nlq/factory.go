package nlq

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/datalens-ai/datalens-engine/pkg/config"
)

// NewGenerator creates a query generator from configuration, or nil when no
// collaborator is configured. Callers treat a nil generator as "generation
// unavailable" rather than an error.
func NewGenerator(cfg config.GeneratorConfig, logger *zap.Logger) (QueryGenerator, error) {
	if !cfg.IsConfigured() {
		return nil, nil
	}

	switch cfg.Provider {
	case "openai":
		return NewOpenAIGenerator(cfg.APIKey, cfg.BaseURL, cfg.Model, logger)
	case "anthropic":
		return NewAnthropicGenerator(cfg.APIKey, cfg.Model, logger)
	default:
		return nil, fmt.Errorf("unknown generator provider: %q", cfg.Provider)
	}
}
