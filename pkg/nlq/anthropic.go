package nlq

import (
	"context"
	"fmt"

	anthropic "github.com/liushuangls/go-anthropic/v2"
	"go.uber.org/zap"

	"github.com/datalens-ai/datalens-engine/pkg/logging"
	"github.com/datalens-ai/datalens-engine/pkg/retry"
)

const anthropicMaxTokens = 1024

// AnthropicGenerator talks to the Anthropic Messages API.
type AnthropicGenerator struct {
	client *anthropic.Client
	model  string
	logger *zap.Logger
}

func NewAnthropicGenerator(apiKey, model string, logger *zap.Logger) (*AnthropicGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if model == "" {
		return nil, fmt.Errorf("model is required")
	}

	return &AnthropicGenerator{
		client: anthropic.NewClient(apiKey),
		model:  model,
		logger: logger.Named("nlq"),
	}, nil
}

func (g *AnthropicGenerator) GenerateQuery(ctx context.Context, schemaContext, question string) (string, error) {
	g.logger.Debug("generation request",
		zap.String("model", g.model),
		zap.Int("context_len", len(schemaContext)))

	resp, err := retry.DoWithResult(ctx, nil, func() (anthropic.MessagesResponse, error) {
		return g.client.CreateMessages(ctx, anthropic.MessagesRequest{
			Model:     anthropic.Model(g.model),
			System:    systemPrompt,
			MaxTokens: anthropicMaxTokens,
			Messages: []anthropic.Message{
				anthropic.NewUserTextMessage(buildUserPrompt(schemaContext, question)),
			},
		})
	})
	if err != nil {
		g.logger.Error("generation request failed", zap.Error(err))
		return "", fmt.Errorf("query generation failed: %s", logging.SanitizeError(err))
	}

	text := resp.GetFirstContentText()
	if text == "" {
		return "", fmt.Errorf("query generation returned no text content")
	}

	return ExtractQueryText(text), nil
}

func (g *AnthropicGenerator) Model() string {
	return g.model
}

var _ QueryGenerator = (*AnthropicGenerator)(nil)
