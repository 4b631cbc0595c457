package nlq

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/datalens-ai/datalens-engine/pkg/logging"
	"github.com/datalens-ai/datalens-engine/pkg/retry"
)

// OpenAIGenerator talks to an OpenAI-compatible chat completion endpoint.
// Any server that speaks the chat completions API works here, including
// local vLLM and Ollama deployments, by setting a custom base URL.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewOpenAIGenerator creates a generator backed by the chat completions API.
// baseURL may be empty to use the public OpenAI endpoint.
func NewOpenAIGenerator(apiKey, baseURL, model string, logger *zap.Logger) (*OpenAIGenerator, error) {
	if model == "" {
		return nil, fmt.Errorf("model is required")
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientConfig.BaseURL = strings.TrimSuffix(baseURL, "/")
	}

	return &OpenAIGenerator{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
		logger: logger.Named("nlq"),
	}, nil
}

func (g *OpenAIGenerator) GenerateQuery(ctx context.Context, schemaContext, question string) (string, error) {
	g.logger.Debug("generation request",
		zap.String("model", g.model),
		zap.Int("context_len", len(schemaContext)))

	resp, err := retry.DoWithResult(ctx, nil, func() (openai.ChatCompletionResponse, error) {
		return g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: g.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: buildUserPrompt(schemaContext, question)},
			},
			Temperature: 0,
		})
	})
	if err != nil {
		g.logger.Error("generation request failed", zap.Error(err))
		return "", fmt.Errorf("query generation failed: %s", logging.SanitizeError(err))
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("query generation returned no choices")
	}

	return ExtractQueryText(resp.Choices[0].Message.Content), nil
}

func (g *OpenAIGenerator) Model() string {
	return g.model
}

var _ QueryGenerator = (*OpenAIGenerator)(nil)
