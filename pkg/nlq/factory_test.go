package nlq

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/datalens-ai/datalens-engine/pkg/config"
)

func TestNewGenerator_Unconfigured(t *testing.T) {
	gen, err := NewGenerator(config.GeneratorConfig{}, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, gen)
}

func TestNewGenerator_OpenAI(t *testing.T) {
	gen, err := NewGenerator(config.GeneratorConfig{
		Provider: "openai",
		APIKey:   "sk-test",
		Model:    "gpt-4o-mini",
	}, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, gen)
	assert.Equal(t, "gpt-4o-mini", gen.Model())
}

func TestNewGenerator_Anthropic(t *testing.T) {
	gen, err := NewGenerator(config.GeneratorConfig{
		Provider: "anthropic",
		APIKey:   "key",
		Model:    "claude-sonnet-4-20250514",
	}, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, gen)
	assert.Equal(t, "claude-sonnet-4-20250514", gen.Model())
}

func TestNewGenerator_UnknownProvider(t *testing.T) {
	_, err := NewGenerator(config.GeneratorConfig{
		Provider: "oracle-bones",
		APIKey:   "key",
		Model:    "m",
	}, zap.NewNop())
	assert.Error(t, err)
}

func TestMockGenerator(t *testing.T) {
	mock := NewMockGenerator()

	text, err := mock.GenerateQuery(context.Background(), "schema", "question")
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", text)
	assert.Equal(t, "mock-model", mock.Model())
	assert.Equal(t, 1, mock.GenerateQueryCalls)

	mock.GenerateQueryFunc = func(ctx context.Context, schemaContext, question string) (string, error) {
		return "", errors.New("boom")
	}
	_, err = mock.GenerateQuery(context.Background(), "schema", "question")
	assert.Error(t, err)
	assert.Equal(t, 2, mock.GenerateQueryCalls)
}
