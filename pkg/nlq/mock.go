package nlq

import "context"

// MockGenerator is a configurable mock for testing query generation.
// Set the function field to control behavior in tests.
type MockGenerator struct {
	// GenerateQueryFunc is called when GenerateQuery is invoked.
	// If nil, returns "SELECT 1" and nil error.
	GenerateQueryFunc func(ctx context.Context, schemaContext, question string) (string, error)

	// ModelName is returned by Model. Defaults to "mock-model".
	ModelName string

	// Call tracking for verification
	GenerateQueryCalls int
}

// NewMockGenerator creates a new mock with sensible defaults.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{ModelName: "mock-model"}
}

// GenerateQuery implements QueryGenerator.
func (m *MockGenerator) GenerateQuery(ctx context.Context, schemaContext, question string) (string, error) {
	m.GenerateQueryCalls++
	if m.GenerateQueryFunc != nil {
		return m.GenerateQueryFunc(ctx, schemaContext, question)
	}
	return "SELECT 1", nil
}

// Model implements QueryGenerator.
func (m *MockGenerator) Model() string {
	if m.ModelName == "" {
		return "mock-model"
	}
	return m.ModelName
}

var _ QueryGenerator = (*MockGenerator)(nil)
