// Package nlq holds thin clients for the natural-language-to-query
// generation collaborator. The engine never generates query text itself; it
// renders the schema as textual context, sends it with the question through
// the collaborator's contract, and returns the query text it gets back.
// Generated text still goes through the full validation pipeline before
// execution.
package nlq

import "context"

// QueryGenerator is the collaborator contract: schema context plus a
// question in, query text out.
// Use this interface for dependency injection to enable mocking in tests.
type QueryGenerator interface {
	// GenerateQuery returns query text for a natural-language question.
	GenerateQuery(ctx context.Context, schemaContext, question string) (string, error)

	// Model returns the configured model name.
	Model() string
}
