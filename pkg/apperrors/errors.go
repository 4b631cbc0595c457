// Package apperrors defines the engine's failure taxonomy. Every adapter-level
// fault is converted to one of these kinds at its originating boundary; raw
// driver errors never cross a component boundary.
package apperrors

import (
	"errors"
	"fmt"
)

var (
	// ErrConnection indicates a source is unreachable or unparsable.
	ErrConnection = errors.New("connection error")

	// ErrUnsafeQuery indicates the query text failed the mutation-keyword filter.
	ErrUnsafeQuery = errors.New("unsafe query rejected")

	// ErrUnsupportedQuery indicates a query shape the adapter cannot translate.
	// Only the document-store adapter produces this.
	ErrUnsupportedQuery = errors.New("unsupported query shape")

	// ErrSourceClosed indicates an operation on a closed datasource.
	ErrSourceClosed = errors.New("datasource is closed")
)

// ExecutionError wraps an adapter-level failure (malformed query, missing
// identifier, engine fault) with the adapter's diagnostic.
type ExecutionError struct {
	SourceKind string
	Diagnostic string
	Err        error
}

func (e *ExecutionError) Error() string {
	if e.Diagnostic != "" {
		return fmt.Sprintf("execution failed (%s): %s", e.SourceKind, e.Diagnostic)
	}
	return fmt.Sprintf("execution failed (%s): %v", e.SourceKind, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// NewExecutionError converts an adapter fault into the taxonomy.
func NewExecutionError(sourceKind string, err error) *ExecutionError {
	return &ExecutionError{
		SourceKind: sourceKind,
		Diagnostic: err.Error(),
		Err:        err,
	}
}

// ConnectionError wraps an unreachable/unparsable source fault so callers can
// match on ErrConnection while keeping the underlying diagnostic.
func ConnectionError(sourceKind string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrConnection, sourceKind, err)
}

// UnsafeQueryError reports which forbidden keyword triggered rejection.
func UnsafeQueryError(keyword string) error {
	return fmt.Errorf("%w: contains forbidden keyword %q", ErrUnsafeQuery, keyword)
}

// PartialImport is a qualified success from script replay: at least one table
// was created but one or more statements were skipped or failed. It is carried
// as a diagnostic alongside the datasource, not raised as a failure.
type PartialImport struct {
	TablesCreated    int `json:"tables_created"`
	StatementsFailed int `json:"statements_failed"`
}

func (p *PartialImport) String() string {
	return fmt.Sprintf("partial import: %d tables created, %d statements failed",
		p.TablesCreated, p.StatementsFailed)
}
