// Package datasource defines the uniform capability set implemented by every
// source adapter, the adapter registry, and the shared result types.
package datasource

import (
	"context"

	"github.com/datalens-ai/datalens-engine/pkg/schema"
)

// Source kind identifiers. One adapter package per kind.
const (
	KindCSV       = "csv"
	KindJSON      = "json"
	KindSQLScript = "sqlscript"
	KindSQLite    = "sqlite"
	KindPostgres  = "postgres"
	KindSQLServer = "sqlserver"
	KindMongoDB   = "mongodb"
)

// MaxQueryLimit is the hard cap on rows returned by ExecuteQuery and
// SampleRows. Protects against unbounded queries.
const MaxQueryLimit = 1000

// Adapter is the uniform capability set over one origin. Implementations own
// exactly one live connection or handle, which is not safe for concurrent use
// by two callers; callers serialize access or open a second adapter.
// Each adapter must be closed when done; Close is idempotent.
type Adapter interface {
	// Kind returns the source kind identifier.
	Kind() string

	// TestConnection verifies the source is reachable and readable.
	TestConnection(ctx context.Context) error

	// IntrospectSchema builds the uniform schema view from the source's
	// native metadata. Sources are immutable once ingested, so repeated
	// introspection returns an identical descriptor.
	IntrospectSchema(ctx context.Context) (*schema.Descriptor, error)

	// ExecuteQuery runs already-validated, already-rewritten query text and
	// returns a bounded result. limit <= 0 or > MaxQueryLimit uses
	// MaxQueryLimit. The result's Truncated flag is set when rows beyond the
	// limit were discarded.
	ExecuteQuery(ctx context.Context, query string, limit int) (*QueryResult, error)

	// SampleRows returns the first rows of a table. An empty table name means
	// the source's first table.
	SampleRows(ctx context.Context, table string, limit int) (*QueryResult, error)

	// RowCount returns the number of rows in a table. For document stores
	// this is an estimate.
	RowCount(ctx context.Context, table string) (int64, error)

	// Close releases the connection or handle. Idempotent.
	Close() error
}

// ColumnInfo describes a result column with source-reported type information.
type ColumnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// QueryResult holds a complete query result: ordered named columns and
// ordered rows, each row an ordered sequence of values aligned with Columns.
type QueryResult struct {
	Columns   []ColumnInfo `json:"columns"`
	Rows      [][]any      `json:"rows"`
	RowCount  int          `json:"row_count"`
	Truncated bool         `json:"truncated"`
}

// ColumnNames returns the result column names in order.
func (r *QueryResult) ColumnNames() []string {
	names := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		names[i] = c.Name
	}
	return names
}

// EffectiveLimit clamps a caller-requested limit to (0, MaxQueryLimit].
func EffectiveLimit(limit int) int {
	if limit <= 0 || limit > MaxQueryLimit {
		return MaxQueryLimit
	}
	return limit
}
