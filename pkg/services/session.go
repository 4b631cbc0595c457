// Package services ties adapters, schema introspection, identifier mapping,
// and the query pipeline into the engine's uniform datasource contract.
package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/datalens-ai/datalens-engine/pkg/adapters/datasource"
	"github.com/datalens-ai/datalens-engine/pkg/apperrors"
	"github.com/datalens-ai/datalens-engine/pkg/logging"
	"github.com/datalens-ai/datalens-engine/pkg/schema"
	enginesql "github.com/datalens-ai/datalens-engine/pkg/sql"
)

// importReporter is implemented by adapters that can finish ingestion as a
// qualified success (script replay with skipped statements).
type importReporter interface {
	ImportReport() *apperrors.PartialImport
}

// Session is one connected or ingested DataSource: the adapter handle plus
// the cached schema view and per-table identifier mappings. A session owns
// exactly one live handle; operations are serialized internally, and
// independent sessions can be driven concurrently.
type Session struct {
	id      uuid.UUID
	kind    string
	adapter datasource.Adapter
	logger  *zap.Logger

	maxRows           int
	defaultSampleRows int

	mu       sync.Mutex
	desc     *schema.Descriptor
	mappings []tableMapping // descriptor order

	closeOnce sync.Once
	closeErr  error
	closed    bool
}

type tableMapping struct {
	table   string
	mapping *enginesql.Mapping
}

// SessionOptions bound per-session query and introspection behavior.
type SessionOptions struct {
	MaxRows           int // rows per query; 0 means datasource.MaxQueryLimit
	DefaultSampleRows int // rows for Sample when the caller passes none; 0 means 5

	// Introspection bounds, injected into adapter configs that don't set
	// their own; 0 leaves the adapter's package default in place.
	ColumnSampleValues int // literal values kept per column
	DocumentSampleSize int // documents sampled per collection
}

// NewSession wraps an opened adapter.
func NewSession(adapter datasource.Adapter, opts SessionOptions, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	maxRows := opts.MaxRows
	if maxRows <= 0 {
		maxRows = datasource.MaxQueryLimit
	}
	sampleRows := opts.DefaultSampleRows
	if sampleRows <= 0 {
		sampleRows = 5
	}
	return &Session{
		id:                uuid.New(),
		kind:              adapter.Kind(),
		adapter:           adapter,
		logger:            logger,
		maxRows:           maxRows,
		defaultSampleRows: sampleRows,
	}
}

// ID returns the session identity.
func (s *Session) ID() uuid.UUID { return s.id }

// Kind returns the source kind.
func (s *Session) Kind() string { return s.kind }

// ImportReport returns the script adapter's qualified-success diagnostic,
// nil for other kinds or clean imports.
func (s *Session) ImportReport() *apperrors.PartialImport {
	if reporter, ok := s.adapter.(importReporter); ok {
		return reporter.ImportReport()
	}
	return nil
}

// TestConnection verifies the source is reachable.
func (s *Session) TestConnection(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return apperrors.ErrSourceClosed
	}
	return s.adapter.TestConnection(ctx)
}

// Schema returns the uniform schema view, introspecting on first use and
// cached for the source's lifetime (sources are immutable once ingested).
func (s *Session) Schema(ctx context.Context) (*schema.Descriptor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.schemaLocked(ctx)
}

func (s *Session) schemaLocked(ctx context.Context) (*schema.Descriptor, error) {
	if s.closed {
		return nil, apperrors.ErrSourceClosed
	}
	if s.desc != nil {
		return s.desc, nil
	}

	desc, err := s.adapter.IntrospectSchema(ctx)
	if err != nil {
		return nil, err
	}

	renames := datasource.KindRenamesColumns(s.kind)
	mappings := make([]tableMapping, 0, len(desc.Tables))
	for _, table := range desc.Tables {
		names := make([]string, len(table.Columns))
		for i, col := range table.Columns {
			names[i] = col.Name
		}
		var mapping *enginesql.Mapping
		if renames {
			mapping = enginesql.NewMapping(names)
		} else {
			mapping = enginesql.IdentityMapping(names)
		}
		mappings = append(mappings, tableMapping{table: table.Name, mapping: mapping})
	}

	s.desc = desc
	s.mappings = mappings
	return desc, nil
}

// TableCounts summarizes one table for DataInfo.
type TableCounts struct {
	Columns int   `json:"columns"`
	Rows    int64 `json:"rows"`
}

// DataInfo is the per-source summary exposed to collaborators.
type DataInfo struct {
	SourceKind    string                 `json:"source_kind"`
	TotalRowCount int64                  `json:"total_row_count"`
	Tables        map[string]TableCounts `json:"tables"`
}

// DataInfo summarizes the source: kind, total rows, per-table shape.
func (s *Session) DataInfo(ctx context.Context) (*DataInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	desc, err := s.schemaLocked(ctx)
	if err != nil {
		return nil, err
	}

	info := &DataInfo{
		SourceKind: s.kind,
		Tables:     make(map[string]TableCounts, len(desc.Tables)),
	}
	for _, table := range desc.Tables {
		info.Tables[table.Name] = TableCounts{
			Columns: len(table.Columns),
			Rows:    table.RowCount,
		}
		info.TotalRowCount += table.RowCount
	}
	return info, nil
}

// ExecuteQuery runs the full pipeline: single-statement normalization, the
// read-only safety filter, best-effort rewriting against runtime
// identifiers, adapter dispatch, and inverse relabeling of result columns.
// It returns a complete result or a tagged failure, never a partial result;
// nothing reaches an adapter once validation fails.
func (s *Session) ExecuteQuery(ctx context.Context, query string) (*datasource.QueryResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, apperrors.ErrSourceClosed
	}

	validation := enginesql.ValidateAndNormalize(query)
	if validation.Error != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrUnsafeQuery, validation.Error)
	}
	normalized := validation.NormalizedSQL
	if normalized == "" {
		return nil, apperrors.NewExecutionError(s.kind, fmt.Errorf("empty query"))
	}

	if err := enginesql.ValidateReadOnly(normalized); err != nil {
		s.logger.Info("query rejected by safety filter",
			zap.String("kind", s.kind),
			zap.String("query", logging.SanitizeQuery(query)))
		return nil, err
	}

	if _, err := s.schemaLocked(ctx); err != nil {
		return nil, err
	}

	rewritten := s.rewriteLocked(normalized)
	if rewritten != normalized {
		s.logger.Debug("query rewritten against runtime identifiers",
			zap.String("original", logging.SanitizeQuery(normalized)),
			zap.String("rewritten", logging.SanitizeQuery(rewritten)))
	}

	result, err := s.adapter.ExecuteQuery(ctx, rewritten, s.maxRows)
	if err != nil {
		s.logger.Warn("query execution failed",
			zap.String("kind", s.kind),
			zap.String("error", logging.SanitizeError(err)))
		return nil, err
	}

	// The rewriter targets the primary table, so its mapping relabels.
	s.relabelLocked(result, "")
	return result, nil
}

// rewriteLocked repairs the query against the primary (first) table's
// identifier mapping; placeholder table tokens resolve to that table.
func (s *Session) rewriteLocked(query string) string {
	if len(s.mappings) == 0 {
		return query
	}
	primary := s.mappings[0]
	return enginesql.NewRewriter(primary.table, primary.mapping).Rewrite(query)
}

// relabelLocked maps sanitized result columns back to original names through
// the mapping of the one table the operation targeted. Chaining every
// table's inverse would mislabel columns whose names collide across tables.
func (s *Session) relabelLocked(result *datasource.QueryResult, table string) {
	mapping := s.mappingForLocked(table)
	if mapping == nil {
		return
	}
	names := mapping.RelabelColumns(result.ColumnNames())
	for i := range result.Columns {
		result.Columns[i].Name = names[i]
	}
}

// mappingForLocked finds the named table's mapping; the empty name means the
// primary (first) table. Unknown names get no mapping.
func (s *Session) mappingForLocked(table string) *enginesql.Mapping {
	if len(s.mappings) == 0 {
		return nil
	}
	if table == "" {
		return s.mappings[0].mapping
	}
	for _, tm := range s.mappings {
		if tm.table == table {
			return tm.mapping
		}
	}
	return nil
}

// Sample returns the first rows of a table (the source's first table when
// the name is empty), relabeled to original column names.
func (s *Session) Sample(ctx context.Context, table string, limit int) (*datasource.QueryResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, apperrors.ErrSourceClosed
	}

	if err := enginesql.CheckIdentifierArgument(table); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.defaultSampleRows
	}

	if _, err := s.schemaLocked(ctx); err != nil {
		return nil, err
	}

	result, err := s.adapter.SampleRows(ctx, table, limit)
	if err != nil {
		return nil, err
	}

	s.relabelLocked(result, table)
	return result, nil
}

// Close tears the session down exactly once: the adapter handle is released
// and any temp backing storage removed. Safe to call repeatedly.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		s.closeErr = s.adapter.Close()
	})
	return s.closeErr
}
