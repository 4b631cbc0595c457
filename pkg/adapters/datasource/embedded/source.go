package embedded

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/datalens-ai/datalens-engine/pkg/adapters/datasource"
	"github.com/datalens-ai/datalens-engine/pkg/apperrors"
	"github.com/datalens-ai/datalens-engine/pkg/schema"
	enginesql "github.com/datalens-ai/datalens-engine/pkg/sql"
)

// typeInferenceRows bounds how many ingested rows feed type inference.
const typeInferenceRows = 100

// IngestedTable is one table captured from a parsed file before load:
// original column names and raw row values.
type IngestedTable struct {
	Name    string
	Columns []string
	Rows    [][]any
}

// tableMeta is the ingest-time metadata the descriptor is built from. The
// store itself only knows sanitized names; originals live here.
type tableMeta struct {
	name     string
	columns  []string // original names
	types    []string // inferred, aligned with columns
	nullable []bool
	rowCount int64
}

// Source adapts an embedded store into the datasource capability set. For
// ingested sources (delimited text, tree data) the descriptor is built from
// ingest metadata so original column names survive the rename-before-load;
// for native sources (script replay, store files) it comes from the catalog.
type Source struct {
	kind         string
	db           *DB
	meta         []tableMeta // nil for native sources
	sampleValues int
	logger       *zap.Logger

	descOnce sync.Once
	desc     *schema.Descriptor
	descErr  error

	closeOnce sync.Once
	closeErr  error
	cleanup   func() error // optional temp-file removal
}

// NewIngestedSource builds an in-memory store from parsed file tables: per
// table, column names are sanitized, types inferred over a bounded row
// sample, and rows bulk-loaded under the safe names.
func NewIngestedSource(ctx context.Context, kind string, tables []IngestedTable, sampleValues int, logger *zap.Logger) (*Source, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("no tables ingested")
	}

	db, err := NewMemory()
	if err != nil {
		return nil, err
	}

	src := &Source{
		kind:         kind,
		db:           db,
		sampleValues: sampleValues,
		logger:       logger,
	}

	for _, t := range tables {
		mapping := enginesql.NewMapping(t.Columns)
		types, nullable := inferColumnTypes(t.Columns, t.Rows)

		if err := db.LoadTable(ctx, t.Name, mapping.SanitizedColumns(), types, t.Rows); err != nil {
			db.Close() //nolint:errcheck
			return nil, fmt.Errorf("load table %s: %w", t.Name, err)
		}

		src.meta = append(src.meta, tableMeta{
			name:     t.Name,
			columns:  t.Columns,
			types:    types,
			nullable: nullable,
			rowCount: int64(len(t.Rows)),
		})

		logger.Debug("loaded ingested table",
			zap.String("kind", kind),
			zap.String("table", t.Name),
			zap.Int("columns", len(t.Columns)),
			zap.Int("rows", len(t.Rows)))
	}

	return src, nil
}

// NewNativeSource wraps an already-populated store (script replay, opened
// store file). cleanup, if non-nil, runs once on Close after the handle is
// released (temp backing file removal).
func NewNativeSource(kind string, db *DB, sampleValues int, cleanup func() error, logger *zap.Logger) *Source {
	return &Source{
		kind:         kind,
		db:           db,
		sampleValues: sampleValues,
		cleanup:      cleanup,
		logger:       logger,
	}
}

func inferColumnTypes(columns []string, rows [][]any) (types []string, nullable []bool) {
	types = make([]string, len(columns))
	nullable = make([]bool, len(columns))

	bound := len(rows)
	if bound > typeInferenceRows {
		bound = typeInferenceRows
	}

	for ci := range columns {
		values := make([]any, 0, bound)
		for ri := 0; ri < bound; ri++ {
			if ci < len(rows[ri]) {
				values = append(values, rows[ri][ci])
			} else {
				values = append(values, nil)
			}
		}
		types[ci], nullable[ci] = schema.InferColumn(values)
	}
	return types, nullable
}

func (s *Source) Kind() string { return s.kind }

func (s *Source) TestConnection(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return apperrors.ConnectionError(s.kind, err)
	}
	return nil
}

// IntrospectSchema returns the cached uniform view; sources are immutable
// once ingested, so the descriptor is built once.
func (s *Source) IntrospectSchema(ctx context.Context) (*schema.Descriptor, error) {
	s.descOnce.Do(func() {
		if s.meta != nil {
			s.desc, s.descErr = s.descriptorFromMeta(ctx)
			return
		}
		s.desc, s.descErr = s.db.Introspect(ctx, s.sampleValues)
	})
	if s.descErr != nil {
		return nil, apperrors.ConnectionError(s.kind, s.descErr)
	}
	return s.desc, nil
}

// descriptorFromMeta rebuilds the original-name view of ingested tables,
// attaching sample values read back from the store.
func (s *Source) descriptorFromMeta(ctx context.Context) (*schema.Descriptor, error) {
	desc := &schema.Descriptor{}
	for _, m := range s.meta {
		table := schema.Table{Name: m.name, RowCount: m.rowCount}
		for ci, col := range m.columns {
			table.Columns = append(table.Columns, schema.Column{
				Name:     col,
				Type:     m.types[ci],
				Nullable: m.nullable[ci],
			})
		}
		if s.sampleValues > 0 {
			if err := s.db.attachSampleValuesBySanitized(ctx, &table, s.sampleValues); err != nil {
				return nil, err
			}
		}
		desc.Tables = append(desc.Tables, table)
	}
	return desc, nil
}

func (s *Source) ExecuteQuery(ctx context.Context, query string, limit int) (*datasource.QueryResult, error) {
	result, err := s.db.Query(ctx, query, limit)
	if err != nil {
		return nil, apperrors.NewExecutionError(s.kind, err)
	}
	return result, nil
}

func (s *Source) SampleRows(ctx context.Context, table string, limit int) (*datasource.QueryResult, error) {
	result, err := s.db.Sample(ctx, table, limit)
	if err != nil {
		return nil, apperrors.NewExecutionError(s.kind, err)
	}
	return result, nil
}

func (s *Source) RowCount(ctx context.Context, table string) (int64, error) {
	if table == "" {
		names, err := s.db.TableNames(ctx)
		if err != nil || len(names) == 0 {
			return 0, apperrors.NewExecutionError(s.kind, fmt.Errorf("no tables: %v", err))
		}
		table = names[0]
	}
	count, err := s.db.RowCount(ctx, table)
	if err != nil {
		return 0, apperrors.NewExecutionError(s.kind, err)
	}
	return count, nil
}

// Close releases the store handle and removes temp backing storage exactly
// once. Safe to call repeatedly.
func (s *Source) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.db.Close()
		if s.cleanup != nil {
			if err := s.cleanup(); err != nil && s.closeErr == nil {
				s.closeErr = err
			}
		}
	})
	return s.closeErr
}

// attachSampleValuesBySanitized mirrors attachSampleValues for tables whose
// store columns are sanitized forms of the descriptor's original names.
func (d *DB) attachSampleValuesBySanitized(ctx context.Context, table *schema.Table, limit int) error {
	result, err := d.Query(ctx, "SELECT * FROM "+QuoteIdentifier(table.Name), limit)
	if err != nil {
		return err
	}
	// Store column order equals ingest column order.
	for ci := range table.Columns {
		if ci >= len(result.Columns) {
			break
		}
		for _, row := range result.Rows {
			if row[ci] != nil {
				table.Columns[ci].SampleValues = append(table.Columns[ci].SampleValues, row[ci])
			}
		}
	}
	return nil
}

var _ datasource.Adapter = (*Source)(nil)
