package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datalens-ai/datalens-engine/pkg/adapters/datasource"
	"github.com/datalens-ai/datalens-engine/pkg/apperrors"
	"github.com/datalens-ai/datalens-engine/pkg/schema"
)

// fakeAdapter records calls so tests can assert what reaches the adapter
// after the validation pipeline.
type fakeAdapter struct {
	kind string
	desc *schema.Descriptor

	executedQueries []string
	sampledTables   []string
	introspections  int
	closes          int

	executeResult *datasource.QueryResult
	sampleResult  *datasource.QueryResult
	executeErr    error
	closeErr      error
}

func (f *fakeAdapter) Kind() string { return f.kind }

func (f *fakeAdapter) TestConnection(ctx context.Context) error { return nil }

func (f *fakeAdapter) IntrospectSchema(ctx context.Context) (*schema.Descriptor, error) {
	f.introspections++
	return f.desc, nil
}

func (f *fakeAdapter) ExecuteQuery(ctx context.Context, query string, limit int) (*datasource.QueryResult, error) {
	f.executedQueries = append(f.executedQueries, query)
	if f.executeErr != nil {
		return nil, f.executeErr
	}
	if f.executeResult != nil {
		return f.executeResult, nil
	}
	return &datasource.QueryResult{}, nil
}

func (f *fakeAdapter) SampleRows(ctx context.Context, table string, limit int) (*datasource.QueryResult, error) {
	f.sampledTables = append(f.sampledTables, table)
	if f.sampleResult != nil {
		return f.sampleResult, nil
	}
	return &datasource.QueryResult{}, nil
}

func (f *fakeAdapter) RowCount(ctx context.Context, table string) (int64, error) { return 0, nil }

func (f *fakeAdapter) Close() error {
	f.closes++
	return f.closeErr
}

var _ datasource.Adapter = (*fakeAdapter)(nil)

const (
	renamingKind = "fake-renaming"
	nativeKind   = "fake-native"
)

func init() {
	// Rewrite behavior is keyed off the registry, so the fake kinds need
	// registrations even though sessions are built directly in these tests.
	datasource.Register(datasource.Registration{
		Info: datasource.AdapterInfo{Kind: renamingKind, RenamesColumns: true},
	})
	datasource.Register(datasource.Registration{
		Info: datasource.AdapterInfo{Kind: nativeKind},
	})
}

func ingestedDescriptor() *schema.Descriptor {
	return &schema.Descriptor{Tables: []schema.Table{{
		Name: "orders",
		Columns: []schema.Column{
			{Name: "Order ID", Type: "INTEGER"},
			{Name: "total", Type: "REAL"},
		},
		RowCount: 2,
	}}}
}

func newFake(kind string) *fakeAdapter {
	return &fakeAdapter{kind: kind, desc: ingestedDescriptor()}
}

func TestSession_ExecuteQuery_RewritesAndRelabels(t *testing.T) {
	fake := newFake(renamingKind)
	fake.executeResult = &datasource.QueryResult{
		Columns:  []datasource.ColumnInfo{{Name: "Order_ID"}, {Name: "total"}},
		Rows:     [][]any{{1, 9.99}},
		RowCount: 1,
	}
	session := NewSession(fake, SessionOptions{}, nil)

	result, err := session.ExecuteQuery(context.Background(), `SELECT "Order ID", total FROM csv_data`)
	require.NoError(t, err)

	require.Len(t, fake.executedQueries, 1)
	assert.Equal(t, `SELECT "Order_ID", total FROM orders`, fake.executedQueries[0])

	// Result columns come back under their original names.
	assert.Equal(t, []string{"Order ID", "total"}, result.ColumnNames())
}

func TestSession_ExecuteQuery_NativeKindKeepsIdentifiers(t *testing.T) {
	fake := newFake(nativeKind)
	session := NewSession(fake, SessionOptions{}, nil)

	_, err := session.ExecuteQuery(context.Background(), "SELECT total FROM data")
	require.NoError(t, err)
	require.Len(t, fake.executedQueries, 1)
	assert.Equal(t, "SELECT total FROM orders", fake.executedQueries[0])
}

func TestSession_ExecuteQuery_UnsafeNeverReachesAdapter(t *testing.T) {
	fake := newFake(nativeKind)
	session := NewSession(fake, SessionOptions{}, nil)

	unsafe := []string{
		"DROP TABLE orders",
		"SELECT * FROM orders; DELETE FROM orders",
		"delete from orders",
		"SELECT * FROM orders WHERE note = 'UPDATE'",
	}
	for _, query := range unsafe {
		_, err := session.ExecuteQuery(context.Background(), query)
		assert.Error(t, err, query)
	}
	assert.Empty(t, fake.executedQueries)
}

func TestSession_ExecuteQuery_EmptyQuery(t *testing.T) {
	session := NewSession(newFake(nativeKind), SessionOptions{}, nil)
	_, err := session.ExecuteQuery(context.Background(), "   ")
	assert.Error(t, err)
}

func TestSession_ExecuteQuery_AdapterFailurePropagates(t *testing.T) {
	fake := newFake(nativeKind)
	fake.executeErr = apperrors.NewExecutionError(nativeKind, errors.New("no such column: nope"))
	session := NewSession(fake, SessionOptions{}, nil)

	_, err := session.ExecuteQuery(context.Background(), "SELECT nope FROM orders")
	var execErr *apperrors.ExecutionError
	assert.ErrorAs(t, err, &execErr)
}

func TestSession_SchemaCachedAcrossCalls(t *testing.T) {
	fake := newFake(nativeKind)
	session := NewSession(fake, SessionOptions{}, nil)
	ctx := context.Background()

	first, err := session.Schema(ctx)
	require.NoError(t, err)
	second, err := session.Schema(ctx)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, fake.introspections)
}

func TestSession_DataInfo(t *testing.T) {
	session := NewSession(newFake(nativeKind), SessionOptions{}, nil)

	info, err := session.DataInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, nativeKind, info.SourceKind)
	assert.Equal(t, int64(2), info.TotalRowCount)
	assert.Equal(t, TableCounts{Columns: 2, Rows: 2}, info.Tables["orders"])
}

func TestSession_Sample(t *testing.T) {
	fake := newFake(nativeKind)
	session := NewSession(fake, SessionOptions{DefaultSampleRows: 7}, nil)
	ctx := context.Background()

	_, err := session.Sample(ctx, "orders", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"orders"}, fake.sampledTables)

	// Injection-shaped table arguments are rejected before dispatch.
	_, err = session.Sample(ctx, "orders'; DROP TABLE orders--", 5)
	assert.Error(t, err)
	assert.Len(t, fake.sampledTables, 1)
}

func TestSession_Sample_RelabelsThroughTargetTableOnly(t *testing.T) {
	// Both tables sanitize a column to "Order_ID"; only the sampled table's
	// mapping may relabel, or archive rows would surface orders names.
	fake := newFake(renamingKind)
	fake.desc = &schema.Descriptor{Tables: []schema.Table{
		{Name: "orders", Columns: []schema.Column{{Name: "Order ID", Type: "INTEGER"}}},
		{Name: "archive", Columns: []schema.Column{{Name: "Order_ID!", Type: "INTEGER"}}},
	}}
	fake.sampleResult = &datasource.QueryResult{
		Columns:  []datasource.ColumnInfo{{Name: "Order_ID"}},
		Rows:     [][]any{{42}},
		RowCount: 1,
	}
	session := NewSession(fake, SessionOptions{}, nil)

	result, err := session.Sample(context.Background(), "archive", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"Order_ID!"}, result.ColumnNames())
}

func TestSession_CloseIdempotent(t *testing.T) {
	fake := newFake(nativeKind)
	session := NewSession(fake, SessionOptions{}, nil)

	require.NoError(t, session.Close())
	require.NoError(t, session.Close())
	assert.Equal(t, 1, fake.closes)

	_, err := session.ExecuteQuery(context.Background(), "SELECT 1")
	assert.ErrorIs(t, err, apperrors.ErrSourceClosed)
	_, err = session.Schema(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrSourceClosed)
	_, err = session.Sample(context.Background(), "", 1)
	assert.ErrorIs(t, err, apperrors.ErrSourceClosed)
	assert.ErrorIs(t, session.TestConnection(context.Background()), apperrors.ErrSourceClosed)
}

func TestSession_CloseReturnsSameError(t *testing.T) {
	fake := newFake(nativeKind)
	fake.closeErr = errors.New("handle already torn down")
	session := NewSession(fake, SessionOptions{}, nil)

	first := session.Close()
	second := session.Close()
	assert.Equal(t, first, second)
	assert.Equal(t, 1, fake.closes)
}
