package embedded

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newIngestedSource(t *testing.T, tables []IngestedTable) *Source {
	t.Helper()
	src, err := NewIngestedSource(context.Background(), "csv", tables, 3, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { src.Close() })
	return src
}

func TestNewIngestedSource_OriginalNamesInSchema(t *testing.T) {
	ctx := context.Background()
	src := newIngestedSource(t, []IngestedTable{{
		Name:    "orders",
		Columns: []string{"Order ID", "Customer Name", "total"},
		Rows: [][]any{
			{"1", "Ada", "19.99"},
			{"2", "Grace", "5"},
		},
	}})

	desc, err := src.IntrospectSchema(ctx)
	require.NoError(t, err)
	require.Len(t, desc.Tables, 1)

	table := desc.Tables[0]
	assert.Equal(t, "orders", table.Name)
	assert.Equal(t, int64(2), table.RowCount)

	// The descriptor reports original headers, not the stored names.
	names := make([]string, len(table.Columns))
	for i, c := range table.Columns {
		names[i] = c.Name
	}
	assert.Equal(t, []string{"Order ID", "Customer Name", "total"}, names)

	// Types inferred from the cell literals.
	assert.Equal(t, "INTEGER", table.Columns[0].Type)
	assert.Equal(t, "TEXT", table.Columns[1].Type)
	// "19.99" and "5" observe two numeric types; ambiguity is surfaced.
	assert.Equal(t, "INTEGER/REAL", table.Columns[2].Type)
}

func TestNewIngestedSource_QueriesUseSanitizedNames(t *testing.T) {
	ctx := context.Background()
	src := newIngestedSource(t, []IngestedTable{{
		Name:    "orders",
		Columns: []string{"Order ID"},
		Rows:    [][]any{{"1"}, {"2"}, {"3"}},
	}})

	result, err := src.ExecuteQuery(ctx, `SELECT Order_ID FROM orders ORDER BY Order_ID`, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"Order_ID"}, result.ColumnNames())
	assert.Equal(t, 3, result.RowCount)
}

func TestIntrospectSchema_Idempotent(t *testing.T) {
	ctx := context.Background()
	src := newIngestedSource(t, []IngestedTable{{
		Name:    "t",
		Columns: []string{"a"},
		Rows:    [][]any{{"x"}},
	}})

	first, err := src.IntrospectSchema(ctx)
	require.NoError(t, err)
	second, err := src.IntrospectSchema(ctx)
	require.NoError(t, err)

	assert.Same(t, first, second)
}

func TestSource_RowCountConservation(t *testing.T) {
	ctx := context.Background()
	rows := make([][]any, 42)
	for i := range rows {
		rows[i] = []any{"v"}
	}
	src := newIngestedSource(t, []IngestedTable{{Name: "t", Columns: []string{"a"}, Rows: rows}})

	count, err := src.RowCount(ctx, "t")
	require.NoError(t, err)
	assert.Equal(t, int64(42), count)

	desc, err := src.IntrospectSchema(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(42), desc.Tables[0].RowCount)
}

func TestSource_ExecutionErrorTagged(t *testing.T) {
	ctx := context.Background()
	src := newIngestedSource(t, []IngestedTable{{
		Name:    "t",
		Columns: []string{"a"},
		Rows:    [][]any{{"x"}},
	}})

	_, err := src.ExecuteQuery(ctx, "SELECT nope FROM t", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "csv")
}

func TestSource_CloseIdempotentWithCleanup(t *testing.T) {
	dir := t.TempDir()
	temp := filepath.Join(dir, "backing.db")
	require.NoError(t, os.WriteFile(temp, []byte("x"), 0600))

	db, err := NewMemory()
	require.NoError(t, err)

	cleanupCalls := 0
	src := NewNativeSource("sqlscript", db, 3, func() error {
		cleanupCalls++
		return os.Remove(temp)
	}, zap.NewNop())

	require.NoError(t, src.Close())
	require.NoError(t, src.Close())
	require.NoError(t, src.Close())

	assert.Equal(t, 1, cleanupCalls)
	_, statErr := os.Stat(temp)
	assert.True(t, os.IsNotExist(statErr))
}

func TestNewIngestedSource_NoTables(t *testing.T) {
	_, err := NewIngestedSource(context.Background(), "csv", nil, 3, zap.NewNop())
	assert.Error(t, err)
}
