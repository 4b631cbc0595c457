package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/datalens-ai/datalens-engine/pkg/schema"
	"github.com/datalens-ai/datalens-engine/pkg/testhelpers"
)

func newTestAdapter(t *testing.T) *Adapter {
	t.Helper()
	pg := testhelpers.GetTestPostgres(t)

	cfg, err := FromMap(pg.Config())
	require.NoError(t, err)

	adapter, err := NewAdapter(context.Background(), cfg, 3, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { adapter.Close() })
	return adapter
}

func TestAdapter_TestConnection(t *testing.T) {
	adapter := newTestAdapter(t)
	require.NoError(t, adapter.TestConnection(context.Background()))
}

func TestAdapter_TestConnection_BadCredentials(t *testing.T) {
	pg := testhelpers.GetTestPostgres(t)

	settings := pg.Config()
	settings["password"] = "wrong_password"
	cfg, err := FromMap(settings)
	require.NoError(t, err)

	adapter, err := NewAdapter(context.Background(), cfg, 3, zap.NewNop())
	require.NoError(t, err)
	defer adapter.Close()

	assert.Error(t, adapter.TestConnection(context.Background()))
}

func TestAdapter_IntrospectSchema(t *testing.T) {
	adapter := newTestAdapter(t)

	desc, err := adapter.IntrospectSchema(context.Background())
	require.NoError(t, err)

	customers, ok := desc.Table("customers")
	require.True(t, ok)
	assert.Equal(t, int64(3), customers.RowCount)

	byName := make(map[string]schema.Column)
	for _, col := range customers.Columns {
		byName[col.Name] = col
	}
	assert.Equal(t, string(schema.TypeInteger), byName["id"].Type)
	assert.Equal(t, string(schema.TypeText), byName["name"].Type)
	assert.Equal(t, string(schema.TypeDatetime), byName["signed_up"].Type)
	assert.True(t, byName["email"].Nullable)
	assert.False(t, byName["name"].Nullable)
	assert.NotEmpty(t, byName["name"].SampleValues)

	orders, ok := desc.Table("orders")
	require.True(t, ok)
	assert.Equal(t, int64(3), orders.RowCount)
	for _, col := range orders.Columns {
		if col.Name == "total" {
			assert.Equal(t, string(schema.TypeReal), col.Type)
		}
	}
}

func TestAdapter_ExecuteQuery(t *testing.T) {
	adapter := newTestAdapter(t)
	ctx := context.Background()

	result, err := adapter.ExecuteQuery(ctx, "SELECT name, email FROM customers ORDER BY id", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "email"}, result.ColumnNames())
	require.Len(t, result.Rows, 3)
	assert.Equal(t, "Ada Lovelace", result.Rows[0][0])
	assert.Nil(t, result.Rows[2][1])
	assert.False(t, result.Truncated)
}

func TestAdapter_ExecuteQuery_Truncation(t *testing.T) {
	adapter := newTestAdapter(t)

	result, err := adapter.ExecuteQuery(context.Background(), "SELECT id FROM customers ORDER BY id", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, result.RowCount)
	assert.True(t, result.Truncated)
}

func TestAdapter_ExecuteQuery_BadSQL(t *testing.T) {
	adapter := newTestAdapter(t)

	_, err := adapter.ExecuteQuery(context.Background(), "SELECT nope FROM customers", 10)
	assert.Error(t, err)
}

func TestAdapter_SampleRows(t *testing.T) {
	adapter := newTestAdapter(t)
	ctx := context.Background()

	result, err := adapter.SampleRows(ctx, "orders", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, result.RowCount)

	// Empty table name samples the first table.
	result, err = adapter.SampleRows(ctx, "", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, result.RowCount)
}

func TestAdapter_RowCount(t *testing.T) {
	adapter := newTestAdapter(t)

	count, err := adapter.RowCount(context.Background(), "customers")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	_, err = adapter.RowCount(context.Background(), "no_such_table")
	assert.Error(t, err)
}
