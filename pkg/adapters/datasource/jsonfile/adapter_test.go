package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/datalens-ai/datalens-engine/pkg/adapters/datasource/embedded"
	"github.com/datalens-ai/datalens-engine/pkg/schema"
)

func openJSON(t *testing.T, name, content string) *embedded.Source {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	src, err := Open(context.Background(), path, 3, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { src.Close() })
	return src
}

func TestOpen_ArrayOfObjects(t *testing.T) {
	ctx := context.Background()
	src := openJSON(t, "users.json", `[
		{"id": 1, "name": "Ada"},
		{"id": 2, "name": "Grace", "email": "g@example.com"}
	]`)

	desc, err := src.IntrospectSchema(ctx)
	require.NoError(t, err)
	require.Len(t, desc.Tables, 1)

	table := desc.Tables[0]
	assert.Equal(t, "users", table.Name)
	assert.Equal(t, int64(2), table.RowCount)

	names := make([]string, len(table.Columns))
	for i, c := range table.Columns {
		names[i] = c.Name
	}
	// First-seen order across rows, keys sorted within a row.
	assert.Equal(t, []string{"id", "name", "email"}, names)

	// The first row has no email, so the column is nullable.
	email, _ := columnByName(table, "email")
	assert.True(t, email.Nullable)
}

func TestOpen_ObjectWrappingOneArray(t *testing.T) {
	ctx := context.Background()
	src := openJSON(t, "export.json", `{
		"generated_at": "2024-01-01",
		"results": [{"sku": "A-1", "qty": 3}, {"sku": "B-2", "qty": 7}]
	}`)

	desc, err := src.IntrospectSchema(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), desc.Tables[0].RowCount)

	result, err := src.ExecuteQuery(ctx, "SELECT sku FROM export ORDER BY qty", 10)
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"A-1"}, {"B-2"}}, result.Rows)
}

func TestOpen_LoneObjectIsOneRow(t *testing.T) {
	ctx := context.Background()
	src := openJSON(t, "cfg.json", `{"region": "eu-west-1", "replicas": 3}`)

	desc, err := src.IntrospectSchema(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), desc.Tables[0].RowCount)
}

func TestOpen_ObjectWithTwoArraysIsOneRow(t *testing.T) {
	ctx := context.Background()
	src := openJSON(t, "multi.json", `{"a": [1, 2], "b": [3]}`)

	desc, err := src.IntrospectSchema(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), desc.Tables[0].RowCount)
}

func TestOpen_NewlineDelimited(t *testing.T) {
	ctx := context.Background()
	src := openJSON(t, "events.ndjson",
		`{"event": "signup", "n": 1}`+"\n"+
			`not json at all`+"\n"+
			"\n"+
			`{"event": "login", "n": 2}`+"\n")

	desc, err := src.IntrospectSchema(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), desc.Tables[0].RowCount)
}

func TestOpen_NestedValuesStoredAsJSONText(t *testing.T) {
	ctx := context.Background()
	src := openJSON(t, "n.json", `[{"id": 1, "tags": ["a", "b"], "meta": {"k": "v"}}]`)

	desc, err := src.IntrospectSchema(ctx)
	require.NoError(t, err)
	table := desc.Tables[0]

	tags, ok := columnByName(table, "tags")
	require.True(t, ok)
	assert.Equal(t, string(schema.TypeArray), tags.Type)

	meta, ok := columnByName(table, "meta")
	require.True(t, ok)
	assert.Equal(t, string(schema.TypeObject), meta.Type)

	// Columns are first-seen order with keys sorted per row: id, meta, tags.
	result, err := src.SampleRows(ctx, "n", 1)
	require.NoError(t, err)
	row := result.Rows[0]
	assert.Equal(t, `{"k":"v"}`, row[1])
	assert.Equal(t, `["a","b"]`, row[2])
}

func TestOpen_RejectsScalarAndEmptyInputs(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"top-level scalar", `42`},
		{"top-level string", `"hello"`},
		{"empty array", `[]`},
		{"array of scalars", `[1, 2, 3]`},
		{"nothing parsable", "not json\nstill not json\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0600))
			_, err := Open(context.Background(), path, 3, zap.NewNop())
			assert.Error(t, err)
		})
	}
}

func TestOpen_MissingFile(t *testing.T) {
	_, err := Open(context.Background(), filepath.Join(t.TempDir(), "absent.json"), 3, zap.NewNop())
	assert.Error(t, err)
}

func columnByName(table schema.Table, name string) (schema.Column, bool) {
	for _, c := range table.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return schema.Column{}, false
}
