package tools

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	_ "github.com/datalens-ai/datalens-engine/pkg/adapters/datasource/csvfile"
	"github.com/datalens-ai/datalens-engine/pkg/nlq"
	"github.com/datalens-ai/datalens-engine/pkg/services"
)

// newToolServer builds the full tool surface over a stateless HTTP transport,
// the same wiring the process uses.
func newToolServer(t *testing.T, deps *Deps) http.Handler {
	t.Helper()
	mcpServer := server.NewMCPServer("test-engine", "0.0.1", server.WithToolCapabilities(true))
	RegisterAll(mcpServer, deps)
	return server.NewStreamableHTTPServer(mcpServer, server.WithStateLess(true))
}

// callTool posts a JSON-RPC tools/call and decodes the structured payload of
// the first content block.
func callTool(t *testing.T, h http.Handler, name string, args map[string]any) (map[string]any, bool) {
	t.Helper()

	rpcRequest := map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params":  map[string]any{"name": name, "arguments": args},
	}
	body, err := json.Marshal(rpcRequest)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/mcp", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	raw := rec.Body.String()
	// The transport may frame the response as a single SSE message.
	if i := strings.Index(raw, "data: "); i >= 0 {
		raw = raw[i+len("data: "):]
		if nl := strings.IndexByte(raw, '\n'); nl >= 0 {
			raw = raw[:nl]
		}
	}

	var rpcResponse struct {
		Result struct {
			IsError bool `json:"isError"`
			Content []struct {
				Text string `json:"text"`
			} `json:"content"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &rpcResponse), raw)
	require.NotEmpty(t, rpcResponse.Result.Content, raw)

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(rpcResponse.Result.Content[0].Text), &payload))
	return payload, rpcResponse.Result.IsError
}

func TestToolSurface_CSVFlow(t *testing.T) {
	sessions := services.NewSessionManager(services.SessionOptions{}, zap.NewNop())
	defer sessions.CloseAll()
	h := newToolServer(t, &Deps{
		Sessions:  sessions,
		Generator: nlq.NewMockGenerator(),
		Logger:    zap.NewNop(),
	})

	path := filepath.Join(t.TempDir(), "people.csv")
	require.NoError(t, os.WriteFile(path, []byte("Full Name,age\nAda,36\nGrace,45\n"), 0600))

	listing, isError := callTool(t, h, "list_source_types", map[string]any{})
	require.False(t, isError)
	assert.GreaterOrEqual(t, listing["count"].(float64), float64(1))

	opened, isError := callTool(t, h, "open_datasource", map[string]any{
		"kind":   "csv",
		"config": map[string]any{"path": path},
	})
	require.False(t, isError)
	sourceID := opened["source_id"].(string)
	_, err := uuid.Parse(sourceID)
	require.NoError(t, err)
	assert.Equal(t, "csv", opened["kind"])
	require.Len(t, sessions.List(), 1)

	connected, isError := callTool(t, h, "test_connection", map[string]any{"source_id": sourceID})
	require.False(t, isError)
	assert.Equal(t, true, connected["connected"])

	schemaResp, isError := callTool(t, h, "get_schema", map[string]any{"source_id": sourceID})
	require.False(t, isError)
	assert.Equal(t, "csv", schemaResp["source_kind"])
	tables := schemaResp["tables"].([]any)
	require.Len(t, tables, 1)
	assert.Equal(t, "people", tables[0].(map[string]any)["name"])

	info, isError := callTool(t, h, "get_data_info", map[string]any{"source_id": sourceID})
	require.False(t, isError)
	assert.Equal(t, float64(2), info["total_row_count"])

	queried, isError := callTool(t, h, "execute_query", map[string]any{
		"source_id": sourceID,
		"query":     `SELECT "Full Name" FROM people ORDER BY age`,
	})
	require.False(t, isError)
	assert.Equal(t, float64(2), queried["row_count"])
	columns := queried["columns"].([]any)
	assert.Equal(t, "Full Name", columns[0].(map[string]any)["name"])

	sampled, isError := callTool(t, h, "get_sample", map[string]any{
		"source_id": sourceID,
		"table":     "people",
		"limit":     1,
	})
	require.False(t, isError)
	assert.Equal(t, float64(1), sampled["row_count"])

	generated, isError := callTool(t, h, "generate_query", map[string]any{
		"source_id": sourceID,
		"question":  "how many people are there?",
	})
	require.False(t, isError)
	assert.Equal(t, "SELECT 1", generated["query"])
	assert.Equal(t, "mock-model", generated["model"])

	closed, isError := callTool(t, h, "close_datasource", map[string]any{"source_id": sourceID})
	require.False(t, isError)
	assert.Equal(t, true, closed["closed"])
	assert.Empty(t, sessions.List())

	// Closing again stays a success.
	closed, isError = callTool(t, h, "close_datasource", map[string]any{"source_id": sourceID})
	require.False(t, isError)
	assert.Equal(t, true, closed["closed"])

	// Tools addressing the closed session now miss.
	_, isError = callTool(t, h, "execute_query", map[string]any{
		"source_id": sourceID,
		"query":     "SELECT 1",
	})
	assert.True(t, isError)
}

func TestToolSurface_ErrorPaths(t *testing.T) {
	sessions := services.NewSessionManager(services.SessionOptions{}, zap.NewNop())
	defer sessions.CloseAll()
	h := newToolServer(t, &Deps{Sessions: sessions, Logger: zap.NewNop()})

	resp, isError := callTool(t, h, "open_datasource", map[string]any{
		"kind":   "carrier-pigeon",
		"config": map[string]any{},
	})
	assert.True(t, isError)
	assert.Equal(t, "invalid_parameters", resp["code"])

	resp, isError = callTool(t, h, "open_datasource", map[string]any{"kind": "csv"})
	assert.True(t, isError)
	assert.Equal(t, "invalid_parameters", resp["code"])

	resp, isError = callTool(t, h, "get_schema", map[string]any{"source_id": uuid.NewString()})
	assert.True(t, isError)
	assert.Equal(t, "source_not_found", resp["code"])

	// Mutating queries are rejected with the unsafe code.
	path := filepath.Join(t.TempDir(), "d.csv")
	require.NoError(t, os.WriteFile(path, []byte("a\n1\n"), 0600))
	opened, isError := callTool(t, h, "open_datasource", map[string]any{
		"kind":   "csv",
		"config": map[string]any{"path": path},
	})
	require.False(t, isError)

	resp, isError = callTool(t, h, "execute_query", map[string]any{
		"source_id": opened["source_id"],
		"query":     "DROP TABLE d",
	})
	assert.True(t, isError)
	assert.Equal(t, "unsafe_query", resp["code"])

	// Generation is a structured failure when no collaborator is wired.
	resp, isError = callTool(t, h, "generate_query", map[string]any{
		"source_id": opened["source_id"],
		"question":  "anything",
	})
	assert.True(t, isError)
	assert.Equal(t, "generation_unavailable", resp["code"])
}
