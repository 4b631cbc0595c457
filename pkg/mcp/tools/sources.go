package tools

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/datalens-ai/datalens-engine/pkg/adapters/datasource"
	"github.com/datalens-ai/datalens-engine/pkg/nlq"
	"github.com/datalens-ai/datalens-engine/pkg/services"
)

// Deps carries the shared collaborators for all datasource tools.
type Deps struct {
	Sessions  *services.SessionManager
	Generator nlq.QueryGenerator // nil when no generation collaborator is configured
	Logger    *zap.Logger
}

// RegisterAll registers the full tool surface.
func RegisterAll(s *server.MCPServer, deps *Deps) {
	registerListSourceTypesTool(s)
	registerOpenDatasourceTool(s, deps)
	registerTestConnectionTool(s, deps)
	registerCloseDatasourceTool(s, deps)
	registerGetSchemaTool(s, deps)
	registerGetDataInfoTool(s, deps)
	registerExecuteQueryTool(s, deps)
	registerGetSampleTool(s, deps)
	registerGenerateQueryTool(s, deps)
}

// registerListSourceTypesTool lists the adapter kinds compiled into this build.
func registerListSourceTypesTool(s *server.MCPServer) {
	tool := mcp.NewTool(
		"list_source_types",
		mcp.WithDescription("List the datasource kinds this server can open, with a short description of each."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		kinds := datasource.RegisteredAdapters()
		sort.Slice(kinds, func(i, j int) bool { return kinds[i].Kind < kinds[j].Kind })

		return jsonResult(struct {
			SourceTypes []datasource.AdapterInfo `json:"source_types"`
			Count       int                      `json:"count"`
		}{SourceTypes: kinds, Count: len(kinds)})
	})
}

// openDatasourceResponse is the response format for open_datasource.
type openDatasourceResponse struct {
	SourceID      string `json:"source_id"`
	Kind          string `json:"kind"`
	TablesCreated int    `json:"tables_created,omitempty"`
	SkippedStmts  int    `json:"skipped_statements,omitempty"`
}

func registerOpenDatasourceTool(s *server.MCPServer, deps *Deps) {
	tool := mcp.NewTool(
		"open_datasource",
		mcp.WithDescription(`Open a datasource and return its session id for the other tools.
File-backed kinds (csv, json, sqlscript, sqlite) take a "path" config key.
Remote kinds take connection settings (postgres/sqlserver: host, port, database, user, password; mongodb: uri, database).
Use list_source_types to discover available kinds.`),
		mcp.WithString("kind",
			mcp.Required(),
			mcp.Description("Datasource kind, e.g. csv, json, sqlscript, sqlite, postgres, sqlserver, mongodb")),
		mcp.WithObject("config",
			mcp.Required(),
			mcp.Description("Kind-specific connection or file settings")),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		kind := getOptionalString(req, "kind")
		if kind == "" {
			return NewErrorResult("invalid_parameters", "kind is required"), nil
		}
		if !datasource.IsRegistered(kind) {
			return NewErrorResultWithDetails("invalid_parameters",
				"unsupported datasource kind",
				map[string]any{"kind": kind}), nil
		}

		config := getObject(req, "config")
		if config == nil {
			return NewErrorResult("invalid_parameters", "config object is required"), nil
		}

		session, err := deps.Sessions.Open(ctx, kind, config)
		if err != nil {
			return errorResult(err), nil
		}

		resp := openDatasourceResponse{
			SourceID: session.ID().String(),
			Kind:     session.Kind(),
		}
		if report := session.ImportReport(); report != nil {
			resp.TablesCreated = report.TablesCreated
			resp.SkippedStmts = report.StatementsFailed
		}
		return jsonResult(resp)
	})
}

func registerTestConnectionTool(s *server.MCPServer, deps *Deps) {
	tool := mcp.NewTool(
		"test_connection",
		mcp.WithDescription("Verify that an open datasource is still reachable."),
		mcp.WithString("source_id",
			mcp.Required(),
			mcp.Description("Session id returned by open_datasource")),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		session, errResult := requireSession(req, deps.Sessions)
		if errResult != nil {
			return errResult, nil
		}

		if err := session.TestConnection(ctx); err != nil {
			return errorResult(err), nil
		}
		return jsonResult(struct {
			Connected bool   `json:"connected"`
			Kind      string `json:"kind"`
		}{Connected: true, Kind: session.Kind()})
	})
}

func registerCloseDatasourceTool(s *server.MCPServer, deps *Deps) {
	tool := mcp.NewTool(
		"close_datasource",
		mcp.WithDescription("Close an open datasource, releasing its connection and any temporary backing files. Closing an already-closed source succeeds."),
		mcp.WithString("source_id",
			mcp.Required(),
			mcp.Description("Session id returned by open_datasource")),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		raw := getOptionalString(req, "source_id")
		if raw == "" {
			return NewErrorResult("invalid_parameters", "source_id is required"), nil
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return NewErrorResultWithDetails("invalid_parameters",
				"source_id is not a valid UUID",
				map[string]any{"actual_value": raw}), nil
		}

		// An unknown id was either never opened or already closed; both
		// report closed so repeated closes succeed.
		if _, ok := deps.Sessions.Get(id); ok {
			if err := deps.Sessions.Close(id); err != nil {
				return errorResult(err), nil
			}
		}
		return jsonResult(struct {
			Closed bool `json:"closed"`
		}{Closed: true})
	})
}
