package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/datalens-ai/datalens-engine/pkg/schema"
)

// registerGetSchemaTool exposes the uniform schema view of an open source.
func registerGetSchemaTool(s *server.MCPServer, deps *Deps) {
	tool := mcp.NewTool(
		"get_schema",
		mcp.WithDescription(`Get the schema of an open datasource: tables, columns with inferred types
(INTEGER, REAL, BOOLEAN, TEXT, DATETIME, ARRAY, OBJECT), nullability, sample values, and row counts.
Column names are the source's original headers; use them as-is in execute_query.`),
		mcp.WithString("source_id",
			mcp.Required(),
			mcp.Description("Session id returned by open_datasource")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		session, errResult := requireSession(req, deps.Sessions)
		if errResult != nil {
			return errResult, nil
		}

		desc, err := session.Schema(ctx)
		if err != nil {
			return errorResult(err), nil
		}

		return jsonResult(struct {
			SourceKind string         `json:"source_kind"`
			Tables     []schema.Table `json:"tables"`
		}{SourceKind: session.Kind(), Tables: desc.Tables})
	})
}

// registerGetDataInfoTool summarizes an open source without the full schema.
func registerGetDataInfoTool(s *server.MCPServer, deps *Deps) {
	tool := mcp.NewTool(
		"get_data_info",
		mcp.WithDescription("Get a summary of an open datasource: kind, total row count, and per-table column/row counts."),
		mcp.WithString("source_id",
			mcp.Required(),
			mcp.Description("Session id returned by open_datasource")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		session, errResult := requireSession(req, deps.Sessions)
		if errResult != nil {
			return errResult, nil
		}

		info, err := session.DataInfo(ctx)
		if err != nil {
			return errorResult(err), nil
		}
		return jsonResult(info)
	})
}
