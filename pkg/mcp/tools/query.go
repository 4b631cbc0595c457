package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/datalens-ai/datalens-engine/pkg/adapters/datasource"
)

// queryResponse is the shared response format for execute_query and get_sample.
type queryResponse struct {
	Columns   []datasource.ColumnInfo `json:"columns"`
	Rows      [][]any                 `json:"rows"`
	RowCount  int                     `json:"row_count"`
	Truncated bool                    `json:"truncated"`
}

func newQueryResponse(result *datasource.QueryResult) queryResponse {
	return queryResponse{
		Columns:   result.Columns,
		Rows:      result.Rows,
		RowCount:  result.RowCount,
		Truncated: result.Truncated,
	}
}

func registerExecuteQueryTool(s *server.MCPServer, deps *Deps) {
	tool := mcp.NewTool(
		"execute_query",
		mcp.WithDescription(`Run a read-only SELECT query against an open datasource.
Exactly one statement is allowed; queries containing mutation keywords are rejected.
Results are capped; a truncated flag indicates more rows exist.
For file-backed sources the table is named after the file (e.g. orders.csv -> orders);
generic names like csv_data or json_data also resolve to the primary table.`),
		mcp.WithString("source_id",
			mcp.Required(),
			mcp.Description("Session id returned by open_datasource")),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("A single SELECT statement")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		session, errResult := requireSession(req, deps.Sessions)
		if errResult != nil {
			return errResult, nil
		}

		query := getOptionalString(req, "query")
		if query == "" {
			return NewErrorResult("invalid_parameters", "query is required"), nil
		}

		result, err := session.ExecuteQuery(ctx, query)
		if err != nil {
			return errorResult(err), nil
		}
		return jsonResult(newQueryResponse(result))
	})
}

func registerGetSampleTool(s *server.MCPServer, deps *Deps) {
	tool := mcp.NewTool(
		"get_sample",
		mcp.WithDescription("Get the first rows of a table from an open datasource. Omit the table to sample the source's first table."),
		mcp.WithString("source_id",
			mcp.Required(),
			mcp.Description("Session id returned by open_datasource")),
		mcp.WithString("table",
			mcp.Description("Table name from get_schema (default: the first table)")),
		mcp.WithNumber("limit",
			mcp.Description("Rows to return (default: 5)")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		session, errResult := requireSession(req, deps.Sessions)
		if errResult != nil {
			return errResult, nil
		}

		table := getOptionalString(req, "table")
		limit := getOptionalInt(req, "limit")

		result, err := session.Sample(ctx, table, limit)
		if err != nil {
			return errorResult(err), nil
		}
		return jsonResult(newQueryResponse(result))
	})
}
