package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/datalens-ai/datalens-engine/pkg/nlq"
)

// registerGenerateQueryTool turns a natural-language question into query
// text via the configured generation collaborator. The returned text is not
// executed; callers pass it to execute_query, where the full validation
// pipeline applies.
func registerGenerateQueryTool(s *server.MCPServer, deps *Deps) {
	tool := mcp.NewTool(
		"generate_query",
		mcp.WithDescription(`Generate a SELECT query for a natural-language question against an open datasource.
Returns query text only; run it with execute_query.`),
		mcp.WithString("source_id",
			mcp.Required(),
			mcp.Description("Session id returned by open_datasource")),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("The question to answer, in plain language")),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if deps.Generator == nil {
			return NewErrorResult("generation_unavailable",
				"no query generation collaborator is configured; set GENERATOR_PROVIDER and GENERATOR_MODEL"), nil
		}

		session, errResult := requireSession(req, deps.Sessions)
		if errResult != nil {
			return errResult, nil
		}

		question := getOptionalString(req, "question")
		if question == "" {
			return NewErrorResult("invalid_parameters", "question is required"), nil
		}

		desc, err := session.Schema(ctx)
		if err != nil {
			return errorResult(err), nil
		}

		query, err := deps.Generator.GenerateQuery(ctx, nlq.RenderSchemaContext(desc), question)
		if err != nil {
			deps.Logger.Warn("query generation failed", zap.Error(err))
			return NewErrorResult("generation_failed", err.Error()), nil
		}

		return jsonResult(struct {
			Query string `json:"query"`
			Model string `json:"model"`
		}{Query: query, Model: deps.Generator.Model()})
	})
}
