// Package tools provides the MCP tool surface over datasource sessions.
package tools

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/datalens-ai/datalens-engine/pkg/services"
)

// getOptionalString extracts an optional string argument from the request.
func getOptionalString(req mcp.CallToolRequest, key string) string {
	args, ok := req.Params.Arguments.(map[string]any)
	if !ok {
		return ""
	}
	val, ok := args[key].(string)
	if !ok {
		return ""
	}
	return val
}

// getOptionalInt extracts an optional integer argument. JSON numbers arrive
// as float64.
func getOptionalInt(req mcp.CallToolRequest, key string) int {
	args, ok := req.Params.Arguments.(map[string]any)
	if !ok {
		return 0
	}
	switch val := args[key].(type) {
	case float64:
		return int(val)
	case int:
		return val
	default:
		return 0
	}
}

// getObject extracts an optional object argument.
func getObject(req mcp.CallToolRequest, key string) map[string]any {
	args, ok := req.Params.Arguments.(map[string]any)
	if !ok {
		return nil
	}
	val, _ := args[key].(map[string]any)
	return val
}

// requireSession resolves the source_id argument to an open session.
// The second return is a ready error result when resolution fails.
func requireSession(req mcp.CallToolRequest, sessions *services.SessionManager) (*services.Session, *mcp.CallToolResult) {
	raw := getOptionalString(req, "source_id")
	if raw == "" {
		return nil, NewErrorResult("invalid_parameters", "source_id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, NewErrorResultWithDetails("invalid_parameters",
			"source_id is not a valid UUID",
			map[string]any{"actual_value": raw})
	}
	session, ok := sessions.Get(id)
	if !ok {
		return nil, NewErrorResult("source_not_found",
			fmt.Sprintf("no open datasource with id %s", id))
	}
	return session, nil
}

// jsonResult marshals a response value into a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tool result: %w", err)
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}
