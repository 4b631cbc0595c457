package tools

import (
	"encoding/json"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/datalens-ai/datalens-engine/pkg/apperrors"
)

// ErrorResponse represents a structured error in tool results.
// Errors are returned as tool results rather than protocol errors so the
// calling agent sees the code and message and can adjust its next call.
type ErrorResponse struct {
	Error   bool   `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// NewErrorResult creates a tool result containing a structured error.
func NewErrorResult(code, message string) *mcp.CallToolResult {
	resp := ErrorResponse{
		Error:   true,
		Code:    code,
		Message: message,
	}
	jsonBytes, _ := json.Marshal(resp)
	result := mcp.NewToolResultText(string(jsonBytes))
	result.IsError = true
	return result
}

// NewErrorResultWithDetails creates an error result with additional context.
func NewErrorResultWithDetails(code, message string, details any) *mcp.CallToolResult {
	resp := ErrorResponse{
		Error:   true,
		Code:    code,
		Message: message,
		Details: details,
	}
	jsonBytes, _ := json.Marshal(resp)
	result := mcp.NewToolResultText(string(jsonBytes))
	result.IsError = true
	return result
}

// classifyError maps the engine's error taxonomy onto stable tool error codes.
func classifyError(err error) string {
	var execErr *apperrors.ExecutionError
	switch {
	case errors.Is(err, apperrors.ErrUnsafeQuery):
		return "unsafe_query"
	case errors.Is(err, apperrors.ErrUnsupportedQuery):
		return "unsupported_query"
	case errors.Is(err, apperrors.ErrSourceClosed):
		return "source_closed"
	case errors.Is(err, apperrors.ErrConnection):
		return "connection_error"
	case errors.As(err, &execErr):
		return "execution_error"
	default:
		return "internal_error"
	}
}

// errorResult converts an engine error into a structured tool result.
func errorResult(err error) *mcp.CallToolResult {
	return NewErrorResult(classifyError(err), err.Error())
}
