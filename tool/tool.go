// Package tool implements the function calling subsystem: the Tool contract,
// schema validated function tools, the registry the orchestrator dispatches
// through, and the summarization applied to results before they are stored.
package tool

import (
	"fmt"

	"github.com/hupe1980/turnmesh/core"
	"github.com/hupe1980/turnmesh/internal/util"
)

// Tool defines a callable capability exposed to the model.
//
// Backend tools run server side through Call. Frontend tools are declared to
// the model the same way but executed by the client, so their Call is never
// reached by the orchestrator.
//
// Implementations must be safe for concurrent use; one registry serves every
// user.
type Tool interface {
	// Name returns the unique identifier the model uses to call the tool.
	Name() string

	// Description tells the model when and how to use the tool.
	Description() string

	// Parameters returns a JSON schema describing the expected arguments.
	Parameters() map[string]any

	// Call executes the tool. args already include the injected request
	// context (user_id and the caller environment).
	Call(toolCtx *core.ToolContext, args map[string]any) (any, error)
}

// ValidationError represents parameter validation errors with detailed information.
type ValidationError = util.ValidationError

// Error codes carried by ToolError.
const (
	CodeValidation  = "VALIDATION_ERROR"
	CodeExecution   = "EXECUTION_ERROR"
	CodeTimeout     = "TIMEOUT"
	CodePanic       = "PANIC"
	CodeUnknownTool = "UNKNOWN_TOOL"
)

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`              // Name of the tool that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Details any    `json:"details,omitempty"` // Additional error details
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// Payload renders the error as the structured function response fed back to
// the model: {"error": message, "details": {...}}.
func (e *ToolError) Payload() map[string]any {
	details := map[string]any{
		"tool": e.Tool,
		"code": e.Code,
	}
	if e.Details != nil {
		details["info"] = e.Details
	}
	return map[string]any{
		"error":   e.Message,
		"details": details,
	}
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}

// UnknownToolError reports a call to a name absent from the registry.
func UnknownToolError(name string) *ToolError {
	return NewToolError(name, fmt.Sprintf("unknown tool %q", name), CodeUnknownTool)
}
