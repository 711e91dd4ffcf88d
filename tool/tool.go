// Package tool implements the function / tool calling subsystem that lets the
// agent loop invoke structured capabilities (APIs, computations, lookups)
// with schema validated arguments and consistent error handling.
package tool

import (
	"context"
	"fmt"

	"github.com/hupe1980/agentrun/internal/util"
)

// Tool is the contract a capability must satisfy to be invocable by the
// agent loop.
//
// Tool implementations should:
//   - Provide clear, descriptive names and descriptions (snake_case names recommended)
//   - Define a proper JSON schema for parameters
//   - Return errors instead of panicking
//   - Be safe for concurrent use; a registry may be shared across runs
//
// Execute receives only the parsed arguments; it must not reach into the
// transcript or any loop state. A failure is returned as an error and folded
// into the run as a ToolResult by the Registry, never propagated.
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns a human-readable description of what this tool does.
	// It is provided to the model to help it decide when to use the tool.
	Description() string

	// Parameters returns a JSON schema describing the expected arguments.
	Parameters() map[string]any

	// Execute runs the tool with parsed, schema-validated arguments.
	Execute(ctx context.Context, args map[string]any) (any, error)
}

// ValidationError represents parameter validation errors with detailed information.
type ValidationError = util.ValidationError

// DuplicateToolError is returned by Registry.Register when a tool name is
// already taken.
type DuplicateToolError struct {
	Name string
}

func (e *DuplicateToolError) Error() string {
	return fmt.Sprintf("tool %q already registered", e.Name)
}

// UnknownToolError is produced when the model requests a tool name that is
// not in the registry. It is recoverable: the dispatcher records it on the
// ToolResult so the model can react.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool %q", e.Name)
}

// ExecutionError represents errors that occur during tool execution.
type ExecutionError struct {
	Tool    string `json:"tool"`              // Name of the tool that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Details any    `json:"details,omitempty"` // Additional error details
}

func (e *ExecutionError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewExecutionError creates an ExecutionError with the specified details.
func NewExecutionError(tool, message, code string) *ExecutionError {
	return &ExecutionError{Tool: tool, Message: message, Code: code}
}
