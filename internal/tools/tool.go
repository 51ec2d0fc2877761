// Package tools defines the tool contract and the registry that validates
// and dispatches tool invocations.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
)

// Tool is a named capability with a JSON Schema describing its input. Execute
// may block on I/O; callers pass a context carrying any deadline.
type Tool interface {
	Name() string
	Description() string
	Schema() json.RawMessage
	Execute(ctx context.Context, params json.RawMessage) (*Result, error)
}

// Result is the uniform tool output. Data carries the tool-specific output
// fields; Error is set only when Success is false.
type Result struct {
	Success bool           `json:"success"`
	Data    map[string]any `json:"data,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// Ok builds a successful result.
func Ok(data map[string]any) *Result {
	return &Result{Success: true, Data: data}
}

// Fail builds a failed result with a formatted error message.
func Fail(format string, args ...any) *Result {
	return &Result{Success: false, Error: fmt.Sprintf(format, args...)}
}
