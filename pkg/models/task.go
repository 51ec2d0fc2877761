package models

import (
	"time"

	"github.com/google/uuid"
)

// Constraint keys recognized on a TaskDefinition.
const (
	// ConstraintTimeout is a per-task timeout in seconds.
	ConstraintTimeout = "timeout"
	// ConstraintToolsAllowed restricts the plan to a set of tool names.
	ConstraintToolsAllowed = "tools_allowed"
)

// TaskDefinition is a user-submitted unit of work expressed in natural
// language, plus free-form context and recognized constraints.
type TaskDefinition struct {
	ID          string         `json:"id"`
	UserRequest string         `json:"user_request"`
	Context     map[string]any `json:"context,omitempty"`
	Constraints map[string]any `json:"constraints,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// NewTask wraps a raw request string into a TaskDefinition.
func NewTask(request string) *TaskDefinition {
	return &TaskDefinition{
		ID:          uuid.NewString(),
		UserRequest: request,
		Context:     map[string]any{},
		Constraints: map[string]any{},
		CreatedAt:   time.Now().UTC(),
	}
}

// AllowedTools returns the tools_allowed constraint as a set, or nil when
// the task does not restrict tools.
func (t *TaskDefinition) AllowedTools() map[string]bool {
	raw, ok := t.Constraints[ConstraintToolsAllowed]
	if !ok {
		return nil
	}
	set := map[string]bool{}
	switch v := raw.(type) {
	case []string:
		for _, name := range v {
			set[name] = true
		}
	case []any:
		for _, item := range v {
			if name, ok := item.(string); ok {
				set[name] = true
			}
		}
	default:
		return nil
	}
	return set
}
