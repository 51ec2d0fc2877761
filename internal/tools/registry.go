package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	// ErrDuplicateTool is returned when registering a name twice.
	ErrDuplicateTool = errors.New("tools: name already registered")
	// ErrToolNotFound is returned when dispatching to an unknown name.
	ErrToolNotFound = errors.New("tools: not registered")
)

// Spec is the schema export consumed by the planner.
type Spec struct {
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

// Registry maps tool names to implementations and validates arguments
// against each tool's schema before dispatch. Registration happens at
// startup; afterwards the registry is effectively read-only.
type Registry struct {
	mu       sync.RWMutex
	tools    map[string]Tool
	compiled map[string]*jsonschema.Schema
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:    make(map[string]Tool),
		compiled: make(map[string]*jsonschema.Schema),
	}
}

// Register adds a tool, compiling its schema. Duplicate names fail.
func (r *Registry) Register(t Tool) error {
	name := t.Name()

	schema, err := jsonschema.CompileString(name+".schema.json", string(t.Schema()))
	if err != nil {
		return fmt.Errorf("compile schema for %s: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, name)
	}
	r.tools[name] = t
	r.compiled[name] = schema
	return nil
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns all registered tool names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	return names
}

// Describe exports {name -> {description, input_schema}} for planner
// consumption.
func (r *Registry) Describe() map[string]Spec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Spec, len(r.tools))
	for name, t := range r.tools {
		out[name] = Spec{Description: t.Description(), InputSchema: t.Schema()}
	}
	return out
}

// ValidateAndExecute coerces defaults into args, validates them against the
// tool's input schema, and dispatches. Validation failures come back as
// "Invalid input: …" results; tool errors and panics as "Execution failed: …".
// Only an unknown tool name is reported as a Go error.
func (r *Registry) ValidateAndExecute(ctx context.Context, name string, args map[string]any) (*Result, error) {
	r.mu.RLock()
	tool, ok := r.tools[name]
	schema := r.compiled[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}

	merged, err := applyDefaults(tool.Schema(), args)
	if err != nil {
		return Fail("Invalid input: %v", err), nil
	}

	// jsonschema validates generic JSON values, so round-trip the args.
	raw, err := json.Marshal(merged)
	if err != nil {
		return Fail("Invalid input: %v", err), nil
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return Fail("Invalid input: %v", err), nil
	}
	if err := schema.Validate(decoded); err != nil {
		return Fail("Invalid input: %v", err), nil
	}

	result, err := safeExecute(ctx, tool, raw)
	if err != nil {
		return Fail("Execution failed: %v", err), nil
	}
	return result, nil
}

// safeExecute converts a panicking tool into an error.
func safeExecute(ctx context.Context, tool Tool, params json.RawMessage) (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", tool.Name(), r)
		}
	}()
	return tool.Execute(ctx, params)
}

// applyDefaults fills missing argument keys from the schema's top-level
// property defaults. The original args map is not modified.
func applyDefaults(schema json.RawMessage, args map[string]any) (map[string]any, error) {
	var parsed struct {
		Properties map[string]struct {
			Default any `json:"default"`
		} `json:"properties"`
	}
	if err := json.Unmarshal(schema, &parsed); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}

	merged := make(map[string]any, len(args)+len(parsed.Properties))
	for k, v := range args {
		merged[k] = v
	}
	for key, prop := range parsed.Properties {
		if _, present := merged[key]; !present && prop.Default != nil {
			merged[key] = prop.Default
		}
	}
	return merged, nil
}
