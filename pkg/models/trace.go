package models

import "time"

// TraceStatus is the lifecycle of an execution trace.
type TraceStatus string

const (
	TracePending   TraceStatus = "pending"
	TraceRunning   TraceStatus = "running"
	TraceCompleted TraceStatus = "completed"
	TraceFailed    TraceStatus = "failed"
)

// Terminal reports whether the trace can no longer change.
func (s TraceStatus) Terminal() bool {
	return s == TraceCompleted || s == TraceFailed
}

// StepSummary is one executed-step record on a trace.
type StepSummary struct {
	StepID     string    `json:"step_id"`
	ToolName   string    `json:"tool_name"`
	Success    bool      `json:"success"`
	DurationMS int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

// TraceError is a structured error recorded during execution.
type TraceError struct {
	StepID  string `json:"step_id,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message"`
}

// ExecutionTrace is the authoritative, append-only record of what happened
// while executing a task. The state manager is its sole mutator.
type ExecutionTrace struct {
	TaskID      string        `json:"task_id"`
	AgentID     string        `json:"agent_id,omitempty"`
	Status      TraceStatus   `json:"status"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt time.Time     `json:"completed_at,omitzero"`
	Steps       []StepSummary `json:"steps,omitempty"`
	Errors      []TraceError  `json:"errors,omitempty"`
	Result      any           `json:"result,omitempty"`
}
