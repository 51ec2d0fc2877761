package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// PlanStep is a single tool invocation within an ExecutionPlan. Order is
// 1-indexed; DependsOn may only reference steps earlier in the plan.
type PlanStep struct {
	ID          string         `json:"id"`
	Order       int            `json:"order"`
	Description string         `json:"description"`
	ToolName    string         `json:"tool_name"`
	ToolArgs    map[string]any `json:"tool_args,omitempty"`
	DependsOn   []string       `json:"depends_on,omitempty"`
}

// Metadata key carrying the plan's RiskAssessment once finalized.
const PlanMetaRiskScore = "risk_score"

// ExecutionPlan is an ordered sequence of steps that should satisfy a task.
// Plans become immutable once published on the bus.
type ExecutionPlan struct {
	ID         string         `json:"id"`
	TaskID     string         `json:"task_id"`
	Steps      []PlanStep     `json:"steps"`
	Reasoning  string         `json:"reasoning,omitempty"`
	Confidence float64        `json:"confidence"`
	CreatedBy  string         `json:"created_by"`
	CreatedAt  time.Time      `json:"created_at"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// NewPlan builds an empty plan owned by the given task.
func NewPlan(taskID, createdBy string) *ExecutionPlan {
	return &ExecutionPlan{
		ID:        uuid.NewString(),
		TaskID:    taskID,
		CreatedBy: createdBy,
		CreatedAt: time.Now().UTC(),
		Metadata:  map[string]any{},
	}
}

// Risk returns the attached RiskAssessment, or nil when the plan has not
// been scored yet. Handles both in-process and JSON-decoded metadata.
func (p *ExecutionPlan) Risk() *RiskAssessment {
	if p.Metadata == nil {
		return nil
	}
	switch v := p.Metadata[PlanMetaRiskScore].(type) {
	case *RiskAssessment:
		return v
	case RiskAssessment:
		return &v
	case map[string]any:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil
		}
		var r RiskAssessment
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil
		}
		return &r
	}
	return nil
}

// ToolNames returns the distinct tools the plan invokes, in step order.
func (p *ExecutionPlan) ToolNames() []string {
	seen := map[string]bool{}
	var names []string
	for _, s := range p.Steps {
		if !seen[s.ToolName] {
			seen[s.ToolName] = true
			names = append(names, s.ToolName)
		}
	}
	return names
}

// ExecutionResult records the outcome of one dispatched step.
type ExecutionResult struct {
	StepID     string    `json:"step_id"`
	Success    bool      `json:"success"`
	Output     any       `json:"output,omitempty"`
	Error      string    `json:"error,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

// VerificationResult is the verifier's aggregate verdict over a trace.
type VerificationResult struct {
	PlanID          string    `json:"plan_id"`
	TaskID          string    `json:"task_id"`
	Verified        bool      `json:"verified"`
	Issues          []string  `json:"issues,omitempty"`
	Recommendations []string  `json:"recommendations,omitempty"`
	VerifiedBy      string    `json:"verified_by"`
	Timestamp       time.Time `json:"timestamp"`
}
