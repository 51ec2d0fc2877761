// Package pipeline drives a task through plan, confirm, execute, and verify.
// Every user-facing surface (CLI, HTTP, chat) submits through here so the
// confirmation gate cannot be bypassed.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dexos/dex/internal/bus"
	"github.com/dexos/dex/internal/observability"
	"github.com/dexos/dex/internal/risk"
	"github.com/dexos/dex/pkg/models"
)

// DefaultTimeout bounds one full plan-execute-verify round trip.
const DefaultTimeout = 300 * time.Second

// ErrPlanningFailed wraps the planner's failure reply.
var ErrPlanningFailed = errors.New("pipeline: planning failed")

// ConfirmFunc decides whether a risky plan may run. Returning false cancels
// the task without error.
type ConfirmFunc func(ctx context.Context, plan *models.ExecutionPlan, assessment *models.RiskAssessment) (bool, error)

// Result is the outcome of one submission.
type Result struct {
	Task       *models.TaskDefinition
	Plan       *models.ExecutionPlan
	Assessment *models.RiskAssessment

	// Cancelled is set when confirmation was required and declined.
	Cancelled bool

	Verified        bool
	Issues          []string
	Recommendations []string
	Results         map[string]*models.ExecutionResult
	Trace           *models.ExecutionTrace
}

// Pipeline submits tasks over the bus and waits for the verifier's verdict.
type Pipeline struct {
	bus     *bus.Bus
	risk    *risk.Engine
	logger  *observability.Logger
	timeout time.Duration
	sender  string
}

// Config wires a pipeline.
type Config struct {
	Bus     *bus.Bus
	Risk    *risk.Engine
	Logger  *observability.Logger
	Timeout time.Duration
	// Sender identifies the submitting surface in message envelopes.
	Sender string
}

// New creates a pipeline.
func New(cfg Config) *Pipeline {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	sender := cfg.Sender
	if sender == "" {
		sender = "pipeline"
	}
	return &Pipeline{
		bus:     cfg.Bus,
		risk:    cfg.Risk,
		logger:  cfg.Logger,
		timeout: timeout,
		sender:  sender,
	}
}

// Plan requests a plan for the task and returns it with its assessment,
// without executing anything.
func (p *Pipeline) Plan(ctx context.Context, task *models.TaskDefinition) (*models.ExecutionPlan, *models.RiskAssessment, error) {
	req := models.NewMessage(models.MessagePlanRequest, p.sender, "planner", map[string]any{
		"task": task,
	})
	resp, err := p.bus.RequestResponse(ctx, req, p.timeout)
	if err != nil {
		return nil, nil, fmt.Errorf("plan request: %w", err)
	}
	if resp.Type == models.MessageRequestFailed {
		errText, _ := resp.Payload["error"].(string)
		return nil, nil, fmt.Errorf("%w: %s", ErrPlanningFailed, errText)
	}

	plan, err := decodePlan(resp.Payload["plan"])
	if err != nil {
		return nil, nil, fmt.Errorf("plan response: %w", err)
	}
	assessment := plan.Risk()
	if assessment == nil {
		assessment = p.risk.Assess(plan)
	}
	return plan, assessment, nil
}

// RequiresConfirmation applies the active risk mode to an assessment.
func (p *Pipeline) RequiresConfirmation(assessment *models.RiskAssessment) bool {
	return p.risk.RequiresConfirmation(assessment)
}

// Execute publishes the plan for execution and waits for the verifier's
// broadcast verdict.
func (p *Pipeline) Execute(ctx context.Context, task *models.TaskDefinition, plan *models.ExecutionPlan) (*Result, error) {
	req := models.NewMessage(models.MessageExecuteRequest, p.sender, "executor", map[string]any{
		"plan":    plan,
		"task_id": task.ID,
	})
	resp, err := p.bus.RequestResponse(ctx, req, p.timeout)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	if resp.Type != models.MessageVerifyResponse {
		return nil, fmt.Errorf("unexpected response type %s", resp.Type)
	}

	result := &Result{
		Task:       task,
		Plan:       plan,
		Assessment: plan.Risk(),
	}
	result.Verified, _ = resp.Payload["verified"].(bool)
	result.Issues = stringSlice(resp.Payload["issues"])
	result.Recommendations = stringSlice(resp.Payload["recommendations"])
	if results, err := decodeResults(resp.Payload["results"]); err == nil {
		result.Results = results
	}
	if trace, err := decodeTrace(resp.Payload["execution_trace"]); err == nil {
		result.Trace = trace
	}
	return result, nil
}

// Submit runs the full flow: plan, gate on confirmation, execute, verify.
// A nil confirm func declines every confirmation request.
func (p *Pipeline) Submit(ctx context.Context, task *models.TaskDefinition, confirm ConfirmFunc) (*Result, error) {
	plan, assessment, err := p.Plan(ctx, task)
	if err != nil {
		return nil, err
	}

	if p.risk.RequiresConfirmation(assessment) {
		approved := false
		if confirm != nil {
			approved, err = confirm(ctx, plan, assessment)
			if err != nil {
				return nil, fmt.Errorf("confirmation: %w", err)
			}
		}
		if !approved {
			p.logger.Info(ctx, "task cancelled at confirmation gate",
				"task_id", task.ID, "risk_level", string(assessment.Level))
			return &Result{Task: task, Plan: plan, Assessment: assessment, Cancelled: true}, nil
		}
	}

	return p.Execute(ctx, task, plan)
}

func decodePlan(raw any) (*models.ExecutionPlan, error) {
	if plan, ok := raw.(*models.ExecutionPlan); ok {
		return plan, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var plan models.ExecutionPlan
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, err
	}
	if len(plan.Steps) == 0 {
		return nil, errors.New("plan has no steps")
	}
	return &plan, nil
}

func decodeResults(raw any) (map[string]*models.ExecutionResult, error) {
	if results, ok := raw.(map[string]*models.ExecutionResult); ok {
		return results, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var results map[string]*models.ExecutionResult
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, err
	}
	return results, nil
}

func decodeTrace(raw any) (*models.ExecutionTrace, error) {
	if trace, ok := raw.(*models.ExecutionTrace); ok {
		return trace, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var trace models.ExecutionTrace
	if err := json.Unmarshal(data, &trace); err != nil {
		return nil, err
	}
	return &trace, nil
}

func stringSlice(raw any) []string {
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
