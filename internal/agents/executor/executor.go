// Package executor carries out execution plans step by step, dispatching to
// the tool registry, recording a trace, and handing results to the verifier.
package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dexos/dex/internal/bus"
	"github.com/dexos/dex/internal/observability"
	"github.com/dexos/dex/internal/state"
	"github.com/dexos/dex/internal/tools"
	"github.com/dexos/dex/pkg/models"
)

const agentID = "executor"

// defaultRetries bounds re-dispatch of a failed tool call.
const defaultRetries = 3

// Agent subscribes to execute requests and runs plans.
type Agent struct {
	bus       *bus.Bus
	registry  *tools.Registry
	state     *state.Manager
	telemetry *observability.Telemetry
	logger    *observability.Logger
	retries   int
}

// Config wires the executor's collaborators.
type Config struct {
	Bus       *bus.Bus
	Registry  *tools.Registry
	State     *state.Manager
	Telemetry *observability.Telemetry
	Logger    *observability.Logger
	// Retries caps re-dispatch attempts per failed step; negative disables
	// retrying, zero picks the default.
	Retries int
}

// New creates the executor agent.
func New(cfg Config) *Agent {
	retries := cfg.Retries
	if retries == 0 {
		retries = defaultRetries
	}
	if retries < 0 {
		retries = 0
	}
	return &Agent{
		bus:       cfg.Bus,
		registry:  cfg.Registry,
		state:     cfg.State,
		telemetry: cfg.Telemetry,
		logger:    cfg.Logger,
		retries:   retries,
	}
}

// Register subscribes the agent on the bus.
func (a *Agent) Register() {
	a.bus.Subscribe(bus.MessageKey(models.MessageExecuteRequest), a.HandleMessage)
}

// HandleMessage executes one plan: register the task, run steps in listed
// order gated on successful dependencies, then request verification.
func (a *Agent) HandleMessage(ctx context.Context, msg *models.Message) {
	started := time.Now()

	plan, taskID, err := planFromPayload(msg.Payload)
	if err != nil {
		a.logger.Error(ctx, "invalid execute request", "error", err)
		return
	}

	if _, err := a.state.RegisterTask(taskID, agentID); err != nil {
		a.logger.Error(ctx, "failed to register task", "task_id", taskID, "error", err)
		return
	}
	a.logger.Info(ctx, "executing plan", "plan_id", plan.ID, "task_id", taskID, "steps", len(plan.Steps))

	results := make(map[string]*models.ExecutionResult, len(plan.Steps))
	for _, step := range plan.Steps {
		if unmet := unmetDependencies(step, results); len(unmet) > 0 {
			a.logger.Warn(ctx, "skipping step with unmet dependencies",
				"step_id", step.ID, "unmet", unmet)
			if err := a.state.RecordError(taskID, models.TraceError{
				StepID:  step.ID,
				Kind:    string(models.ErrDependencyUnmet),
				Message: fmt.Sprintf("unmet dependencies: %s", strings.Join(unmet, ", ")),
			}); err != nil {
				a.logger.Error(ctx, "failed to record error", "task_id", taskID, "error", err)
			}
			continue
		}

		result := a.executeStep(ctx, taskID, step)
		results[step.ID] = result

		if a.telemetry != nil {
			a.telemetry.RecordToolCall(step.ToolName, result.Success, taskID)
		}
		if err := a.state.RecordStep(taskID, models.StepSummary{
			StepID:     step.ID,
			ToolName:   step.ToolName,
			Success:    result.Success,
			DurationMS: result.DurationMS,
			Timestamp:  result.Timestamp,
		}); err != nil {
			a.logger.Error(ctx, "failed to record step", "task_id", taskID, "error", err)
		}

		if !result.Success {
			a.logger.Error(ctx, "step failed", "step_id", step.ID, "error", result.Error)
			if err := a.state.RecordError(taskID, models.TraceError{
				StepID:  step.ID,
				Kind:    string(models.ErrToolFailure),
				Message: result.Error,
			}); err != nil {
				a.logger.Error(ctx, "failed to record error", "task_id", taskID, "error", err)
			}
		}
	}

	if a.telemetry != nil {
		a.telemetry.RecordLatency(agentID, time.Since(started), taskID)
	}

	if err := a.state.MarkTaskComplete(taskID, models.TraceCompleted, map[string]any{
		"plan_id": plan.ID,
		"results": results,
	}); err != nil {
		a.logger.Error(ctx, "failed to complete task", "task_id", taskID, "error", err)
	}

	trace, err := a.state.GetExecutionState(taskID)
	if err != nil {
		a.logger.Error(ctx, "failed to read trace", "task_id", taskID, "error", err)
		return
	}

	// The submitter's correlation ID rides in the payload, not the envelope:
	// a correlated VERIFY_REQUEST would satisfy the submitter's pending wait
	// before the verdict exists.
	verify := models.NewMessage(models.MessageVerifyRequest, agentID, "verifier", map[string]any{
		"plan_id":         plan.ID,
		"task_id":         taskID,
		"results":         results,
		"execution_trace": trace,
		"correlation_id":  msg.CorrelationID,
	})
	verify.ParentID = msg.ID
	if err := a.bus.Publish(ctx, verify); err != nil {
		a.logger.Error(ctx, "failed to publish verify request", "task_id", taskID, "error", err)
	}
}

// executeStep dispatches one step, retrying failed tool calls. Validation
// failures are not retried; the same input cannot start passing.
func (a *Agent) executeStep(ctx context.Context, taskID string, step models.PlanStep) *models.ExecutionResult {
	started := time.Now()

	var result *tools.Result
	for attempt := 0; ; attempt++ {
		res, err := a.registry.ValidateAndExecute(ctx, step.ToolName, step.ToolArgs)
		if err != nil {
			if errors.Is(err, tools.ErrToolNotFound) {
				return stepResult(step.ID, started, false, nil, fmt.Sprintf("Tool '%s' not found", step.ToolName))
			}
			return stepResult(step.ID, started, false, nil, err.Error())
		}
		result = res
		if res.Success || !retryable(res.Error) || attempt >= a.retries {
			break
		}
		a.logger.Warn(ctx, "retrying failed step",
			"task_id", taskID, "step_id", step.ID, "attempt", attempt+1, "error", res.Error)
	}

	return stepResult(step.ID, started, result.Success, result.Data, result.Error)
}

// retryable reports whether a tool failure is worth re-dispatching. Input
// validation errors are deterministic.
func retryable(errText string) bool {
	return !strings.HasPrefix(errText, "Invalid input:")
}

func stepResult(stepID string, started time.Time, success bool, output any, errText string) *models.ExecutionResult {
	return &models.ExecutionResult{
		StepID:     stepID,
		Success:    success,
		Output:     output,
		Error:      errText,
		DurationMS: time.Since(started).Milliseconds(),
		Timestamp:  time.Now().UTC(),
	}
}

// unmetDependencies lists dependencies without a prior successful result.
func unmetDependencies(step models.PlanStep, results map[string]*models.ExecutionResult) []string {
	var unmet []string
	for _, dep := range step.DependsOn {
		if r, ok := results[dep]; !ok || !r.Success {
			unmet = append(unmet, dep)
		}
	}
	return unmet
}

// planFromPayload decodes payload["plan"] and payload["task_id"].
func planFromPayload(payload map[string]any) (*models.ExecutionPlan, string, error) {
	rawPlan, ok := payload["plan"]
	if !ok || rawPlan == nil {
		return nil, "", fmt.Errorf("no plan in message")
	}
	taskID, _ := payload["task_id"].(string)

	data, err := json.Marshal(rawPlan)
	if err != nil {
		return nil, "", fmt.Errorf("invalid plan payload: %w", err)
	}
	var plan models.ExecutionPlan
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, "", fmt.Errorf("invalid plan payload: %w", err)
	}
	if taskID == "" {
		taskID = plan.TaskID
	}
	if taskID == "" {
		return nil, "", fmt.Errorf("no task_id in message")
	}
	return &plan, taskID, nil
}
