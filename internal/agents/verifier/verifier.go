// Package verifier inspects execution traces and renders a verdict on
// whether a task's plan actually succeeded.
package verifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dexos/dex/internal/bus"
	"github.com/dexos/dex/internal/observability"
	"github.com/dexos/dex/pkg/models"
)

const agentID = "verifier"

// Agent subscribes to verify requests and broadcasts verdicts.
type Agent struct {
	bus    *bus.Bus
	logger *observability.Logger
}

// Config wires the verifier's collaborators.
type Config struct {
	Bus    *bus.Bus
	Logger *observability.Logger
}

// New creates the verifier agent.
func New(cfg Config) *Agent {
	return &Agent{bus: cfg.Bus, logger: cfg.Logger}
}

// Register subscribes the agent on the bus.
func (a *Agent) Register() {
	a.bus.Subscribe(bus.MessageKey(models.MessageVerifyRequest), a.HandleMessage)
}

// HandleMessage verifies one execution and broadcasts the verdict along with
// the original results and trace so consumers can render tool outputs.
func (a *Agent) HandleMessage(ctx context.Context, msg *models.Message) {
	planID, _ := msg.Payload["plan_id"].(string)
	taskID, _ := msg.Payload["task_id"].(string)
	if planID == "" || taskID == "" {
		a.logger.Error(ctx, "verify request missing plan_id or task_id")
		return
	}

	trace, err := traceFromPayload(msg.Payload["execution_trace"])
	if err != nil {
		a.logger.Error(ctx, "invalid execution trace", "task_id", taskID, "error", err)
		return
	}

	verdict := Verify(planID, taskID, trace)

	if verdict.Verified {
		a.logger.Info(ctx, "task verified", "task_id", taskID)
	} else {
		a.logger.Warn(ctx, "task verification failed", "task_id", taskID, "issues", verdict.Issues)
	}

	response := models.NewMessage(models.MessageVerifyResponse, agentID, models.Broadcast, map[string]any{
		"plan_id":         planID,
		"task_id":         taskID,
		"verified":        verdict.Verified,
		"issues":          verdict.Issues,
		"recommendations": verdict.Recommendations,
		"results":         msg.Payload["results"],
		"execution_trace": msg.Payload["execution_trace"],
	})
	// Address the verdict at the original submitter's pending wait.
	corr, _ := msg.Payload["correlation_id"].(string)
	if corr == "" {
		corr = msg.CorrelationID
	}
	response.CorrelationID = corr
	response.ParentID = msg.ID
	if err := a.bus.Publish(ctx, response); err != nil {
		a.logger.Error(ctx, "failed to publish verify response", "task_id", taskID, "error", err)
	}
}

// Verify renders a verdict over an execution trace: verified only when at
// least one step ran, every step succeeded, and no errors were recorded.
func Verify(planID, taskID string, trace *models.ExecutionTrace) *models.VerificationResult {
	var issues, recommendations []string

	if len(trace.Steps) == 0 {
		issues = append(issues, "No steps were executed")
		recommendations = append(recommendations, "Review the execution plan for issues")
	}

	if len(trace.Errors) > 0 {
		issues = append(issues, fmt.Sprintf("Execution encountered %d error(s)", len(trace.Errors)))
		for _, e := range trace.Errors {
			issues = append(issues, fmt.Sprintf("  - Step %s: %s", e.StepID, e.Message))
		}
		recommendations = append(recommendations, "Review errors and retry failed steps")
	}

	allSuccessful := true
	for _, step := range trace.Steps {
		if !step.Success {
			allSuccessful = false
			break
		}
	}

	return &models.VerificationResult{
		PlanID:          planID,
		TaskID:          taskID,
		Verified:        len(issues) == 0 && allSuccessful,
		Issues:          issues,
		Recommendations: recommendations,
		VerifiedBy:      agentID,
		Timestamp:       time.Now().UTC(),
	}
}

func traceFromPayload(raw any) (*models.ExecutionTrace, error) {
	if raw == nil {
		return &models.ExecutionTrace{}, nil
	}
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
