// Package planner turns task requests into validated, risk-scored execution
// plans. A model backend is consulted first when configured; a deterministic
// rule-based router covers everything else.
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dexos/dex/internal/bus"
	"github.com/dexos/dex/internal/llm"
	"github.com/dexos/dex/internal/memory"
	"github.com/dexos/dex/internal/observability"
	"github.com/dexos/dex/internal/planning"
	"github.com/dexos/dex/internal/risk"
	"github.com/dexos/dex/internal/tools"
	"github.com/dexos/dex/pkg/models"
)

const agentID = "planner"

// Agent subscribes to plan requests and replies with plans or failures.
type Agent struct {
	bus       *bus.Bus
	registry  *tools.Registry
	risk      *risk.Engine
	memory    *memory.Store // optional
	client    llm.Client    // optional
	telemetry *observability.Telemetry
	logger    *observability.Logger
	loc       *time.Location
}

// Config wires the planner's collaborators. Memory and Client may be nil;
// planning then runs purely rule-based without recall.
type Config struct {
	Bus       *bus.Bus
	Registry  *tools.Registry
	Risk      *risk.Engine
	Memory    *memory.Store
	Client    llm.Client
	Telemetry *observability.Telemetry
	Logger    *observability.Logger
	Location  *time.Location
}

// New creates the planner agent.
func New(cfg Config) *Agent {
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	return &Agent{
		bus:       cfg.Bus,
		registry:  cfg.Registry,
		risk:      cfg.Risk,
		memory:    cfg.Memory,
		client:    cfg.Client,
		telemetry: cfg.Telemetry,
		logger:    cfg.Logger,
		loc:       loc,
	}
}

// Register subscribes the agent on the bus.
func (a *Agent) Register() {
	a.bus.Subscribe(bus.MessageKey(models.MessagePlanRequest), a.HandleMessage)
}

// HandleMessage plans one task request and replies on the bus.
func (a *Agent) HandleMessage(ctx context.Context, msg *models.Message) {
	task, err := taskFromPayload(msg.Payload)
	if err != nil {
		a.failRequest(ctx, msg, "", err.Error())
		return
	}

	a.logger.Info(ctx, "planning task", "task_id", task.ID, "request", task.UserRequest)

	plan := a.generatePlan(ctx, task)
	if plan == nil {
		a.failRequest(ctx, msg, task.ID, "Failed to generate plan")
		return
	}

	if res := planning.Validate(plan); !res.Valid {
		a.failRequest(ctx, msg, task.ID, res.Err.Error())
		return
	} else if len(res.Warnings) > 0 {
		a.logger.Warn(ctx, "plan has ordering warnings", "task_id", task.ID, "warnings", res.Warnings)
	}

	assessment := a.risk.Assess(plan)
	plan.Metadata[models.PlanMetaRiskScore] = assessment
	if a.telemetry != nil {
		a.telemetry.RecordRisk(string(assessment.Level), assessment.Score, task.ID)
	}

	reply := msg.Reply(models.MessagePlanResponse, agentID, map[string]any{
		"plan":    plan,
		"task_id": task.ID,
	})
	if err := a.bus.Publish(ctx, reply); err != nil {
		a.logger.Error(ctx, "failed to publish plan response", "task_id", task.ID, "error", err)
		return
	}
	a.logger.Info(ctx, "plan generated",
		"task_id", task.ID,
		"steps", len(plan.Steps),
		"risk_level", string(assessment.Level))
}

// generatePlan tries the model backend, then falls back to the rule router.
func (a *Agent) generatePlan(ctx context.Context, task *models.TaskDefinition) *models.ExecutionPlan {
	if a.client != nil {
		plan, err := a.planWithModel(ctx, task)
		if err != nil {
			a.logger.Warn(ctx, "model planning failed, using rule-based fallback",
				"task_id", task.ID, "error", err)
		} else if plan != nil {
			return plan
		}
	}
	return a.planWithRules(task)
}

func (a *Agent) failRequest(ctx context.Context, msg *models.Message, taskID, errText string) {
	a.logger.Error(ctx, "planning failed", "task_id", taskID, "error", errText)
	reply := msg.Reply(models.MessageRequestFailed, agentID, map[string]any{
		"error":   errText,
		"task_id": taskID,
	})
	if err := a.bus.Publish(ctx, reply); err != nil {
		a.logger.Error(ctx, "failed to publish plan failure", "task_id", taskID, "error", err)
	}
}

// taskFromPayload decodes payload["task"] into a TaskDefinition.
func taskFromPayload(payload map[string]any) (*models.TaskDefinition, error) {
	raw, ok := payload["task"]
	if !ok || raw == nil {
		return nil, fmt.Errorf("No task in request")
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid task payload: %w", err)
	}
	var task models.TaskDefinition
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("invalid task payload: %w", err)
	}
	if task.UserRequest == "" {
		return nil, fmt.Errorf("task has no user request")
	}
	return &task, nil
}
