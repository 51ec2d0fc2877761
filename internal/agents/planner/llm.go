package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"sort"
	"strings"

	"github.com/dexos/dex/pkg/models"
	"github.com/google/uuid"
)

const planningSystemPrompt = "You are Dex, a high-performance personal AI operator. " +
	"Decompose the user's request into a deterministic execution plan. " +
	"Only use the tools provided, with arguments matching each tool's input schema. " +
	"Respond with JSON only."

// modelPlanOutput is the JSON shape the model is asked to produce.
type modelPlanOutput struct {
	Steps []struct {
		Description string         `json:"description"`
		ToolName    string         `json:"tool_name"`
		ToolArgs    map[string]any `json:"tool_args"`
	} `json:"steps"`
	Reasoning  string  `json:"reasoning"`
	Confidence float64 `json:"confidence"`
}

// planWithModel asks the configured backend for a plan, enriching the prompt
// with the three most relevant memories and the session context.
func (a *Agent) planWithModel(ctx context.Context, task *models.TaskDefinition) (*models.ExecutionPlan, error) {
	prompt := a.buildPrompt(ctx, task)

	raw, err := a.client.Complete(ctx, planningSystemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("model completion: %w", err)
	}

	var out modelPlanOutput
	if err := json.Unmarshal([]byte(stripCodeFences(raw)), &out); err != nil {
		return nil, fmt.Errorf("parse model plan: %w", err)
	}
	if len(out.Steps) == 0 {
		return nil, fmt.Errorf("model returned a plan with no steps")
	}

	plan := models.NewPlan(task.ID, agentID+"-"+a.client.Name())
	for i, s := range out.Steps {
		if s.ToolName == "" {
			return nil, fmt.Errorf("model step %d has no tool name", i+1)
		}
		description := s.Description
		if description == "" {
			description = fmt.Sprintf("Step %d", i+1)
		}
		plan.Steps = append(plan.Steps, models.PlanStep{
			ID:          uuid.NewString(),
			Order:       i + 1,
			Description: description,
			ToolName:    s.ToolName,
			ToolArgs:    s.ToolArgs,
		})
	}
	plan.Reasoning = out.Reasoning
	plan.Confidence = clampConfidence(out.Confidence)
	return plan, nil
}

func (a *Agent) buildPrompt(ctx context.Context, task *models.TaskDefinition) string {
	var b strings.Builder

	cwd, _ := os.Getwd()
	fmt.Fprintf(&b, "SYSTEM ENVIRONMENT:\n- OS: %s\n- Working directory: %s\n\n", runtime.GOOS, cwd)

	memories := "No prior context found."
	if a.memory != nil {
		if entries, err := a.memory.SearchSemantic(ctx, task.UserRequest, 3); err == nil && len(entries) > 0 {
			var lines []string
			for _, e := range entries {
				lines = append(lines, "- "+e.Content)
			}
			memories = strings.Join(lines, "\n")
		}
	}
	fmt.Fprintf(&b, "RELEVANT CONTEXT FROM MEMORY:\n%s\n\n", memories)

	session := map[string]string{}
	if a.memory != nil {
		if all, err := a.memory.AllContext(ctx); err == nil {
			session = all
		}
	}
	sessionJSON, _ := json.MarshalIndent(session, "", "  ")
	fmt.Fprintf(&b, "CURRENT SESSION STATE:\n%s\n\n", sessionJSON)

	fmt.Fprintf(&b, "USER REQUEST: %q\n\n", task.UserRequest)

	b.WriteString("AVAILABLE TOOLS:\n")
	specs := a.registry.Describe()
	names := make([]string, 0, len(specs))
	for name := range specs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, "- %s: %s\n  schema: %s\n", name, specs[name].Description, specs[name].InputSchema)
	}

	b.WriteString(`
RESPONSE FORMAT (JSON):
{
  "steps": [
    {"description": "Human readable description", "tool_name": "tool_name", "tool_args": {"arg": "value"}}
  ],
  "reasoning": "Why this approach was taken",
  "confidence": 0.95
}
`)
	return b.String()
}

// stripCodeFences unwraps a ```json ... ``` block if the model added one.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func clampConfidence(c float64) float64 {
	if c < 0.5 {
		return 0.5
	}
	if c > 0.95 {
		return 0.95
	}
	return c
}
