// Package risk classifies plans by the tools they invoke and decides when
// human confirmation is required before execution.
package risk

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dexos/dex/pkg/models"
)

// Per-step scores by tool name. Plan score is the max over its steps.
const (
	scoreHigh   = 0.9
	scoreMedium = 0.5
	scoreLow    = 0.1
)

// Level thresholds.
const (
	thresholdHigh   = 0.8
	thresholdMedium = 0.4
)

// mediumTools mutate local state but cannot run arbitrary code.
var mediumTools = map[string]bool{
	"file_write":   true,
	"note_create":  true,
	"reminder_set": true,
	"app_launch":   true,
}

// StepScore returns the risk score for a single tool invocation.
func StepScore(toolName string) float64 {
	switch {
	case toolName == "shell_command":
		return scoreHigh
	case mediumTools[toolName]:
		return scoreMedium
	default:
		return scoreLow
	}
}

// LevelForScore derives the risk level from a score.
func LevelForScore(score float64) models.RiskLevel {
	switch {
	case score >= thresholdHigh:
		return models.RiskHigh
	case score >= thresholdMedium:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

// Engine scores plans and applies the confirmation policy. The mode is
// runtime-switchable (the chat surface exposes a mode command).
type Engine struct {
	mu   sync.RWMutex
	mode models.RiskMode
}

// NewEngine creates an engine in the given mode; an invalid mode falls back
// to balanced.
func NewEngine(mode models.RiskMode) *Engine {
	if !mode.Valid() {
		mode = models.RiskModeBalanced
	}
	return &Engine{mode: mode}
}

// Mode returns the active confirmation mode.
func (e *Engine) Mode() models.RiskMode {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.mode
}

// SetMode switches the confirmation policy.
func (e *Engine) SetMode(mode models.RiskMode) error {
	if !mode.Valid() {
		return fmt.Errorf("risk: invalid mode %q", mode)
	}
	e.mu.Lock()
	e.mode = mode
	e.mu.Unlock()
	return nil
}

// Assess scores a plan: max step score, level by threshold, with a
// reasoning line naming the riskiest tools.
func (e *Engine) Assess(plan *models.ExecutionPlan) *models.RiskAssessment {
	score := 0.0
	byTool := map[string]float64{}
	for _, step := range plan.Steps {
		s := StepScore(step.ToolName)
		byTool[step.ToolName] = s
		if s > score {
			score = s
		}
	}
	level := LevelForScore(score)

	var riskiest []string
	for tool, s := range byTool {
		if s >= score && score > scoreLow {
			riskiest = append(riskiest, tool)
		}
	}
	sort.Strings(riskiest)

	reasoning := "All steps use read-only or conversational tools"
	if len(riskiest) > 0 {
		reasoning = fmt.Sprintf("Plan invokes %s (%s risk)", strings.Join(riskiest, ", "), level)
	}

	var mitigations []string
	if level == models.RiskHigh {
		mitigations = append(mitigations, "Review the exact command before confirming")
	}
	if level != models.RiskLow {
		mitigations = append(mitigations, "Execution records a full trace for review")
	}

	return &models.RiskAssessment{
		Level:       level,
		Score:       score,
		Reasoning:   reasoning,
		Mitigations: mitigations,
	}
}

// RequiresConfirmation applies the active mode's policy to an assessment.
func (e *Engine) RequiresConfirmation(assessment *models.RiskAssessment) bool {
	if assessment == nil {
		return false
	}
	switch e.Mode() {
	case models.RiskModeStrict:
		return assessment.Level != models.RiskLow
	case models.RiskModePermissive:
		return assessment.Level == models.RiskHigh && assessment.Score > 0.95
	default:
		return assessment.Level == models.RiskHigh
	}
}
