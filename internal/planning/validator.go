// Package planning validates the structural soundness of execution plans:
// cycle detection, dependency resolution, and step ordering.
package planning

import (
	"errors"
	"fmt"

	"github.com/dexos/dex/pkg/models"
)

// ErrCircularDependencies is returned for any plan whose dependency graph
// contains a cycle.
var ErrCircularDependencies = errors.New("Plan has circular step dependencies")

// ValidationResult carries the outcome of plan validation. Warnings flag
// topologically valid but non-sequential orderings; they do not reject.
type ValidationResult struct {
	Valid    bool
	Err      error
	Warnings []string
}

// Validate rejects plans with zero steps, cyclic dependencies, dangling
// dependency references, or a step listed before one of its dependencies.
func Validate(plan *models.ExecutionPlan) ValidationResult {
	if plan == nil || len(plan.Steps) == 0 {
		return ValidationResult{Err: errors.New("Plan has no steps")}
	}

	position := make(map[string]int, len(plan.Steps))
	for i, step := range plan.Steps {
		if _, dup := position[step.ID]; dup {
			return ValidationResult{Err: fmt.Errorf("Plan has duplicate step ID %s", step.ID)}
		}
		position[step.ID] = i
	}

	if hasCycle(plan) {
		return ValidationResult{Err: ErrCircularDependencies}
	}

	for _, step := range plan.Steps {
		for _, dep := range step.DependsOn {
			depPos, ok := position[dep]
			if !ok {
				return ValidationResult{Err: fmt.Errorf("Step %s depends on unknown step %s", step.ID, dep)}
			}
			if depPos >= position[step.ID] {
				return ValidationResult{Err: fmt.Errorf("Step %s is listed before its dependency %s", step.ID, dep)}
			}
		}
	}

	var warnings []string
	for i, step := range plan.Steps {
		if step.Order != i+1 {
			warnings = append(warnings, fmt.Sprintf("Step %s has order %d at position %d", step.ID, step.Order, i+1))
		}
	}

	return ValidationResult{Valid: true, Warnings: warnings}
}

// hasCycle runs a depth-first search over depends_on edges with visited and
// on-stack sets.
func hasCycle(plan *models.ExecutionPlan) bool {
	deps := make(map[string][]string, len(plan.Steps))
	for _, step := range plan.Steps {
		deps[step.ID] = step.DependsOn
	}

	visited := make(map[string]bool, len(deps))
	onStack := make(map[string]bool, len(deps))

	var visit func(id string) bool
	visit = func(id string) bool {
		visited[id] = true
		onStack[id] = true
		for _, dep := range deps[id] {
			if onStack[dep] {
				return true
			}
			if !visited[dep] && visit(dep) {
				return true
			}
		}
		onStack[id] = false
		return false
	}

	for id := range deps {
		if !visited[id] && visit(id) {
			return true
		}
	}
	return false
}
