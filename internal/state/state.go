// Package state holds the authoritative record of active tasks and their
// execution traces. It is the only mutator of traces.
package state

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dexos/dex/pkg/models"
)

// ErrTaskNotFound is returned for operations on unknown task IDs.
var ErrTaskNotFound = errors.New("state: task not found")

// Manager is the single in-process authority over execution traces.
// Invariant: a task is active iff its trace status is not terminal.
type Manager struct {
	mu     sync.RWMutex
	traces map[string]*models.ExecutionTrace
}

// NewManager creates an empty state manager.
func NewManager() *Manager {
	return &Manager{traces: make(map[string]*models.ExecutionTrace)}
}

// RegisterTask creates a running trace for a task. Registering a task twice
// is an error; the first registration owns the trace.
func (m *Manager) RegisterTask(taskID, agentID string) (*models.ExecutionTrace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.traces[taskID]; exists {
		return nil, fmt.Errorf("state: task %s already registered", taskID)
	}
	trace := &models.ExecutionTrace{
		TaskID:    taskID,
		AgentID:   agentID,
		Status:    models.TraceRunning,
		StartedAt: time.Now().UTC(),
	}
	m.traces[taskID] = trace
	return m.snapshot(trace), nil
}

// RecordStep appends an executed-step summary to a running trace.
func (m *Manager) RecordStep(taskID string, step models.StepSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	trace, ok := m.traces[taskID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	if trace.Status.Terminal() {
		return fmt.Errorf("state: task %s already %s", taskID, trace.Status)
	}
	trace.Steps = append(trace.Steps, step)
	return nil
}

// RecordError appends a structured error to a running trace.
func (m *Manager) RecordError(taskID string, traceErr models.TraceError) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	trace, ok := m.traces[taskID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	if trace.Status.Terminal() {
		return fmt.Errorf("state: task %s already %s", taskID, trace.Status)
	}
	trace.Errors = append(trace.Errors, traceErr)
	return nil
}

// MarkTaskComplete finalizes a trace with the given status and result.
// Terminal traces are left untouched.
func (m *Manager) MarkTaskComplete(taskID string, status models.TraceStatus, result any) error {
	if !status.Terminal() {
		return fmt.Errorf("state: %s is not a terminal status", status)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	trace, ok := m.traces[taskID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	if trace.Status.Terminal() {
		return nil
	}
	trace.Status = status
	trace.Result = result
	trace.CompletedAt = time.Now().UTC()
	return nil
}

// GetExecutionState returns a copy of a task's trace.
func (m *Manager) GetExecutionState(taskID string) (*models.ExecutionTrace, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	trace, ok := m.traces[taskID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	return m.snapshot(trace), nil
}

// GetActiveTasks returns the IDs of tasks whose trace is not terminal,
// oldest first.
func (m *Manager) GetActiveTasks() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	type entry struct {
		id      string
		started time.Time
	}
	var active []entry
	for id, trace := range m.traces {
		if !trace.Status.Terminal() {
			active = append(active, entry{id: id, started: trace.StartedAt})
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].started.Before(active[j].started) })
	ids := make([]string, len(active))
	for i, e := range active {
		ids[i] = e.id
	}
	return ids
}

// snapshot copies a trace so callers cannot mutate manager-owned state.
// Caller holds at least a read lock.
func (m *Manager) snapshot(trace *models.ExecutionTrace) *models.ExecutionTrace {
	out := *trace
	out.Steps = append([]models.StepSummary(nil), trace.Steps...)
	out.Errors = append([]models.TraceError(nil), trace.Errors...)
	return &out
}
