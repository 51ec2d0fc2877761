package state

import (
	"errors"
	"testing"

	"github.com/dexos/dex/pkg/models"
)

func TestManager_RegisterAndComplete(t *testing.T) {
	m := NewManager()

	trace, err := m.RegisterTask("task-1", "executor")
	if err != nil {
		t.Fatal(err)
	}
	if trace.Status != models.TraceRunning {
		t.Errorf("Status = %v, want running", trace.Status)
	}
	if trace.StartedAt.IsZero() {
		t.Error("StartedAt not set")
	}

	if _, err := m.RegisterTask("task-1", "executor"); err == nil {
		t.Error("double registration accepted")
	}

	if err := m.MarkTaskComplete("task-1", models.TraceCompleted, map[string]any{"ok": true}); err != nil {
		t.Fatal(err)
	}
	got, err := m.GetExecutionState("task-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.TraceCompleted {
		t.Errorf("Status = %v, want completed", got.Status)
	}
	if got.CompletedAt.IsZero() {
		t.Error("CompletedAt not set")
	}
}

func TestManager_ActiveTracksNonTerminal(t *testing.T) {
	m := NewManager()
	if _, err := m.RegisterTask("a", "executor"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.RegisterTask("b", "executor"); err != nil {
		t.Fatal(err)
	}

	if got := m.GetActiveTasks(); len(got) != 2 {
		t.Fatalf("active = %v, want 2 tasks", got)
	}

	if err := m.MarkTaskComplete("a", models.TraceFailed, nil); err != nil {
		t.Fatal(err)
	}
	got := m.GetActiveTasks()
	if len(got) != 1 || got[0] != "b" {
		t.Errorf("active = %v, want [b]", got)
	}
}

func TestManager_RecordStepAndError(t *testing.T) {
	m := NewManager()
	if _, err := m.RegisterTask("task-1", "executor"); err != nil {
		t.Fatal(err)
	}

	if err := m.RecordStep("task-1", models.StepSummary{StepID: "s1", ToolName: "note_list", Success: true}); err != nil {
		t.Fatal(err)
	}
	if err := m.RecordError("task-1", models.TraceError{StepID: "s2", Kind: string(models.ErrToolFailure), Message: "boom"}); err != nil {
		t.Fatal(err)
	}

	trace, err := m.GetExecutionState("task-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(trace.Steps) != 1 || trace.Steps[0].StepID != "s1" {
		t.Errorf("Steps = %v", trace.Steps)
	}
	if len(trace.Errors) != 1 || trace.Errors[0].Message != "boom" {
		t.Errorf("Errors = %v", trace.Errors)
	}

	// Records on a finished task are rejected.
	if err := m.MarkTaskComplete("task-1", models.TraceCompleted, nil); err != nil {
		t.Fatal(err)
	}
	if err := m.RecordStep("task-1", models.StepSummary{StepID: "s3"}); err == nil {
		t.Error("RecordStep accepted on a terminal trace")
	}
}

func TestManager_UnknownTask(t *testing.T) {
	m := NewManager()
	if _, err := m.GetExecutionState("nope"); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("err = %v, want ErrTaskNotFound", err)
	}
	if err := m.MarkTaskComplete("nope", models.TraceCompleted, nil); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("err = %v, want ErrTaskNotFound", err)
	}
}

func TestManager_SnapshotIsolation(t *testing.T) {
	m := NewManager()
	if _, err := m.RegisterTask("task-1", "executor"); err != nil {
		t.Fatal(err)
	}
	if err := m.RecordStep("task-1", models.StepSummary{StepID: "s1"}); err != nil {
		t.Fatal(err)
	}

	snap, err := m.GetExecutionState("task-1")
	if err != nil {
		t.Fatal(err)
	}
	snap.Steps[0].StepID = "mutated"
	snap.Status = models.TraceFailed

	fresh, err := m.GetExecutionState("task-1")
	if err != nil {
		t.Fatal(err)
	}
	if fresh.Steps[0].StepID != "s1" || fresh.Status != models.TraceRunning {
		t.Error("snapshot mutation leaked into manager state")
	}
}
