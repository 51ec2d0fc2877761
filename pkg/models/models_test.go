package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestMessageStatus_Terminal(t *testing.T) {
	tests := []struct {
		status   MessageStatus
		terminal bool
	}{
		{StatusSent, false},
		{StatusDelivered, false},
		{StatusProcessing, false},
		{StatusCompleted, true},
		{StatusFailed, true},
		{StatusTimeout, true},
		{StatusCancelled, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.Terminal(); got != tt.terminal {
				t.Errorf("Terminal() = %v, want %v", got, tt.terminal)
			}
		})
	}
}

func TestMessage_Reply(t *testing.T) {
	req := NewMessage(MessagePlanRequest, "cli", "planner", map[string]any{"k": "v"})

	t.Run("correlates to request ID", func(t *testing.T) {
		resp := req.Reply(MessagePlanResponse, "planner", nil)
		if resp.CorrelationID != req.ID {
			t.Errorf("CorrelationID = %q, want %q", resp.CorrelationID, req.ID)
		}
		if resp.Recipient != "cli" {
			t.Errorf("Recipient = %q, want cli", resp.Recipient)
		}
		if resp.ParentID != req.ID {
			t.Errorf("ParentID = %q, want %q", resp.ParentID, req.ID)
		}
	})

	t.Run("preserves existing correlation", func(t *testing.T) {
		req2 := NewMessage(MessagePlanRequest, "cli", "planner", nil)
		req2.CorrelationID = "corr-1"
		resp := req2.Reply(MessagePlanResponse, "planner", nil)
		if resp.CorrelationID != "corr-1" {
			t.Errorf("CorrelationID = %q, want corr-1", resp.CorrelationID)
		}
	})
}

func TestExecutionPlan_Risk(t *testing.T) {
	plan := NewPlan("task-1", "planner")

	if plan.Risk() != nil {
		t.Fatal("expected nil risk on unscored plan")
	}

	plan.Metadata[PlanMetaRiskScore] = &RiskAssessment{Level: RiskHigh, Score: 0.9}
	if r := plan.Risk(); r == nil || r.Level != RiskHigh {
		t.Fatalf("Risk() = %+v, want high", r)
	}

	// After a JSON round trip metadata holds a plain map.
	raw, err := json.Marshal(plan)
	if err != nil {
		t.Fatal(err)
	}
	var decoded ExecutionPlan
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatal(err)
	}
	r := decoded.Risk()
	if r == nil {
		t.Fatal("Risk() = nil after round trip")
	}
	if r.Level != RiskHigh || r.Score != 0.9 {
		t.Errorf("Risk() = %+v, want level high score 0.9", r)
	}
}

func TestReminder_Due(t *testing.T) {
	now := time.Now().UTC()
	tests := []struct {
		name     string
		reminder *Reminder
		due      bool
	}{
		{"past and active", &Reminder{ScheduledTime: now.Add(-time.Second), IsActive: true}, true},
		{"exactly now", &Reminder{ScheduledTime: now, IsActive: true}, true},
		{"future", &Reminder{ScheduledTime: now.Add(time.Minute), IsActive: true}, false},
		{"past but inactive", &Reminder{ScheduledTime: now.Add(-time.Minute), IsActive: false}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.reminder.Due(now); got != tt.due {
				t.Errorf("Due() = %v, want %v", got, tt.due)
			}
		})
	}
}

func TestTaskDefinition_AllowedTools(t *testing.T) {
	task := NewTask("do a thing")
	if task.AllowedTools() != nil {
		t.Fatal("expected nil set when unconstrained")
	}

	task.Constraints[ConstraintToolsAllowed] = []any{"note_create", "note_list"}
	set := task.AllowedTools()
	if len(set) != 2 || !set["note_create"] || !set["note_list"] {
		t.Errorf("AllowedTools() = %v", set)
	}
}

func TestErrorKind_MessageType(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want MessageType
	}{
		{ErrInputInvalid, MessageRequestFailed},
		{ErrTimeout, MessageRequestFailed},
		{ErrBackendUnavailable, MessageRequestFailed},
		{ErrToolFailure, MessageRecoverableError},
		{ErrDependencyUnmet, MessageRecoverableError},
		{ErrPersistenceFailure, MessageRecoverableError},
		{ErrFatal, MessageCriticalError},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			if got := tt.kind.MessageType(); got != tt.want {
				t.Errorf("MessageType() = %v, want %v", got, tt.want)
			}
		})
	}
}
