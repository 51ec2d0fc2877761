package planner

import (
	"io"
	"testing"
	"time"

	"github.com/dexos/dex/internal/observability"
	"github.com/dexos/dex/internal/risk"
	"github.com/dexos/dex/pkg/models"
)

func testAgent(t *testing.T) *Agent {
	t.Helper()
	return New(Config{
		Risk:     risk.NewEngine(models.RiskModeBalanced),
		Logger:   observability.NewLogger(observability.LogConfig{Output: io.Discard}),
		Location: time.UTC,
	})
}

func TestPlanWithRules_Routing(t *testing.T) {
	a := testAgent(t)

	tests := []struct {
		name     string
		request  string
		wantTool string
	}{
		{"note create", "remember that the wifi password is hunter2", "note_create"},
		{"note list", "show me all my notes", "note_list"},
		{"reminder set", "remind me to stretch in 20 minutes", "reminder_set"},
		{"reminder list", "show my reminders", "reminder_list"},
		{"file read", "read the file config.yaml", "file_read"},
		{"file write", "write a file called journal.txt", "file_write"},
		{"list files", "what files are in /tmp", "shell_command"},
		{"app launch", "open spotify", "app_launch"},
		{"browser url", "open https://example.com/docs", "browser_open"},
		{"settings", "open the settings", "shell_command"},
		{"email", "send an email to alex", "email_compose"},
		{"generic", "tell me a joke", "generic_chat"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := a.planWithRules(models.NewTask(tt.request))
			if plan == nil || len(plan.Steps) == 0 {
				t.Fatal("no plan produced")
			}
			if got := plan.Steps[0].ToolName; got != tt.wantTool {
				t.Errorf("tool = %s, want %s", got, tt.wantTool)
			}
			if plan.Confidence < 0.5 || plan.Confidence > 0.95 {
				t.Errorf("confidence = %v, want within [0.5, 0.95]", plan.Confidence)
			}
		})
	}
}

func TestPlanWithRules_ReminderTimeExtraction(t *testing.T) {
	a := testAgent(t)

	tests := []struct {
		request  string
		wantTime string
	}{
		{"remind me to stretch in 20 minutes", "20m"},
		{"remind me to call mom in 2 hours", "2h"},
		{"remind me to renew the permit in 3 days", "3d"},
		{"remind me to take out the bins at 7:30pm", "7:30pm"},
		{"remind me to water the plants tomorrow", "tomorrow"},
		{"remind me about standup tomorrow at 9:15am", "tomorrow 9:15am"},
		{"remind me to breathe", "1m"},
	}
	for _, tt := range tests {
		t.Run(tt.request, func(t *testing.T) {
			plan := a.planWithRules(models.NewTask(tt.request))
			if got := plan.Steps[0].ToolArgs["time"]; got != tt.wantTime {
				t.Errorf("time = %v, want %v", got, tt.wantTime)
			}
		})
	}
}

func TestReminderMessageStripsSchedulingPhrases(t *testing.T) {
	a := testAgent(t)

	plan := a.planWithRules(models.NewTask("remind me to stretch in 20 minutes"))
	if got := plan.Steps[0].ToolArgs["message"]; got != "Stretch" {
		t.Errorf("message = %q, want %q", got, "Stretch")
	}

	plan = a.planWithRules(models.NewTask("Remind me tomorrow at 9am to submit report"))
	if got := plan.Steps[0].ToolArgs["message"]; got != "To submit report" {
		t.Errorf("message = %q, want %q", got, "To submit report")
	}
}

func TestPlanWithRules_ListWordsMatchWholeWordsOnly(t *testing.T) {
	a := testAgent(t)

	// "call" must not read as "all" and misroute to the list branch.
	plan := a.planWithRules(models.NewTask("remind me to call mom in 2 hours"))
	if got := plan.Steps[0].ToolName; got != "reminder_set" {
		t.Fatalf("tool = %s, want reminder_set", got)
	}
	if got := plan.Steps[0].ToolArgs["time"]; got != "2h" {
		t.Errorf("time = %v, want 2h", got)
	}

	plan = a.planWithRules(models.NewTask("show all my reminders"))
	if got := plan.Steps[0].ToolName; got != "reminder_list" {
		t.Errorf("tool = %s, want reminder_list", got)
	}
}

func TestPlanWithRules_PathExtraction(t *testing.T) {
	a := testAgent(t)

	task := models.NewTask("read the file /etc/hosts please")
	plan := a.planWithRules(task)
	if got := plan.Steps[0].ToolArgs["file_path"]; got != "/etc/hosts" {
		t.Errorf("file_path = %v, want /etc/hosts", got)
	}

	// Explicit context beats extraction.
	task = models.NewTask("read that file for me config.yaml")
	task.Context["file_path"] = "/srv/app/config.yaml"
	plan = a.planWithRules(task)
	if got := plan.Steps[0].ToolArgs["file_path"]; got != "/srv/app/config.yaml" {
		t.Errorf("file_path = %v, want context value", got)
	}
}

func TestClampConfidence(t *testing.T) {
	if got := clampConfidence(0.2); got != 0.5 {
		t.Errorf("clamp low = %v", got)
	}
	if got := clampConfidence(0.99); got != 0.95 {
		t.Errorf("clamp high = %v", got)
	}
	if got := clampConfidence(0.8); got != 0.8 {
		t.Errorf("clamp mid = %v", got)
	}
}

func TestStripCodeFences(t *testing.T) {
	fenced := "```json\n{\"steps\": []}\n```"
	if got := stripCodeFences(fenced); got != `{"steps": []}` {
		t.Errorf("stripCodeFences = %q", got)
	}
	if got := stripCodeFences(`{"a":1}`); got != `{"a":1}` {
		t.Errorf("stripCodeFences plain = %q", got)
	}
}
