package observability

import (
	"testing"
	"time"
)

func TestTelemetry_SummaryAggregates(t *testing.T) {
	tel := NewTelemetry(t.TempDir(), nil)

	tel.RecordLatency("executor", 100*time.Millisecond, "task-1")
	tel.RecordLatency("executor", 300*time.Millisecond, "task-1")
	tel.RecordToolCall("shell_command", true, "task-1")
	tel.RecordToolCall("shell_command", false, "task-1")
	tel.RecordToolCall("note_create", true, "task-2")
	tel.RecordRisk("high", 0.9, "task-1")
	tel.RecordRisk("low", 0.1, "task-2")
	tel.RecordRisk("high", 0.9, "task-3")

	summary, err := tel.Summary()
	if err != nil {
		t.Fatal(err)
	}

	if summary.TotalEvents != 8 {
		t.Errorf("TotalEvents = %d, want 8", summary.TotalEvents)
	}
	if got := summary.AvgLatencyMS["executor"]; got != 200 {
		t.Errorf("avg executor latency = %v, want 200", got)
	}
	shell := summary.Tools["shell_command"]
	if shell.Calls != 2 || shell.Successes != 1 || shell.SuccessRate != 0.5 {
		t.Errorf("shell_command stats = %+v", shell)
	}
	if summary.RiskCounts["high"] != 2 || summary.RiskCounts["low"] != 1 {
		t.Errorf("risk counts = %v", summary.RiskCounts)
	}
}

func TestTelemetry_SummaryMissingFile(t *testing.T) {
	tel := NewTelemetry(t.TempDir(), nil)
	summary, err := tel.Summary()
	if err != nil {
		t.Fatal(err)
	}
	if summary.TotalEvents != 0 {
		t.Errorf("TotalEvents = %d, want 0", summary.TotalEvents)
	}
}
