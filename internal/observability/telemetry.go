package observability

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Event types written to the telemetry log.
const (
	EventLatency  = "latency"
	EventToolCall = "tool_call"
	EventRisk     = "risk"
)

// TelemetryEvent is one line of the newline-delimited telemetry log.
type TelemetryEvent struct {
	EventType string         `json:"event_type"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data"`
	TaskID    string         `json:"task_id,omitempty"`
}

// Telemetry appends events to telemetry.jsonl under the data directory and
// mirrors them into Prometheus metrics when a Metrics is attached.
type Telemetry struct {
	mu      sync.Mutex
	path    string
	metrics *Metrics
}

// NewTelemetry creates a telemetry writer rooted at dataDir.
func NewTelemetry(dataDir string, metrics *Metrics) *Telemetry {
	return &Telemetry{
		path:    filepath.Join(dataDir, "telemetry.jsonl"),
		metrics: metrics,
	}
}

// RecordLatency logs a latency event for an operation.
func (t *Telemetry) RecordLatency(operation string, duration time.Duration, taskID string) {
	t.append(TelemetryEvent{
		EventType: EventLatency,
		Timestamp: time.Now().UTC(),
		Data: map[string]any{
			"operation":   operation,
			"duration_ms": duration.Milliseconds(),
		},
		TaskID: taskID,
	})
	if t.metrics != nil {
		t.metrics.OperationLatency.WithLabelValues(operation).Observe(duration.Seconds())
	}
}

// RecordToolCall logs a tool dispatch outcome.
func (t *Telemetry) RecordToolCall(tool string, success bool, taskID string) {
	t.append(TelemetryEvent{
		EventType: EventToolCall,
		Timestamp: time.Now().UTC(),
		Data: map[string]any{
			"tool":    tool,
			"success": success,
		},
		TaskID: taskID,
	})
	if t.metrics != nil {
		t.metrics.ToolCalls.WithLabelValues(tool, outcomeLabel(success)).Inc()
	}
}

// RecordRisk logs a plan risk assessment.
func (t *Telemetry) RecordRisk(level string, score float64, taskID string) {
	t.append(TelemetryEvent{
		EventType: EventRisk,
		Timestamp: time.Now().UTC(),
		Data: map[string]any{
			"level": level,
			"score": score,
		},
		TaskID: taskID,
	})
	if t.metrics != nil {
		t.metrics.PlansByRisk.WithLabelValues(level).Inc()
	}
}

func (t *Telemetry) append(ev TelemetryEvent) {
	line, err := json.Marshal(ev)
	if err != nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	f, err := os.OpenFile(t.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	fmt.Fprintln(f, string(line))
}

// ToolStats aggregates per-tool call outcomes.
type ToolStats struct {
	Calls       int     `json:"calls"`
	Successes   int     `json:"successes"`
	SuccessRate float64 `json:"success_rate"`
}

// TelemetrySummary is the aggregate view served by the dashboard.
type TelemetrySummary struct {
	TotalEvents  int                  `json:"total_events"`
	AvgLatencyMS map[string]float64   `json:"avg_latency_ms"`
	Tools        map[string]ToolStats `json:"tools"`
	RiskCounts   map[string]int       `json:"risk_counts"`
}

// Summary scans the telemetry log and aggregates latency, tool, and risk
// events. A missing log yields an empty summary, not an error.
func (t *Telemetry) Summary() (*TelemetrySummary, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	summary := &TelemetrySummary{
		AvgLatencyMS: map[string]float64{},
		Tools:        map[string]ToolStats{},
		RiskCounts:   map[string]int{},
	}

	f, err := os.Open(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			return summary, nil
		}
		return nil, fmt.Errorf("open telemetry log: %w", err)
	}
	defer f.Close()

	latencySums := map[string]float64{}
	latencyCounts := map[string]int{}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var ev TelemetryEvent
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			continue
		}
		summary.TotalEvents++

		switch ev.EventType {
		case EventLatency:
			op, _ := ev.Data["operation"].(string)
			if ms, ok := ev.Data["duration_ms"].(float64); ok {
				latencySums[op] += ms
				latencyCounts[op]++
			}
		case EventToolCall:
			tool, _ := ev.Data["tool"].(string)
			success, _ := ev.Data["success"].(bool)
			stats := summary.Tools[tool]
			stats.Calls++
			if success {
				stats.Successes++
			}
			summary.Tools[tool] = stats
		case EventRisk:
			level, _ := ev.Data["level"].(string)
			summary.RiskCounts[level]++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read telemetry log: %w", err)
	}

	for op, sum := range latencySums {
		summary.AvgLatencyMS[op] = sum / float64(latencyCounts[op])
	}
	for tool, stats := range summary.Tools {
		if stats.Calls > 0 {
			stats.SuccessRate = float64(stats.Successes) / float64(stats.Calls)
			summary.Tools[tool] = stats
		}
	}
	return summary, nil
}

func outcomeLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
