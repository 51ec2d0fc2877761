package reminders

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/dexos/dex/internal/reminders"
	"github.com/dexos/dex/internal/tools"
)

// ListTool lists stored reminders filtered by status.
type ListTool struct {
	store *reminders.Store
}

// NewListTool creates the reminder_list tool.
func NewListTool(store *reminders.Store) *ListTool {
	return &ListTool{store: store}
}

func (t *ListTool) Name() string { return "reminder_list" }

func (t *ListTool) Description() string {
	return "List all active reminders"
}

func (t *ListTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"filter_status": {
				"type": "string",
				"default": "active",
				"enum": ["active", "completed", "all"],
				"description": "Which reminders to include"
			}
		}
	}`)
}

type listInput struct {
	FilterStatus string `json:"filter_status"`
}

func (t *ListTool) Execute(ctx context.Context, params json.RawMessage) (*tools.Result, error) {
	var input listInput
	if err := json.Unmarshal(params, &input); err != nil {
		return nil, err
	}
	filter := strings.ToLower(input.FilterStatus)
	if filter == "" {
		filter = "active"
	}

	all, err := t.store.Sorted()
	if err != nil {
		return tools.Fail("Reminder listing failed: %v", err), nil
	}

	now := time.Now().UTC()
	out := make([]any, 0, len(all))
	for _, r := range all {
		passed := !r.ScheduledTime.After(now)
		include := false
		switch filter {
		case "active":
			include = r.IsActive && !passed
		case "completed":
			include = !r.IsActive || passed
		case "all":
			include = true
		}
		if !include {
			continue
		}
		entry := map[string]any{
			"id":             r.ID,
			"message":        r.Message,
			"scheduled_time": r.ScheduledTime.Format(time.RFC3339),
			"priority":       string(r.Priority),
			"created_at":     r.CreatedAt.Format(time.RFC3339),
			"is_active":      r.IsActive,
		}
		if r.Repeat != "" {
			entry["repeat"] = r.Repeat
		}
		out = append(out, entry)
	}

	return tools.Ok(map[string]any{
		"reminders":   out,
		"total_count": len(out),
	}), nil
}
