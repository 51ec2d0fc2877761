package reminders

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/dexos/dex/internal/reminders"
	"github.com/dexos/dex/internal/tools"
	"github.com/dexos/dex/pkg/models"
)

// SetTool schedules a reminder through the durable store.
type SetTool struct {
	store *reminders.Store
	loc   *time.Location
}

// NewSetTool creates the reminder_set tool. loc resolves clock phrases like
// "3pm"; nil means UTC.
func NewSetTool(store *reminders.Store, loc *time.Location) *SetTool {
	if loc == nil {
		loc = time.UTC
	}
	return &SetTool{store: store, loc: loc}
}

func (t *SetTool) Name() string { return "reminder_set" }

func (t *SetTool) Description() string {
	return "Set a reminder for a specific time"
}

func (t *SetTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"message": {
				"type": "string",
				"description": "Reminder message"
			},
			"time": {
				"type": "string",
				"description": "When to remind (e.g. '2h', '3pm', 'tomorrow 10am', '2026-02-09 15:30')"
			},
			"priority": {
				"type": "string",
				"default": "normal",
				"enum": ["low", "normal", "high"],
				"description": "Priority"
			},
			"repeat": {
				"type": "string",
				"default": "",
				"description": "Optional cron expression for a recurring reminder"
			}
		},
		"required": ["message", "time"]
	}`)
}

type setInput struct {
	Message  string `json:"message"`
	Time     string `json:"time"`
	Priority string `json:"priority"`
	Repeat   string `json:"repeat"`
}

func (t *SetTool) Execute(ctx context.Context, params json.RawMessage) (*tools.Result, error) {
	var input setInput
	if err := json.Unmarshal(params, &input); err != nil {
		return nil, err
	}

	message := strings.TrimSpace(input.Message)
	timeSpec := strings.TrimSpace(input.Time)
	if message == "" || timeSpec == "" {
		return tools.Fail("Message and time are required"), nil
	}

	now := time.Now().UTC()
	scheduled, err := ParseTimeSpec(timeSpec, now, t.loc)
	if err != nil {
		return tools.Fail("Reminder setting failed: %v", err), nil
	}
	if !scheduled.After(now) {
		return tools.Fail("Reminder time must be in the future"), nil
	}

	reminder := models.NewReminder(message, scheduled, models.Priority(strings.ToLower(input.Priority)))
	reminder.Repeat = strings.TrimSpace(input.Repeat)
	if err := t.store.Add(reminder); err != nil {
		return tools.Fail("Reminder setting failed: %v", err), nil
	}

	timeUntil := FormatDelta(scheduled.Sub(now))
	return tools.Ok(map[string]any{
		"reminder_id":    reminder.ID,
		"message":        message,
		"scheduled_time": scheduled.Format(time.RFC3339),
		"priority":       string(reminder.Priority),
		"time_until":     timeUntil,
	}), nil
}
