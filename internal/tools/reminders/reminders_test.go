package reminders

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/dexos/dex/internal/reminders"
	"github.com/dexos/dex/pkg/models"
)

func TestParseTimeSpec(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatal(err)
	}
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		spec string
		want time.Time
	}{
		{"5m", now.Add(5 * time.Minute)},
		{"2h", now.Add(2 * time.Hour)},
		{"1d", now.Add(24 * time.Hour)},
		{"30 m", now.Add(30 * time.Minute)},
		{"tomorrow", now.Add(24 * time.Hour)},
		// Noon UTC is 8am in New York; 3pm local that day is 19:00 UTC.
		{"3pm", time.Date(2026, 8, 25, 19, 0, 0, 0, time.UTC)},
		{"15:30", time.Date(2026, 8, 25, 19, 30, 0, 0, time.UTC)},
		{"tomorrow 10am", time.Date(2026, 8, 26, 14, 0, 0, 0, time.UTC)},
		{"2026-09-01 09:00", time.Date(2026, 9, 1, 13, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			got, err := ParseTimeSpec(tt.spec, now, loc)
			if err != nil {
				t.Fatal(err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseTimeSpec(%q) = %v, want %v", tt.spec, got, tt.want)
			}
		})
	}

	t.Run("rejects garbage", func(t *testing.T) {
		for _, spec := range []string{"", "whenever", "25pm", "banana o'clock"} {
			if _, err := ParseTimeSpec(spec, now, loc); err == nil {
				t.Errorf("ParseTimeSpec(%q) accepted", spec)
			}
		}
	})
}

func TestFormatDelta(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{5 * time.Minute, "5m"},
		{150 * time.Minute, "2h 30m"},
		{30 * time.Second, "0m"},
	}
	for _, tt := range tests {
		if got := FormatDelta(tt.d); got != tt.want {
			t.Errorf("FormatDelta(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestSetTool_SchedulesFutureReminder(t *testing.T) {
	store := reminders.NewStore(filepath.Join(t.TempDir(), "reminders.json"))
	tool := NewSetTool(store, time.UTC)

	params, _ := json.Marshal(map[string]any{
		"message":  "To submit report",
		"time":     "5m",
		"priority": "normal",
	})
	res, err := tool.Execute(context.Background(), params)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success {
		t.Fatalf("result = %+v", res)
	}
	if res.Data["time_until"] != "5m" {
		t.Errorf("time_until = %v, want 5m", res.Data["time_until"])
	}

	list, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("stored = %d, want 1", len(list))
	}
	r := list[0]
	if !r.IsActive || r.Message != "To submit report" {
		t.Errorf("stored = %+v", r)
	}
	until := time.Until(r.ScheduledTime)
	if until < 4*time.Minute || until > 6*time.Minute {
		t.Errorf("scheduled %v from now, want ~5m", until)
	}
}

func TestSetTool_RejectsPast(t *testing.T) {
	store := reminders.NewStore(filepath.Join(t.TempDir(), "reminders.json"))
	tool := NewSetTool(store, time.UTC)

	params, _ := json.Marshal(map[string]any{
		"message": "too late",
		"time":    "2020-01-01 00:00",
	})
	res, err := tool.Execute(context.Background(), params)
	if err != nil {
		t.Fatal(err)
	}
	if res.Success {
		t.Fatal("expected failure for past time")
	}
}

func TestListTool_Filters(t *testing.T) {
	store := reminders.NewStore(filepath.Join(t.TempDir(), "reminders.json"))
	setTool := NewSetTool(store, time.UTC)

	params, _ := json.Marshal(map[string]any{"message": "future", "time": "2h"})
	if res, err := setTool.Execute(context.Background(), params); err != nil || !res.Success {
		t.Fatalf("set: res=%+v err=%v", res, err)
	}
	// An already-fired reminder added directly to the store.
	fired := models.NewReminder("fired", time.Now().Add(-time.Hour), models.PriorityNormal)
	fired.IsActive = false
	if err := store.Add(fired); err != nil {
		t.Fatal(err)
	}

	listTool := NewListTool(store)

	tests := []struct {
		filter string
		want   int
	}{
		{"active", 1},
		{"completed", 1},
		{"all", 2},
	}
	for _, tt := range tests {
		t.Run(tt.filter, func(t *testing.T) {
			params, _ := json.Marshal(map[string]any{"filter_status": tt.filter})
			res, err := listTool.Execute(context.Background(), params)
			if err != nil {
				t.Fatal(err)
			}
			if res.Data["total_count"] != tt.want {
				t.Errorf("total_count = %v, want %d", res.Data["total_count"], tt.want)
			}
		})
	}
}
