package models

import (
	"time"

	"github.com/google/uuid"
)

// Priority orders notifications and reminders by urgency.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// Reminder is a durable scheduled notification. The reminder monitor is the
// sole mutator of IsActive and, for recurring reminders, ScheduledTime.
type Reminder struct {
	ID            string    `json:"id"`
	Message       string    `json:"message"`
	ScheduledTime time.Time `json:"scheduled_time"`
	Priority      Priority  `json:"priority"`
	CreatedAt     time.Time `json:"created_at"`
	IsActive      bool      `json:"is_active"`

	// Repeat is an optional cron expression. When set, firing advances
	// ScheduledTime to the next occurrence instead of deactivating.
	Repeat string `json:"repeat,omitempty"`
}

// NewReminder schedules a one-shot reminder.
func NewReminder(message string, at time.Time, priority Priority) *Reminder {
	if priority == "" {
		priority = PriorityNormal
	}
	return &Reminder{
		ID:            uuid.NewString(),
		Message:       message,
		ScheduledTime: at.UTC(),
		Priority:      priority,
		CreatedAt:     time.Now().UTC(),
		IsActive:      true,
	}
}

// Due reports whether the reminder should fire at the given instant.
func (r *Reminder) Due(now time.Time) bool {
	return r.IsActive && !r.ScheduledTime.After(now)
}
