// Package daemon runs the reminder monitor: a periodic check that fires due
// reminders through the notification dispatcher, at most once each.
package daemon

import (
	"context"
	"fmt"
	"time"

	"github.com/dexos/dex/internal/notify"
	"github.com/dexos/dex/internal/observability"
	"github.com/dexos/dex/internal/reminders"
	"github.com/dexos/dex/pkg/models"
	"github.com/robfig/cron/v3"
)

// DefaultCheckInterval is how often the monitor scans for due reminders.
const DefaultCheckInterval = 60 * time.Second

// Monitor periodically scans the reminder store and notifies on due entries.
type Monitor struct {
	store      *reminders.Store
	dispatcher *notify.Dispatcher
	logger     *observability.Logger
	metrics    *observability.Metrics
	interval   time.Duration
	now        func() time.Time

	// fired guards against duplicate notifications within one process
	// lifetime; the durable flag lives in the store.
	fired map[string]bool
}

// Config wires the monitor. Metrics may be nil.
type Config struct {
	Store      *reminders.Store
	Dispatcher *notify.Dispatcher
	Logger     *observability.Logger
	Metrics    *observability.Metrics
	Interval   time.Duration
}

// NewMonitor creates a reminder monitor.
func NewMonitor(cfg Config) *Monitor {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultCheckInterval
	}
	return &Monitor{
		store:      cfg.Store,
		dispatcher: cfg.Dispatcher,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
		interval:   interval,
		now:        time.Now,
		fired:      make(map[string]bool),
	}
}

// Run checks immediately and then on every tick until the context ends.
func (m *Monitor) Run(ctx context.Context) error {
	m.logger.Info(ctx, "reminder monitor starting",
		"interval", m.interval.String(),
		"store", m.store.Path())

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.CheckOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			m.logger.Info(ctx, "reminder monitor stopping")
			return ctx.Err()
		case <-ticker.C:
			m.CheckOnce(ctx)
		}
	}
}

// CheckOnce runs a single scan cycle. Due reminders are deactivated (or, for
// recurring ones, advanced) under the store lock before any notification is
// sent, so a crash mid-cycle cannot double-fire on restart.
func (m *Monitor) CheckOnce(ctx context.Context) {
	now := m.now().UTC()

	var due []*models.Reminder
	err := m.store.Mutate(func(items []*models.Reminder) error {
		for _, r := range items {
			if m.fired[r.ID] || !r.Due(now) {
				continue
			}
			fired := *r
			due = append(due, &fired)

			if r.Repeat != "" {
				next, err := nextOccurrence(r.Repeat, now)
				if err != nil {
					m.logger.Error(ctx, "invalid repeat expression, deactivating",
						"reminder_id", r.ID, "repeat", r.Repeat, "error", err)
					r.IsActive = false
					continue
				}
				r.ScheduledTime = next
			} else {
				r.IsActive = false
			}
		}
		return nil
	})
	if err != nil {
		m.logger.Error(ctx, "reminder check failed", "error", err)
		return
	}

	for _, r := range due {
		m.fired[r.ID] = true
		m.notify(ctx, r)
	}
}

func (m *Monitor) notify(ctx context.Context, r *models.Reminder) {
	m.logger.Info(ctx, "reminder due", "reminder_id", r.ID, "message", r.Message)

	outcomes := m.dispatcher.Send(ctx, models.Notification{
		Title:    "⏰ Reminder: " + r.Message,
		Message:  fmt.Sprintf("Scheduled reminder triggered\nID: %s", r.ID),
		Priority: r.Priority,
		Tag:      "reminder",
	})
	if m.metrics != nil {
		m.metrics.RemindersFired.Inc()
	}

	delivered := 0
	for _, err := range outcomes {
		if err == nil {
			delivered++
		}
	}
	if delivered == 0 {
		m.logger.Warn(ctx, "reminder due but no notification channel succeeded",
			"reminder_id", r.ID, "message", r.Message)
	}
}

// nextOccurrence evaluates a standard cron expression against now.
func nextOccurrence(spec string, now time.Time) (time.Time, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return time.Time{}, err
	}
	return schedule.Next(now).UTC(), nil
}
