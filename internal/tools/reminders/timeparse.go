// Package reminders provides the reminder_set and reminder_list tools.
package reminders

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	relativeRe = regexp.MustCompile(`^(\d+)\s*([smhd])$`)
	clockRe    = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?\s*(am|pm)?$`)
)

// ParseTimeSpec resolves a human time phrase against now in the given
// location. Accepted forms: "30m" / "2h" / "1d", "tomorrow", "tomorrow 3pm",
// "3pm", "15:30", and absolute "2006-01-02 15:04" or RFC 3339 stamps.
// The result is always UTC.
func ParseTimeSpec(spec string, now time.Time, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	spec = strings.ToLower(strings.TrimSpace(spec))
	if spec == "" {
		return time.Time{}, fmt.Errorf("empty time specification")
	}
	local := now.In(loc)

	if m := relativeRe.FindStringSubmatch(spec); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return time.Time{}, fmt.Errorf("bad relative time %q", spec)
		}
		var unit time.Duration
		switch m[2] {
		case "s":
			unit = time.Second
		case "m":
			unit = time.Minute
		case "h":
			unit = time.Hour
		case "d":
			unit = 24 * time.Hour
		}
		return now.Add(time.Duration(n) * unit).UTC(), nil
	}

	if spec == "tomorrow" {
		return now.Add(24 * time.Hour).UTC(), nil
	}
	if rest, ok := strings.CutPrefix(spec, "tomorrow "); ok {
		at, err := parseClock(strings.TrimSpace(rest))
		if err != nil {
			return time.Time{}, err
		}
		next := local.AddDate(0, 0, 1)
		return time.Date(next.Year(), next.Month(), next.Day(), at.hour, at.minute, 0, 0, loc).UTC(), nil
	}

	if at, err := parseClock(spec); err == nil {
		t := time.Date(local.Year(), local.Month(), local.Day(), at.hour, at.minute, 0, 0, loc)
		return t.UTC(), nil
	}

	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02T15:04:05"} {
		if t, err := time.ParseInLocation(layout, spec, loc); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time specification %q", spec)
}

type clockTime struct {
	hour   int
	minute int
}

// parseClock handles "3pm", "11:30", "9:15am".
func parseClock(s string) (clockTime, error) {
	m := clockRe.FindStringSubmatch(s)
	if m == nil {
		return clockTime{}, fmt.Errorf("unrecognized clock time %q", s)
	}
	// Bare numbers without a meridiem are ambiguous ("at 5" vs "5 files"),
	// so require either minutes or am/pm.
	if m[2] == "" && m[3] == "" {
		return clockTime{}, fmt.Errorf("ambiguous clock time %q", s)
	}

	hour, err := strconv.Atoi(m[1])
	if err != nil || hour > 23 {
		return clockTime{}, fmt.Errorf("bad hour in %q", s)
	}
	minute := 0
	if m[2] != "" {
		minute, err = strconv.Atoi(m[2])
		if err != nil || minute > 59 {
			return clockTime{}, fmt.Errorf("bad minute in %q", s)
		}
	}
	switch m[3] {
	case "pm":
		if hour != 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}
	if hour > 23 {
		return clockTime{}, fmt.Errorf("bad hour in %q", s)
	}
	return clockTime{hour: hour, minute: minute}, nil
}

// FormatDelta renders a duration as "2h 30m" or "5m" for user display.
func FormatDelta(d time.Duration) string {
	total := int(d.Seconds())
	hours := total / 3600
	minutes := (total % 3600) / 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
