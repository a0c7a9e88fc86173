// Package recurrence computes occurrence dates for recurring tasks.
//
// All functions operate on calendar dates in UTC. A date is represented as a
// time.Time at UTC midnight; use Date to normalize arbitrary timestamps.
package recurrence

import (
	"fmt"
	"strings"
	"time"

	"recurring-planner/internal/model"
)

// Date truncates t to midnight of its UTC calendar day.
func Date(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NormalizeSchedule rewrites the schedule dates of t (NextDueDate and
// RecurrenceEndDate) as UTC midnight.
func NormalizeSchedule(t *model.Task) {
	if t.NextDueDate != nil {
		d := Date(*t.NextDueDate)
		t.NextDueDate = &d
	}
	if t.RecurrenceEndDate != nil {
		d := Date(*t.RecurrenceEndDate)
		t.RecurrenceEndDate = &d
	}
}

// ParsePattern converts user input into a pattern, case-insensitively.
func ParsePattern(raw string) (model.RecurrencePattern, error) {
	p := model.RecurrencePattern(strings.ToLower(strings.TrimSpace(raw)))
	switch p {
	case model.PatternDaily, model.PatternWeekly, model.PatternMonthly, model.PatternYearly:
		return p, nil
	case "", model.PatternNone:
		return model.PatternNone, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPattern, raw)
	}
}

// Validate checks that pattern and interval describe a generating series.
func Validate(pattern model.RecurrencePattern, interval int) error {
	switch pattern {
	case model.PatternDaily, model.PatternWeekly, model.PatternMonthly, model.PatternYearly:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidPattern, pattern)
	}
	if interval < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidInterval, interval)
	}
	return nil
}

// Next returns the occurrence date that follows current.
//
// Monthly and yearly steps keep the day of month and clamp it to the last day
// of the target month, so Jan 31 + 1 month is Feb 28 (Feb 29 in leap years)
// and Feb 29 + 1 year is Feb 28. The result is always after current.
func Next(current time.Time, pattern model.RecurrencePattern, interval int) (time.Time, error) {
	if err := Validate(pattern, interval); err != nil {
		return time.Time{}, err
	}

	d := Date(current)
	switch pattern {
	case model.PatternDaily:
		return d.AddDate(0, 0, interval), nil
	case model.PatternWeekly:
		return d.AddDate(0, 0, 7*interval), nil
	case model.PatternMonthly:
		return addMonthsClamped(d, interval), nil
	default:
		return addMonthsClamped(d, 12*interval), nil
	}
}

// addMonthsClamped avoids time.AddDate normalization, which would turn
// Jan 31 + 1 month into Mar 3.
func addMonthsClamped(d time.Time, months int) time.Time {
	year, month, day := d.Date()
	total := int(month) - 1 + months
	year += total / 12
	month = time.Month(total%12 + 1)

	if last := daysInMonth(month, year); day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func daysInMonth(month time.Month, year int) int {
	// Move to next month, roll back a day.
	firstOfMonth := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	firstOfNextMonth := firstOfMonth.AddDate(0, 1, 0)
	lastOfMonth := firstOfNextMonth.AddDate(0, 0, -1)
	return lastOfMonth.Day()
}
