package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recurring-planner/internal/model"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNext(t *testing.T) {
	tests := []struct {
		name     string
		current  time.Time
		pattern  model.RecurrencePattern
		interval int
		want     time.Time
	}{
		{"daily", day(2024, 3, 10), model.PatternDaily, 1, day(2024, 3, 11)},
		{"daily across month", day(2024, 1, 30), model.PatternDaily, 3, day(2024, 2, 2)},
		{"weekly", day(2024, 3, 10), model.PatternWeekly, 1, day(2024, 3, 17)},
		{"biweekly across year", day(2024, 12, 25), model.PatternWeekly, 2, day(2025, 1, 8)},
		{"monthly keeps day", day(2024, 1, 15), model.PatternMonthly, 1, day(2024, 2, 15)},
		{"monthly clamps leap february", day(2024, 1, 31), model.PatternMonthly, 1, day(2024, 2, 29)},
		{"monthly clamps february", day(2023, 1, 31), model.PatternMonthly, 1, day(2023, 2, 28)},
		{"monthly clamps 30 day month", day(2024, 3, 31), model.PatternMonthly, 1, day(2024, 4, 30)},
		{"quarterly across year", day(2024, 11, 30), model.PatternMonthly, 3, day(2025, 2, 28)},
		{"monthly 12 is a year", day(2024, 5, 5), model.PatternMonthly, 12, day(2025, 5, 5)},
		{"yearly", day(2024, 6, 1), model.PatternYearly, 1, day(2025, 6, 1)},
		{"yearly leap day clamps", day(2024, 2, 29), model.PatternYearly, 1, day(2025, 2, 28)},
		{"yearly leap day to leap year", day(2024, 2, 29), model.PatternYearly, 4, day(2028, 2, 29)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Next(tt.current, tt.pattern, tt.interval)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNext_NormalizesToDate(t *testing.T) {
	ts := time.Date(2024, 3, 10, 23, 30, 0, 0, time.UTC)
	got, err := Next(ts, model.PatternDaily, 1)
	require.NoError(t, err)
	assert.Equal(t, day(2024, 3, 11), got)
}

func TestNext_InvalidInput(t *testing.T) {
	_, err := Next(day(2024, 1, 1), model.PatternNone, 1)
	assert.ErrorIs(t, err, ErrInvalidPattern)

	_, err = Next(day(2024, 1, 1), model.RecurrencePattern("hourly"), 1)
	assert.ErrorIs(t, err, ErrInvalidPattern)

	_, err = Next(day(2024, 1, 1), model.PatternDaily, 0)
	assert.ErrorIs(t, err, ErrInvalidInterval)

	_, err = Next(day(2024, 1, 1), model.PatternMonthly, -2)
	assert.ErrorIs(t, err, ErrInvalidInterval)
}

func TestNext_StrictlyIncreasing(t *testing.T) {
	patterns := []model.RecurrencePattern{
		model.PatternDaily, model.PatternWeekly, model.PatternMonthly, model.PatternYearly,
	}
	start := day(2023, 1, 1)
	for _, p := range patterns {
		for interval := 1; interval <= 13; interval++ {
			for d := start; d.Before(day(2025, 1, 1)); d = d.AddDate(0, 0, 1) {
				next, err := Next(d, p, interval)
				require.NoError(t, err)
				if !next.After(d) {
					t.Fatalf("Next(%s, %s, %d) = %s, not after input", d.Format(time.DateOnly), p, interval, next.Format(time.DateOnly))
				}
			}
		}
	}
}

func TestParsePattern(t *testing.T) {
	p, err := ParsePattern(" Monthly ")
	require.NoError(t, err)
	assert.Equal(t, model.PatternMonthly, p)

	p, err = ParsePattern("")
	require.NoError(t, err)
	assert.Equal(t, model.PatternNone, p)

	_, err = ParsePattern("fortnightly")
	assert.ErrorIs(t, err, ErrInvalidPattern)
}

func TestDate(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	ts := time.Date(2024, 3, 1, 1, 0, 0, 0, loc)
	assert.Equal(t, day(2024, 2, 29), Date(ts))
}
