package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBuildDailySpec(t *testing.T) {
	spec, err := buildDailySpec("07:30")
	require.NoError(t, err)
	assert.Equal(t, "0 30 7 * * *", spec)

	for _, bad := range []string{"", "7", "24:00", "12:60", "ab:cd", "1:2:3"} {
		_, err := buildDailySpec(bad)
		assert.Error(t, err, bad)
	}
}

func TestSchedulerService_ScheduleSpec(t *testing.T) {
	s := NewSchedulerService(time.UTC, zap.NewNop())
	job := func() {}

	for _, spec := range []string{"00:05", "15m", "0 */10 * * * *", "@hourly"} {
		_, err := s.ScheduleSpec(spec, job)
		assert.NoError(t, err, spec)
	}

	_, err := s.ScheduleSpec("not a schedule", job)
	assert.Error(t, err)

	_, err = s.ScheduleInterval(0, job)
	assert.Error(t, err)
}

func TestSchedulerService_Next(t *testing.T) {
	s := NewSchedulerService(time.UTC, zap.NewNop())
	id, err := s.ScheduleSpec("1h", func() {})
	require.NoError(t, err)

	s.Start()
	defer s.Stop()
	assert.WithinDuration(t, time.Now().Add(time.Hour), s.Next(id), 5*time.Second)
}
