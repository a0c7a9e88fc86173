package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"recurring-planner/internal/model"
	"recurring-planner/internal/repository"
)

// newTestStores connects to POSTGRES_TEST_URL and starts each test from
// empty tables.
func newTestStores(t *testing.T) (*TaskStore, *CategoryStore) {
	t.Helper()
	url := os.Getenv("POSTGRES_TEST_URL")
	if url == "" {
		t.Skip("POSTGRES_TEST_URL not set")
	}

	ctx := context.Background()
	pool, err := Open(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, EnsureSchema(ctx, pool))
	_, err = pool.Exec(ctx, `TRUNCATE tasks, categories RESTART IDENTITY`)
	require.NoError(t, err)

	return NewTaskStore(pool, zap.NewNop()), NewCategoryStore(pool)
}

func day(y int, m time.Month, d int) *time.Time {
	v := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &v
}

func weeklyTemplate(next *time.Time) *model.Task {
	return &model.Task{
		UserID:             7,
		Title:              "Team sync",
		Priority:           model.PriorityHigh,
		IsRecurring:        true,
		RecurrencePattern:  model.PatternWeekly,
		RecurrenceInterval: 1,
		NextDueDate:        next,
	}
}

func occurrence(tpl *model.Task, due *time.Time) *model.Task {
	id := tpl.ID
	return &model.Task{
		UserID:            tpl.UserID,
		Title:             tpl.Title,
		Priority:          tpl.Priority,
		DueDate:           due,
		RecurrencePattern: model.PatternNone,
		OriginalTaskID:    &id,
	}
}

func TestTaskStore_InsertAndAdvance(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStores(t)

	tpl := weeklyTemplate(day(2024, 3, 4))
	require.NoError(t, store.Create(ctx, tpl))

	due, err := store.FindDueTemplates(ctx, *day(2024, 3, 4))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, tpl.ID, due[0].ID)
	assert.True(t, due[0].IsTemplate())

	next := *tpl
	next.NextDueDate = day(2024, 3, 11)
	inst := occurrence(tpl, day(2024, 3, 4))
	require.NoError(t, store.InsertInstanceAndAdvanceTemplate(ctx, inst, &next, *tpl.NextDueDate))
	assert.NotZero(t, inst.ID)

	stored, err := store.FindTemplate(ctx, tpl.ID)
	require.NoError(t, err)
	assert.True(t, stored.NextDueDate.Equal(*day(2024, 3, 11)))

	got, err := store.Get(ctx, inst.ID)
	require.NoError(t, err)
	assert.True(t, got.IsInstance())
	assert.Equal(t, model.PriorityHigh, got.Priority)

	// Replaying the same step finds the template already advanced.
	err = store.InsertInstanceAndAdvanceTemplate(ctx, occurrence(tpl, day(2024, 3, 4)), &next, *tpl.NextDueDate)
	assert.ErrorIs(t, err, repository.ErrDuplicateOccurrence)
}

func TestTaskStore_StaleTemplateRollsBack(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStores(t)

	tpl := weeklyTemplate(day(2024, 3, 11))
	require.NoError(t, store.Create(ctx, tpl))

	// A writer holding a snapshot from before the template moved to Mar 11.
	next := *tpl
	next.NextDueDate = day(2024, 3, 11)
	err := store.InsertInstanceAndAdvanceTemplate(ctx, occurrence(tpl, day(2024, 3, 4)), &next, *day(2024, 3, 4))
	require.ErrorIs(t, err, repository.ErrStaleTemplate)

	var count int
	require.NoError(t, store.db.QueryRow(ctx, `SELECT count(*) FROM tasks WHERE original_task_id = $1`, int64(tpl.ID)).Scan(&count))
	assert.Zero(t, count)
}

func TestTaskStore_DeleteTemplate(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStores(t)

	tpl := weeklyTemplate(day(2024, 3, 4))
	require.NoError(t, store.Create(ctx, tpl))
	require.NoError(t, store.DeleteTemplate(ctx, tpl.ID))

	_, err := store.FindTemplate(ctx, tpl.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, store.DeleteTemplate(ctx, tpl.ID), repository.ErrNotFound)

	due, err := store.FindDueTemplates(ctx, *day(2024, 12, 31))
	require.NoError(t, err)
	assert.Empty(t, due)

	next := *tpl
	next.NextDueDate = day(2024, 3, 11)
	err = store.InsertInstanceAndAdvanceTemplate(ctx, occurrence(tpl, day(2024, 3, 4)), &next, *tpl.NextDueDate)
	assert.ErrorIs(t, err, repository.ErrStaleTemplate)
}

func TestTaskStore_SaveCompletion(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStores(t)

	task := &model.Task{UserID: 7, Title: "Renew passport", DueDate: day(2024, 5, 1)}
	require.NoError(t, store.Create(ctx, task))

	task.IsCompleted = true
	task.CompletedAt = day(2024, 5, 2)
	require.NoError(t, store.SaveCompletion(ctx, task))

	got, err := store.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.True(t, got.IsCompleted)
	assert.Equal(t, model.PatternNone, got.RecurrencePattern)

	missing := &model.Task{ID: task.ID + 100, IsCompleted: true}
	assert.ErrorIs(t, store.SaveCompletion(ctx, missing), repository.ErrNotFound)
}

func TestCategoryStore_GetOrCreate(t *testing.T) {
	ctx := context.Background()
	_, categories := newTestStores(t)

	first, err := categories.GetOrCreate(ctx, 7, "health")
	require.NoError(t, err)
	second, err := categories.GetOrCreate(ctx, 7, "health")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	other, err := categories.GetOrCreate(ctx, 8, "health")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)

	none, err := categories.GetOrCreate(ctx, 7, "")
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = categories.GetOrCreate(ctx, 7, "errands")
	require.NoError(t, err)
	list, err := categories.ListByUser(ctx, 7)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "errands", list[0].Name)
	assert.Equal(t, "health", list[1].Name)
}

func TestTaskStore_CreateNormalizesSchedule(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStores(t)

	moscow := time.FixedZone("MSK", 3*60*60)
	tpl := weeklyTemplate(nil)
	next := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 1, 0, 0, 0, 0, moscow)
	tpl.NextDueDate = &next
	tpl.RecurrenceEndDate = &end
	require.NoError(t, store.Create(ctx, tpl))

	stored, err := store.FindTemplate(ctx, tpl.ID)
	require.NoError(t, err)
	assert.True(t, stored.NextDueDate.Equal(*day(2024, 3, 4)))
	assert.True(t, stored.RecurrenceEndDate.Equal(*day(2024, 5, 31)))
}

// Rows written by other tools may carry a time of day or an offset. The
// guard must match the value that was read, so the template still advances.
func TestTaskStore_AdvancesTemplateWithTimeOfDay(t *testing.T) {
	moscow := time.FixedZone("MSK", 3*60*60)
	tests := map[string]time.Time{
		"09:00 UTC":       time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC),
		"+03:00 midnight": time.Date(2024, 3, 4, 0, 0, 0, 0, moscow),
	}

	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store, _ := newTestStores(t)

			tpl := weeklyTemplate(day(2024, 3, 4))
			require.NoError(t, store.Create(ctx, tpl))
			_, err := store.db.Exec(ctx, `UPDATE tasks SET next_due_date = $2 WHERE id = $1`, int64(tpl.ID), raw)
			require.NoError(t, err)

			due, err := store.FindDueTemplates(ctx, *day(2024, 3, 10))
			require.NoError(t, err)
			require.Len(t, due, 1)
			read := *due[0].NextDueDate

			next := due[0]
			advanced := day(2024, 3, 11)
			next.NextDueDate = advanced
			inst := occurrence(&due[0], day(read.UTC().Year(), read.UTC().Month(), read.UTC().Day()))
			require.NoError(t, store.InsertInstanceAndAdvanceTemplate(ctx, inst, &next, read))

			stored, err := store.FindTemplate(ctx, tpl.ID)
			require.NoError(t, err)
			assert.True(t, stored.NextDueDate.Equal(*advanced))
		})
	}
}
