package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"recurring-planner/internal/model"
	"recurring-planner/internal/recurrence"
	"recurring-planner/internal/repository"
)

const taskColumns = `id, user_id, category_id, title, description, priority, due_date,
        is_completed, completed_at, is_recurring, recurrence_pattern, recurrence_interval,
        recurrence_end_date, next_due_date, original_task_id, created_at, updated_at, deleted_at`

// TaskStore keeps templates, instances and plain tasks in PostgreSQL.
type TaskStore struct {
	db     DBTX
	logger *zap.Logger
}

func NewTaskStore(db DBTX, logger *zap.Logger) *TaskStore {
	return &TaskStore{db: db, logger: logger}
}

// Create stores task. Schedule dates are stored as UTC midnight.
func (s *TaskStore) Create(ctx context.Context, task *model.Task) error {
	recurrence.NormalizeSchedule(task)
	query := `
        INSERT INTO tasks (user_id, category_id, title, description, priority, due_date,
            is_completed, completed_at, is_recurring, recurrence_pattern, recurrence_interval,
            recurrence_end_date, next_due_date, original_task_id)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
        RETURNING id, created_at, updated_at
    `
	if err := insertTask(ctx, s.db, query, task); err != nil {
		return fmt.Errorf("create task: %w", MapError(err))
	}
	return nil
}

// Get loads a task by id. Deleted tasks are reported as repository.ErrNotFound.
func (s *TaskStore) Get(ctx context.Context, id uint) (*model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1 AND deleted_at IS NULL`
	task, err := scanTask(s.db.QueryRow(ctx, query, int64(id)))
	if err != nil {
		return nil, fmt.Errorf("get task %d: %w", id, MapError(err))
	}
	return task, nil
}

func (s *TaskStore) FindTemplate(ctx context.Context, id uint) (*model.Task, error) {
	task, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !task.IsTemplate() {
		return nil, fmt.Errorf("get template %d: %w", id, repository.ErrNotFound)
	}
	return task, nil
}

func (s *TaskStore) FindDueTemplates(ctx context.Context, now time.Time) ([]model.Task, error) {
	query := `
        SELECT ` + taskColumns + `
        FROM tasks
        WHERE is_recurring = TRUE
          AND deleted_at IS NULL
          AND next_due_date IS NOT NULL
          AND next_due_date <= $1
          AND (recurrence_end_date IS NULL OR next_due_date <= recurrence_end_date)
        ORDER BY next_due_date ASC, id ASC
    `
	rows, err := s.db.Query(ctx, query, now.UTC())
	if err != nil {
		s.logger.Error("Failed to list due templates", zap.Error(err))
		return nil, fmt.Errorf("find due templates: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find due templates: %w", err)
	}

	s.logger.Debug("Listed due templates", zap.Int("count", len(tasks)))
	return tasks, nil
}

// InsertInstanceAndAdvanceTemplate stores instance and moves template to its
// new NextDueDate/IsRecurring in one transaction. The update only matches a
// template that is still active with NextDueDate equal to expectedNext;
// otherwise the insert is rolled back and repository.ErrStaleTemplate is
// returned.
func (s *TaskStore) InsertInstanceAndAdvanceTemplate(ctx context.Context, instance, template *model.Task, expectedNext time.Time) error {
	if instance.DueDate == nil {
		return fmt.Errorf("insert instance: missing due date")
	}

	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		insert := `
            INSERT INTO tasks (user_id, category_id, title, description, priority, due_date,
                is_completed, completed_at, is_recurring, recurrence_pattern, recurrence_interval,
                recurrence_end_date, next_due_date, original_task_id)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
            RETURNING id, created_at, updated_at
        `
		if err := insertTask(ctx, tx, insert, instance); err != nil {
			return fmt.Errorf("insert instance: %w", MapError(err))
		}

		tag, err := tx.Exec(ctx, `
            UPDATE tasks
            SET next_due_date = $2, is_recurring = $3, updated_at = now()
            WHERE id = $1 AND is_recurring = TRUE AND deleted_at IS NULL AND next_due_date = $4
        `, int64(template.ID), template.NextDueDate, template.IsRecurring, expectedNext)
		if err != nil {
			return fmt.Errorf("advance template %d: %w", template.ID, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("advance template %d: %w", template.ID, repository.ErrStaleTemplate)
		}
		return nil
	})
}

func (s *TaskStore) SaveCompletion(ctx context.Context, task *model.Task) error {
	tag, err := s.db.Exec(ctx, `
        UPDATE tasks SET is_completed = $2, completed_at = $3, updated_at = now()
        WHERE id = $1 AND deleted_at IS NULL
    `, int64(task.ID), task.IsCompleted, task.CompletedAt)
	if err != nil {
		return fmt.Errorf("complete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("complete task %d: %w", task.ID, repository.ErrNotFound)
	}
	return nil
}

// DeleteTemplate soft-deletes a template. Instances generated from it are kept.
func (s *TaskStore) DeleteTemplate(ctx context.Context, id uint) error {
	tag, err := s.db.Exec(ctx, `
        UPDATE tasks SET deleted_at = now()
        WHERE id = $1 AND deleted_at IS NULL AND original_task_id IS NULL AND recurrence_pattern <> $2
    `, int64(id), string(model.PatternNone))
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete template %d: %w", id, repository.ErrNotFound)
	}
	return nil
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func insertTask(ctx context.Context, db queryRower, query string, t *model.Task) error {
	if t.RecurrencePattern == "" {
		t.RecurrencePattern = model.PatternNone
	}
	var id int64
	err := db.QueryRow(ctx, query,
		int64(t.UserID),
		toInt64(t.CategoryID),
		t.Title,
		t.Description,
		int16(t.Priority),
		utc(t.DueDate),
		t.IsCompleted,
		utc(t.CompletedAt),
		t.IsRecurring,
		string(t.RecurrencePattern),
		t.RecurrenceInterval,
		utc(t.RecurrenceEndDate),
		utc(t.NextDueDate),
		toInt64(t.OriginalTaskID),
	).Scan(&id, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return err
	}
	t.ID = uint(id)
	return nil
}

func scanTask(row pgx.Row) (*model.Task, error) {
	var (
		t                    model.Task
		id, userID           int64
		categoryID, original *int64
		priority             int16
		pattern              string
		deletedAt            *time.Time
	)
	err := row.Scan(
		&id,
		&userID,
		&categoryID,
		&t.Title,
		&t.Description,
		&priority,
		&t.DueDate,
		&t.IsCompleted,
		&t.CompletedAt,
		&t.IsRecurring,
		&pattern,
		&t.RecurrenceInterval,
		&t.RecurrenceEndDate,
		&t.NextDueDate,
		&original,
		&t.CreatedAt,
		&t.UpdatedAt,
		&deletedAt,
	)
	if err != nil {
		return nil, err
	}

	t.ID = uint(id)
	t.UserID = uint(userID)
	t.CategoryID = toUint(categoryID)
	t.OriginalTaskID = toUint(original)
	t.Priority = model.Priority(priority)
	t.RecurrencePattern = model.RecurrencePattern(pattern)
	t.DueDate = utc(t.DueDate)
	t.CompletedAt = utc(t.CompletedAt)
	t.RecurrenceEndDate = utc(t.RecurrenceEndDate)
	t.NextDueDate = utc(t.NextDueDate)
	if deletedAt != nil {
		t.DeletedAt = gorm.DeletedAt{Time: deletedAt.UTC(), Valid: true}
	}
	return &t, nil
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

func toInt64(v *uint) *int64 {
	if v == nil {
		return nil
	}
	n := int64(*v)
	return &n
}

func toUint(v *int64) *uint {
	if v == nil {
		return nil
	}
	n := uint(*v)
	return &n
}
