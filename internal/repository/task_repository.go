package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"recurring-planner/internal/model"
	"recurring-planner/internal/recurrence"
)

// TaskRepository handles persistence for templates, instances and plain tasks.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create stores task. Schedule dates are stored as UTC midnight.
func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	recurrence.NormalizeSchedule(task)
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", translate(err))
	}
	return nil
}

// Get loads a task by id. Deleted tasks are reported as ErrNotFound.
func (r *TaskRepository) Get(ctx context.Context, id uint) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).First(&task, id).Error; err != nil {
		return nil, fmt.Errorf("get task %d: %w", id, translate(err))
	}
	return &task, nil
}

// FindTemplate loads a template by id, whether active or ended.
func (r *TaskRepository) FindTemplate(ctx context.Context, id uint) (*model.Task, error) {
	task, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !task.IsTemplate() {
		return nil, fmt.Errorf("get template %d: %w", id, ErrNotFound)
	}
	return task, nil
}

// FindDueTemplates returns active templates whose next occurrence is on or
// before now and still inside the series' end date.
func (r *TaskRepository) FindDueTemplates(ctx context.Context, now time.Time) ([]model.Task, error) {
	var tasks []model.Task
	err := r.db.WithContext(ctx).
		Where("is_recurring = ? AND next_due_date IS NOT NULL AND next_due_date <= ?", true, now.UTC()).
		Where("recurrence_end_date IS NULL OR next_due_date <= recurrence_end_date").
		Order("next_due_date ASC, id ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("find due templates: %w", err)
	}
	return tasks, nil
}

// InsertInstanceAndAdvanceTemplate stores instance and moves template to its
// new NextDueDate/IsRecurring in one transaction. The template row is only
// updated if it is still active and its NextDueDate is still expectedNext;
// otherwise nothing is written and ErrStaleTemplate is returned.
func (r *TaskRepository) InsertInstanceAndAdvanceTemplate(ctx context.Context, instance, template *model.Task, expectedNext time.Time) error {
	if instance.DueDate == nil {
		return fmt.Errorf("insert instance: %w", gorm.ErrInvalidData)
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(instance).Error; err != nil {
			return fmt.Errorf("insert instance: %w", translate(err))
		}

		res := tx.Model(&model.Task{}).
			Where("id = ? AND is_recurring = ? AND next_due_date = ?", template.ID, true, expectedNext).
			Updates(map[string]interface{}{
				"next_due_date": template.NextDueDate,
				"is_recurring":  template.IsRecurring,
			})
		if res.Error != nil {
			return fmt.Errorf("advance template %d: %w", template.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("advance template %d: %w", template.ID, ErrStaleTemplate)
		}
		return nil
	})
}

// SaveCompletion persists the completion fields of a task.
func (r *TaskRepository) SaveCompletion(ctx context.Context, task *model.Task) error {
	res := r.db.WithContext(ctx).Model(&model.Task{}).Where("id = ?", task.ID).
		Updates(map[string]interface{}{
			"is_completed": task.IsCompleted,
			"completed_at": task.CompletedAt,
		})
	if res.Error != nil {
		return fmt.Errorf("complete task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("complete task %d: %w", task.ID, ErrNotFound)
	}
	return nil
}

// DeleteTemplate soft-deletes a template. Instances generated from it are kept.
func (r *TaskRepository) DeleteTemplate(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND original_task_id IS NULL AND recurrence_pattern <> ?", id, model.PatternNone).
		Delete(&model.Task{})
	if res.Error != nil {
		return fmt.Errorf("delete template: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete template %d: %w", id, ErrNotFound)
	}
	return nil
}

func translate(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicateOccurrence
	default:
		return err
	}
}
