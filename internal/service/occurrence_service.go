package service

import (
	"context"
	"fmt"
	"time"

	"recurring-planner/internal/model"
)

// MarkCompleted returns task marked as completed at when. Completing an
// already completed task returns it unchanged. Templates cannot be completed:
// completion belongs to occurrences, not to the schedule.
func MarkCompleted(task model.Task, when time.Time) (model.Task, error) {
	if task.IsTemplate() {
		return task, fmt.Errorf("%w: task %d is a recurring template", ErrInvalidOperation, task.ID)
	}
	if task.IsCompleted {
		return task, nil
	}
	at := when.UTC()
	task.IsCompleted = true
	task.CompletedAt = &at
	return task, nil
}

// OccurrenceService persists completion of instances and plain tasks.
type OccurrenceService struct {
	tasks TaskStore
}

func NewOccurrenceService(tasks TaskStore) *OccurrenceService {
	return &OccurrenceService{tasks: tasks}
}

// Complete marks the task completed. It never touches the template an
// instance was generated from.
func (s *OccurrenceService) Complete(ctx context.Context, taskID uint, when time.Time) (*model.Task, error) {
	task, err := s.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}

	updated, err := MarkCompleted(*task, when)
	if err != nil {
		return nil, err
	}
	if task.IsCompleted {
		return task, nil
	}

	if err := s.tasks.SaveCompletion(ctx, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}
