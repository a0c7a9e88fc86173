package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"recurring-planner/internal/model"
	"recurring-planner/internal/recurrence"
)

// TemplateInput represents data required to create a recurring template.
type TemplateInput struct {
	UserID      uint           `json:"user_id" validate:"required"`
	Title       string         `json:"title" validate:"required,max=200"`
	Description string         `json:"description" validate:"max=2000"`
	Category    string         `json:"category" validate:"max=64"`
	Priority    model.Priority `json:"priority" validate:"gte=0,lte=3"`
	Pattern     string         `json:"pattern"`
	Interval    int            `json:"interval"`
	// StartDate is the first occurrence. Zero means today.
	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

// TaskService owns the template lifecycle outside of generation: creating
// validated templates and deleting them.
type TaskService struct {
	tasks      TaskStore
	categories CategoryResolver
	validate   *validator.Validate
	clock      func() time.Time
}

func NewTaskService(tasks TaskStore, categories CategoryResolver) *TaskService {
	return &TaskService{
		tasks:      tasks,
		categories: categories,
		validate:   validator.New(),
		clock:      time.Now,
	}
}

// CreateTemplate stores a new active template whose first occurrence is
// input.StartDate.
func (s *TaskService) CreateTemplate(ctx context.Context, input TemplateInput) (*model.Task, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}

	pattern, err := recurrence.ParsePattern(input.Pattern)
	if err != nil {
		return nil, err
	}
	if err := recurrence.Validate(pattern, input.Interval); err != nil {
		return nil, err
	}

	today := recurrence.Date(s.clock())
	start := today
	if !input.StartDate.IsZero() {
		start = recurrence.Date(input.StartDate)
	}

	var end *time.Time
	if input.EndDate != nil {
		d := recurrence.Date(*input.EndDate)
		if d.Before(today) {
			return nil, fmt.Errorf("%w: end date %s is before creation date", ErrInvalidTemplate, d.Format(time.DateOnly))
		}
		if d.Before(start) {
			return nil, fmt.Errorf("%w: end date %s is before start date", ErrInvalidTemplate, d.Format(time.DateOnly))
		}
		end = &d
	}

	var categoryID *uint
	if input.Category != "" && s.categories != nil {
		category, err := s.categories.GetOrCreate(ctx, input.UserID, input.Category)
		if err != nil {
			return nil, err
		}
		if category != nil {
			categoryID = &category.ID
		}
	}

	task := model.Task{
		UserID:             input.UserID,
		CategoryID:         categoryID,
		Title:              input.Title,
		Description:        input.Description,
		Priority:           input.Priority,
		IsRecurring:        true,
		RecurrencePattern:  pattern,
		RecurrenceInterval: input.Interval,
		RecurrenceEndDate:  end,
		NextDueDate:        &start,
	}

	if err := s.tasks.Create(ctx, &task); err != nil {
		return nil, err
	}

	return &task, nil
}

func (s *TaskService) FindTemplate(ctx context.Context, id uint) (*model.Task, error) {
	return s.tasks.FindTemplate(ctx, id)
}

// DeleteTemplate removes a template. Generation stops for it immediately;
// instances already generated are kept.
func (s *TaskService) DeleteTemplate(ctx context.Context, id uint) error {
	return s.tasks.DeleteTemplate(ctx, id)
}
