package service

import (
	"context"
	"time"

	"recurring-planner/internal/model"
)

// GenerationStore is the persistence the generation pass runs against.
type GenerationStore interface {
	// FindDueTemplates returns active templates with NextDueDate <= now that
	// are still within their end date.
	FindDueTemplates(ctx context.Context, now time.Time) ([]model.Task, error)

	// InsertInstanceAndAdvanceTemplate stores instance and template's new
	// NextDueDate/IsRecurring as one transaction. expectedNext is the
	// NextDueDate as it was read. It fails with repository.ErrStaleTemplate,
	// writing nothing, when the stored template is no longer active or its
	// NextDueDate is no longer expectedNext.
	InsertInstanceAndAdvanceTemplate(ctx context.Context, instance, template *model.Task, expectedNext time.Time) error
}

// TaskStore reads and writes single tasks.
type TaskStore interface {
	Get(ctx context.Context, id uint) (*model.Task, error)
	Create(ctx context.Context, task *model.Task) error
	SaveCompletion(ctx context.Context, task *model.Task) error
	FindTemplate(ctx context.Context, id uint) (*model.Task, error)
	DeleteTemplate(ctx context.Context, id uint) error
}

// CategoryResolver maps a category name to the user's category row.
type CategoryResolver interface {
	GetOrCreate(ctx context.Context, userID uint, name string) (*model.Category, error)
}
