package model

import (
	"time"

	"gorm.io/gorm"
)

// RecurrencePattern is the cadence of a template task.
type RecurrencePattern string

const (
	PatternNone    RecurrencePattern = "none"
	PatternDaily   RecurrencePattern = "daily"
	PatternWeekly  RecurrencePattern = "weekly"
	PatternMonthly RecurrencePattern = "monthly"
	PatternYearly  RecurrencePattern = "yearly"
)

// Priority is copied from a template into every generated instance.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
	PriorityUrgent
)

// TemplateState is the generation lifecycle of a template task.
type TemplateState string

const (
	StateActive  TemplateState = "active"
	StateEnded   TemplateState = "ended"
	StateDeleted TemplateState = "deleted"
)

// Task represents a single item in the planner. The same table stores
// recurring templates, the instances generated from them and plain tasks.
type Task struct {
	ID          uint  `gorm:"primaryKey"`
	UserID      uint  `gorm:"index"`
	CategoryID  *uint `gorm:"index"`
	Title       string
	Description string
	Priority    Priority `gorm:"default:0"`

	// DueDate is the occurrence date for instances.
	DueDate     *time.Time `gorm:"uniqueIndex:idx_task_occurrence,priority:2"`
	IsCompleted bool       `gorm:"default:false"`
	CompletedAt *time.Time

	IsRecurring        bool              `gorm:"default:false;index"`
	RecurrencePattern  RecurrencePattern `gorm:"type:varchar(16);default:none"`
	RecurrenceInterval int
	RecurrenceEndDate  *time.Time
	NextDueDate        *time.Time `gorm:"index"`

	// OriginalTaskID points an instance back at its template. It is a plain
	// column, not an association: deleting either row never touches the other.
	OriginalTaskID *uint `gorm:"uniqueIndex:idx_task_occurrence,priority:1"`

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// IsTemplate reports whether the task is a recurrence definition.
// A template stays a template after its series has ended.
func (t Task) IsTemplate() bool {
	return t.OriginalTaskID == nil && t.RecurrencePattern != "" && t.RecurrencePattern != PatternNone
}

// IsInstance reports whether the task was generated from a template.
func (t Task) IsInstance() bool {
	return t.OriginalTaskID != nil
}

// State derives the template lifecycle state. Only meaningful for templates.
func (t Task) State() TemplateState {
	switch {
	case t.DeletedAt.Valid:
		return StateDeleted
	case t.IsRecurring:
		return StateActive
	default:
		return StateEnded
	}
}
