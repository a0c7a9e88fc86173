package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"recurring-planner/internal/lock"
	"recurring-planner/internal/metrics"
	"recurring-planner/internal/model"
	"recurring-planner/internal/recurrence"
	"recurring-planner/internal/repository"
)

// DefaultMaxCatchUpPerTemplate bounds backlog generation for one template in one pass.
const DefaultMaxCatchUpPerTemplate = 31

// GenerationConfig tunes a generation pass.
type GenerationConfig struct {
	// MaxCatchUpPerTemplate caps occurrences generated per template per pass.
	MaxCatchUpPerTemplate int
	// PassBudget stops a pass between steps once exceeded. Zero disables it.
	PassBudget time.Duration
}

// PassReport summarizes one generation pass.
type PassReport struct {
	PassID           string
	Now              time.Time
	TemplatesScanned int
	GeneratedCount   int
	TemplateErrors   []TemplateError
	// BudgetExhausted and Interrupted mean some due templates were left for
	// the next pass.
	BudgetExhausted bool
	Interrupted     bool
}

func (r PassReport) stopped() bool {
	return r.BudgetExhausted || r.Interrupted
}

// GenerationService turns due recurring templates into dated task instances.
type GenerationService struct {
	store  GenerationStore
	locker lock.Locker
	cfg    GenerationConfig
	logger *zap.Logger
	clock  func() time.Time
}

func NewGenerationService(store GenerationStore, locker lock.Locker, cfg GenerationConfig, logger *zap.Logger) *GenerationService {
	if cfg.MaxCatchUpPerTemplate < 1 {
		cfg.MaxCatchUpPerTemplate = DefaultMaxCatchUpPerTemplate
	}
	return &GenerationService{
		store:  store,
		locker: locker,
		cfg:    cfg,
		logger: logger,
		clock:  time.Now,
	}
}

// RunGenerationPass generates every occurrence due on or before now, up to
// MaxCatchUpPerTemplate per template.
//
// Only lock contention (ErrConcurrentGeneration) and a failure to list due
// templates abort the pass. Failures of single templates are collected in
// the report and do not stop the others.
func (s *GenerationService) RunGenerationPass(ctx context.Context, now time.Time) (PassReport, error) {
	report := PassReport{PassID: uuid.NewString(), Now: now}
	log := s.logger.With(zap.String("pass_id", report.PassID))

	release, err := s.locker.TryLock(ctx)
	if err != nil {
		if errors.Is(err, lock.ErrLocked) {
			metrics.RecordLockContention()
			log.Info("Generation pass skipped, another pass is running")
			return report, ErrConcurrentGeneration
		}
		return report, fmt.Errorf("acquire generation lock: %w", err)
	}
	defer release()

	started := s.clock()
	outcome := "ok"
	defer func() {
		metrics.RecordPass(outcome, s.clock().Sub(started))
	}()

	templates, err := s.store.FindDueTemplates(ctx, now)
	if err != nil {
		outcome = "failed"
		log.Error("Failed to list due templates", zap.Error(err))
		return report, fmt.Errorf("%w: %w", ErrPersistenceFailure, err)
	}
	report.TemplatesScanned = len(templates)

	for _, tpl := range templates {
		if s.checkStop(ctx, started, &report) {
			break
		}

		n, err := s.generateForTemplate(ctx, log, tpl, now, started, &report)
		report.GeneratedCount += n
		if err != nil {
			te := TemplateError{TemplateID: tpl.ID, Kind: KindOf(err), Err: err}
			report.TemplateErrors = append(report.TemplateErrors, te)
			metrics.RecordTemplateError(string(te.Kind))
			log.Error("Template generation failed",
				zap.Uint("template_id", tpl.ID),
				zap.String("kind", string(te.Kind)),
				zap.Int("generated_before_failure", n),
				zap.Error(err),
			)
		}
	}

	if len(report.TemplateErrors) > 0 || report.stopped() {
		outcome = "partial"
	}
	log.Info("Generation pass completed",
		zap.Time("now", now),
		zap.Int("templates", report.TemplatesScanned),
		zap.Int("generated_count", report.GeneratedCount),
		zap.Int("failed_templates", len(report.TemplateErrors)),
		zap.Bool("budget_exhausted", report.BudgetExhausted),
		zap.Bool("interrupted", report.Interrupted),
	)
	return report, nil
}

// checkStop records in report whether the pass must stop before the next step.
func (s *GenerationService) checkStop(ctx context.Context, started time.Time, report *PassReport) bool {
	if ctx.Err() != nil {
		report.Interrupted = true
	}
	if s.cfg.PassBudget > 0 && s.clock().Sub(started) >= s.cfg.PassBudget {
		report.BudgetExhausted = true
	}
	return report.stopped()
}

func (s *GenerationService) generateForTemplate(
	ctx context.Context,
	log *zap.Logger,
	tpl model.Task,
	now time.Time,
	started time.Time,
	report *PassReport,
) (int, error) {
	log = log.With(zap.Uint("template_id", tpl.ID))

	if tpl.OriginalTaskID != nil {
		return 0, fmt.Errorf("%w: template %d refers to task %d", ErrChainIntegrityViolation, tpl.ID, *tpl.OriginalTaskID)
	}
	if err := recurrence.Validate(tpl.RecurrencePattern, tpl.RecurrenceInterval); err != nil {
		return 0, err
	}

	generated := 0
	for generated < s.cfg.MaxCatchUpPerTemplate && isDue(tpl, now) {
		if generated > 0 && s.checkStop(ctx, started, report) {
			break
		}

		read := *tpl.NextDueDate
		occurrence := recurrence.Date(read)
		advanced, err := recurrence.Next(occurrence, tpl.RecurrencePattern, tpl.RecurrenceInterval)
		if err != nil {
			return generated, err
		}

		instance := newInstance(tpl, occurrence)
		next := tpl
		next.NextDueDate = &advanced
		ended := tpl.RecurrenceEndDate != nil && advanced.After(recurrence.Date(*tpl.RecurrenceEndDate))
		if ended {
			next.IsRecurring = false
		}

		if err := s.store.InsertInstanceAndAdvanceTemplate(ctx, &instance, &next, read); err != nil {
			if errors.Is(err, repository.ErrStaleTemplate) {
				log.Info("Template changed since scan, skipping", zap.Error(err))
				return generated, nil
			}
			return generated, fmt.Errorf("%w: %w", ErrPersistenceFailure, err)
		}

		generated++
		metrics.RecordInstanceGenerated(ended)
		log.Debug("Generated occurrence",
			zap.String("occurrence", occurrence.Format(time.DateOnly)),
			zap.Uint("instance_id", instance.ID),
		)
		if ended {
			log.Info("Recurring series ended",
				zap.String("last_occurrence", occurrence.Format(time.DateOnly)),
			)
		}
		tpl = next
	}

	if generated == s.cfg.MaxCatchUpPerTemplate && isDue(tpl, now) {
		log.Info("Catch-up cap reached, backlog left for next pass",
			zap.Int("cap", s.cfg.MaxCatchUpPerTemplate),
			zap.String("next_due_date", tpl.NextDueDate.Format(time.DateOnly)),
		)
	}
	return generated, nil
}

func isDue(tpl model.Task, now time.Time) bool {
	if !tpl.IsRecurring || tpl.NextDueDate == nil || tpl.NextDueDate.After(now) {
		return false
	}
	return tpl.RecurrenceEndDate == nil || !tpl.NextDueDate.After(*tpl.RecurrenceEndDate)
}

func newInstance(tpl model.Task, occurrence time.Time) model.Task {
	templateID := tpl.ID
	var categoryID *uint
	if tpl.CategoryID != nil {
		id := *tpl.CategoryID
		categoryID = &id
	}
	return model.Task{
		UserID:            tpl.UserID,
		CategoryID:        categoryID,
		Title:             tpl.Title,
		Description:       tpl.Description,
		Priority:          tpl.Priority,
		DueDate:           &occurrence,
		IsRecurring:       false,
		RecurrencePattern: model.PatternNone,
		OriginalTaskID:    &templateID,
	}
}
