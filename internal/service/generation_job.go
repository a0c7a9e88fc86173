package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// PassRunner runs one generation pass.
type PassRunner interface {
	RunGenerationPass(ctx context.Context, now time.Time) (PassReport, error)
}

// PassNotifier is told about passes that had failing templates.
type PassNotifier interface {
	NotifyPass(ctx context.Context, report PassReport) error
}

// GenerationJob is the periodic trigger body: it runs a pass with the current
// time, logs the outcome and forwards failing passes to the notifier.
type GenerationJob struct {
	runner   PassRunner
	notifier PassNotifier
	timeout  time.Duration
	logger   *zap.Logger
	clock    func() time.Time
}

// NewGenerationJob builds the job. notifier may be nil; timeout <= 0 disables
// the per-run deadline.
func NewGenerationJob(runner PassRunner, notifier PassNotifier, timeout time.Duration, logger *zap.Logger) *GenerationJob {
	return &GenerationJob{
		runner:   runner,
		notifier: notifier,
		timeout:  timeout,
		logger:   logger,
		clock:    time.Now,
	}
}

// Run executes one pass. It has the func() shape cron expects.
func (j *GenerationJob) Run() {
	_, _ = j.RunOnce(context.Background())
}

// RunOnce executes one pass and returns its report. The job timeout applies
// on top of any deadline ctx already carries.
func (j *GenerationJob) RunOnce(ctx context.Context) (PassReport, error) {
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	report, err := j.runner.RunGenerationPass(ctx, j.clock().UTC())
	switch {
	case errors.Is(err, ErrConcurrentGeneration):
		// The next tick retries.
		return report, err
	case err != nil:
		j.logger.Error("Generation pass failed", zap.String("pass_id", report.PassID), zap.Error(err))
		return report, err
	}

	if len(report.TemplateErrors) > 0 && j.notifier != nil {
		if nerr := j.notifier.NotifyPass(ctx, report); nerr != nil {
			j.logger.Warn("Failed to send pass alert", zap.String("pass_id", report.PassID), zap.Error(nerr))
		}
	}
	return report, nil
}
