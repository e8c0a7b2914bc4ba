package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/psoe/internal/config"
	"github.com/mamadbah2/psoe/internal/domain/models"
	"github.com/mamadbah2/psoe/internal/service/reorder"
	"github.com/mamadbah2/psoe/internal/service/reporting"
)

const runTimeout = 2 * time.Minute

// Runner executes one reorder run.
type Runner interface {
	Run(ctx context.Context, budget decimal.Decimal, opts reorder.RunOptions) (models.RunResult, error)
}

// ReportWriter persists the report of a run.
type ReportWriter interface {
	SaveMarkdown(ctx context.Context, result models.RunResult, cmp *models.Comparison) (string, error)
}

// Notifier pushes a short text to the operator.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Scheduler triggers the weekly reorder run.
type Scheduler struct {
	cron     *cron.Cron
	runner   Runner
	reports  ReportWriter
	notifier Notifier
	cfg      config.ReorderConfig
	logger   *zap.Logger
}

// NewScheduler creates a new scheduler instance. reports and notifier may be nil.
func NewScheduler(cfg config.ReorderConfig, runner Runner, reports ReportWriter, notifier Notifier, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}

	return &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		runner:   runner,
		reports:  reports,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// Start registers the weekly run and starts the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.CronSchedule, s.runWeekly); err != nil {
		return fmt.Errorf("schedule weekly run %q: %w", s.cfg.CronSchedule, err)
	}

	s.logger.Info("starting scheduler",
		zap.String("schedule", s.cfg.CronSchedule),
		zap.String("timezone", s.cfg.Timezone),
		zap.String("budget", s.cfg.WeeklyBudget.StringFixed(2)))
	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runWeekly() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	if err := s.RunOnce(ctx); err != nil {
		stages := make([]string, 0, 5)
		for _, st := range reorder.Stages(err) {
			stages = append(stages, string(st))
		}
		s.logger.Error("weekly run finished with errors", zap.Strings("stages", stages), zap.Error(err))
	}
}

// RunOnce performs the weekly run with the configured budget, writes its
// report and notifies the operator. Report and notification failures are
// returned as StageErrors after every step has been attempted.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	s.logger.Info("starting weekly reorder run")

	result, err := s.runner.Run(ctx, s.cfg.WeeklyBudget, reorder.RunOptions{RunType: models.RunTypeOptimized})
	if err != nil && result.RunID == "" {
		s.notify(ctx, fmt.Sprintf("Weekly reorder run failed: %v", err))
		return err
	}

	errs := []error{err}

	if s.reports != nil {
		path, reportErr := s.reports.SaveMarkdown(ctx, result, nil)
		if reportErr != nil {
			errs = append(errs, &reorder.StageError{Stage: reorder.StageReport, Err: reportErr})
		} else {
			s.logger.Info("weekly report saved", zap.String("path", path))
		}
	}

	if notifyErr := s.notify(ctx, reporting.Summarize(result)); notifyErr != nil {
		errs = append(errs, &reorder.StageError{Stage: reorder.StageNotify, Err: notifyErr})
	}

	return errors.Join(errs...)
}

func (s *Scheduler) notify(ctx context.Context, text string) error {
	if s.notifier == nil {
		return nil
	}
	if err := s.notifier.Notify(ctx, text); err != nil {
		s.logger.Warn("failed to notify operator", zap.Error(err))
		return err
	}
	return nil
}
