package reorder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/psoe/internal/domain/models"
	"github.com/mamadbah2/psoe/internal/service/allocation"
)

// Stage names a collaborator of a run.
type Stage string

const (
	StageLoad    Stage = "load"
	StageAudit   Stage = "audit"
	StageSummary Stage = "summary"
	StageReport  Stage = "report"
	StageNotify  Stage = "notify"
)

// StageError attributes a failure to the collaborator that produced it.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// IsStage reports whether err, or any error joined or wrapped inside it, was
// raised by the given collaborator.
func IsStage(err error, stage Stage) bool {
	switch e := err.(type) {
	case nil:
		return false
	case *StageError:
		return e.Stage == stage || IsStage(e.Err, stage)
	case interface{ Unwrap() []error }:
		for _, inner := range e.Unwrap() {
			if IsStage(inner, stage) {
				return true
			}
		}
		return false
	case interface{ Unwrap() error }:
		return IsStage(e.Unwrap(), stage)
	}
	return false
}

// Stages lists the collaborator stages found in err, in pipeline order.
func Stages(err error) []Stage {
	var out []Stage
	for _, st := range []Stage{StageLoad, StageAudit, StageSummary, StageReport, StageNotify} {
		if IsStage(err, st) {
			out = append(out, st)
		}
	}
	return out
}

var (
	// ErrSummariesUnavailable is returned by FindRunSummary when no summary store is configured.
	ErrSummariesUnavailable = errors.New("run summaries are not stored")
	// ErrRunNotFound is returned by summary stores when no summary exists for a run id.
	ErrRunNotFound = errors.New("run summary not found")
)

// InventoryLoader supplies the inventory snapshot of a run.
type InventoryLoader interface {
	LoadInventory(ctx context.Context) ([]models.InventoryItem, error)
}

// AuditRecorder appends the decisions of a run to an append-only log.
type AuditRecorder interface {
	AppendDecisions(ctx context.Context, decisions []models.AllocationDecision) error
}

// SummaryStore keeps run aggregates for later lookup.
type SummaryStore interface {
	SaveRunSummary(ctx context.Context, summary models.RunSummary) error
	FindRunSummary(ctx context.Context, runID string) (models.RunSummary, error)
}

// RunOptions tunes a single run.
type RunOptions struct {
	RunType models.RunType
	// DryRun skips the audit log and summary store.
	DryRun bool
}

// Service coordinates the loader, the allocation engine and the audit sink.
type Service struct {
	loader    InventoryLoader
	audit     AuditRecorder
	summaries SummaryStore
	logger    *zap.Logger
	now       func() time.Time
	newRunID  func() string
}

// NewService wires a reorder service. audit and summaries may be nil.
func NewService(loader InventoryLoader, audit AuditRecorder, summaries SummaryStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		loader:    loader,
		audit:     audit,
		summaries: summaries,
		logger:    logger,
		now:       time.Now,
		newRunID:  uuid.NewString,
	}
}

// LowStock returns the eligible items of the current snapshot.
func (s *Service) LowStock(ctx context.Context) ([]models.InventoryItem, error) {
	items, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if err := allocation.Validate(items); err != nil {
		return nil, err
	}
	return allocation.FilterLowStock(items), nil
}

// Run loads a fresh snapshot, allocates the budget and records the decisions.
// Validation and load failures return no result. Audit and summary failures
// return the full result along with a StageError.
func (s *Service) Run(ctx context.Context, budget decimal.Decimal, opts RunOptions) (models.RunResult, error) {
	strategy, err := allocation.StrategyFor(opts.RunType)
	if err != nil {
		return models.RunResult{}, err
	}
	if err := allocation.ValidateBudget(budget); err != nil {
		return models.RunResult{}, err
	}

	items, err := s.load(ctx)
	if err != nil {
		return models.RunResult{}, err
	}

	result, err := s.engine(strategy).Run(s.newRunID(), items, budget)
	if err != nil {
		s.logger.Warn("allocation rejected snapshot", zap.Error(err))
		return models.RunResult{}, err
	}

	s.logResult(result, opts.DryRun)

	if opts.DryRun {
		return result, nil
	}

	if s.audit != nil && len(result.Decisions) > 0 {
		if err := s.audit.AppendDecisions(ctx, result.Decisions); err != nil {
			s.logger.Error("failed to record decisions", zap.String("run_id", result.RunID), zap.Error(err))
			return result, &StageError{Stage: StageAudit, Err: err}
		}
	}

	if s.summaries != nil {
		if err := s.summaries.SaveRunSummary(ctx, models.SummaryOf(result)); err != nil {
			s.logger.Error("failed to store run summary", zap.String("run_id", result.RunID), zap.Error(err))
			return result, &StageError{Stage: StageSummary, Err: err}
		}
	}

	return result, nil
}

// Compare runs the optimized and baseline strategies on one snapshot without recording them.
func (s *Service) Compare(ctx context.Context, budget decimal.Decimal) (models.Comparison, error) {
	if err := allocation.ValidateBudget(budget); err != nil {
		return models.Comparison{}, err
	}

	items, err := s.load(ctx)
	if err != nil {
		return models.Comparison{}, err
	}

	optimized, err := s.engine(allocation.Greedy{}).Run(s.newRunID(), items, budget)
	if err != nil {
		return models.Comparison{}, err
	}
	baseline, err := s.engine(allocation.Baseline{}).Run(s.newRunID(), items, budget)
	if err != nil {
		return models.Comparison{}, err
	}

	cmp := models.Comparison{
		Optimized:    optimized,
		Baseline:     baseline,
		ProfitUplift: optimized.TotalExpectedProfit.Sub(baseline.TotalExpectedProfit),
	}

	s.logger.Info("strategy comparison complete",
		zap.String("optimized_profit", optimized.TotalExpectedProfit.StringFixed(2)),
		zap.String("baseline_profit", baseline.TotalExpectedProfit.StringFixed(2)),
		zap.String("uplift", cmp.ProfitUplift.StringFixed(2)))

	return cmp, nil
}

// FindRunSummary looks up a stored run aggregate.
func (s *Service) FindRunSummary(ctx context.Context, runID string) (models.RunSummary, error) {
	if s.summaries == nil {
		return models.RunSummary{}, ErrSummariesUnavailable
	}
	return s.summaries.FindRunSummary(ctx, runID)
}

func (s *Service) load(ctx context.Context) ([]models.InventoryItem, error) {
	items, err := s.loader.LoadInventory(ctx)
	if err != nil {
		s.logger.Error("failed to load inventory", zap.Error(err))
		return nil, &StageError{Stage: StageLoad, Err: err}
	}
	return items, nil
}

func (s *Service) engine(strategy allocation.Strategy) *allocation.Engine {
	return allocation.NewEngine(strategy, allocation.WithClock(s.now))
}

func (s *Service) logResult(result models.RunResult, dryRun bool) {
	s.logger.Info("allocation run complete",
		zap.String("run_id", result.RunID),
		zap.String("run_type", result.RunType.String()),
		zap.Bool("dry_run", dryRun),
		zap.Int("low_stock", result.LowStockCount),
		zap.Int("selected", len(result.Selected())),
		zap.Int("rejected", len(result.Rejected())),
		zap.Int("unrankable", len(result.Unrankable)),
		zap.String("budget", result.WeeklyBudget.StringFixed(2)),
		zap.String("spent", result.TotalCostSpent.StringFixed(2)),
		zap.String("remaining", result.RemainingBudget.StringFixed(2)),
		zap.String("expected_profit", result.TotalExpectedProfit.StringFixed(2)))

	for _, u := range result.Unrankable {
		s.logger.Warn("unrankable candidate", zap.Int64("product_id", u.ProductID), zap.String("reason", u.Reason))
	}
}
