package allocation

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/psoe/internal/domain/models"
)

// Engine runs validation, eligibility, ranking and allocation over one snapshot.
// It holds no mutable state and may be shared between goroutines.
type Engine struct {
	strategy Strategy
	now      func() time.Time
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock overrides the clock used to stamp decisions.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine builds an engine for the given strategy, defaulting to Greedy.
func NewEngine(strategy Strategy, opts ...Option) *Engine {
	if strategy == nil {
		strategy = Greedy{}
	}
	e := &Engine{strategy: strategy, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunType reports the label stamped on this engine's decisions.
func (e *Engine) RunType() models.RunType {
	return e.strategy.RunType()
}

// Run validates the snapshot and budget, then produces the full decision set.
// Nothing is produced when validation fails.
func (e *Engine) Run(runID string, items []models.InventoryItem, budget decimal.Decimal) (models.RunResult, error) {
	if err := ValidateBudget(budget); err != nil {
		return models.RunResult{}, err
	}
	if err := Validate(items); err != nil {
		return models.RunResult{}, err
	}

	eligible := FilterLowStock(items)
	candidates, unrankable := RankAll(eligible)
	e.strategy.Order(candidates)

	at := e.now().UTC()
	alloc := Allocate(runID, e.strategy.RunType(), candidates, budget, at)

	return models.RunResult{
		RunID:               runID,
		RunType:             e.strategy.RunType(),
		WeeklyBudget:        budget,
		TotalCostSpent:      alloc.TotalCostSpent,
		RemainingBudget:     alloc.RemainingBudget,
		TotalExpectedProfit: alloc.TotalExpectedProfit,
		LowStockCount:       len(eligible),
		Decisions:           alloc.Decisions,
		Unrankable:          unrankable,
		GeneratedAt:         at,
	}, nil
}
