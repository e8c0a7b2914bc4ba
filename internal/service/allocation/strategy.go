package allocation

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/mamadbah2/psoe/internal/domain/models"
)

// Strategy decides the order in which candidates are offered to the budget.
// Order must be stable so equal keys keep their eligibility order.
type Strategy interface {
	RunType() models.RunType
	Order(candidates []models.RankedCandidate)
}

// Greedy offers the highest profit-to-cost ratio first.
type Greedy struct{}

func (Greedy) RunType() models.RunType { return models.RunTypeOptimized }

func (Greedy) Order(candidates []models.RankedCandidate) {
	slices.SortStableFunc(candidates, func(a, b models.RankedCandidate) int {
		return cmp.Compare(b.PriorityScore, a.PriorityScore)
	})
}

// Baseline offers the cheapest orders first.
type Baseline struct{}

func (Baseline) RunType() models.RunType { return models.RunTypeBaseline }

func (Baseline) Order(candidates []models.RankedCandidate) {
	slices.SortStableFunc(candidates, func(a, b models.RankedCandidate) int {
		return a.OrderCost.Cmp(b.OrderCost)
	})
}

// StrategyFor resolves a run type label. An empty label means the optimized strategy.
func StrategyFor(runType models.RunType) (Strategy, error) {
	switch runType {
	case models.RunTypeOptimized, "":
		return Greedy{}, nil
	case models.RunTypeBaseline:
		return Baseline{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown run type %q", ErrInvalidInput, runType)
	}
}
