package allocation

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/psoe/internal/domain/models"
)

// Allocation is the outcome of one walk over the ordered candidates.
type Allocation struct {
	Decisions           []models.AllocationDecision
	TotalCostSpent      decimal.Decimal
	RemainingBudget     decimal.Decimal
	TotalExpectedProfit decimal.Decimal
}

// Allocate walks the already ordered candidates once. A candidate is selected
// when its order cost fits what is left of the budget and rejected otherwise;
// rejected candidates are never revisited.
func Allocate(runID string, runType models.RunType, candidates []models.RankedCandidate, budget decimal.Decimal, at time.Time) Allocation {
	result := Allocation{
		Decisions:           make([]models.AllocationDecision, 0, len(candidates)),
		TotalCostSpent:      decimal.Zero,
		RemainingBudget:     budget,
		TotalExpectedProfit: decimal.Zero,
	}

	for i, c := range candidates {
		decision := models.AllocationDecision{
			RunID:          runID,
			Rank:           i + 1,
			ProductID:      c.ProductID,
			ProductName:    c.ProductName,
			OrderQuantity:  c.OrderQuantity,
			OrderCost:      c.OrderCost,
			BudgetCost:     decimal.Zero,
			ExpectedProfit: c.ExpectedProfit,
			PriorityScore:  c.PriorityScore,
			Status:         models.StatusRejected,
			RunType:        runType,
			Timestamp:      at,
		}

		if c.OrderCost.LessThanOrEqual(result.RemainingBudget) {
			decision.Status = models.StatusSelected
			decision.BudgetCost = c.OrderCost
			result.RemainingBudget = result.RemainingBudget.Sub(c.OrderCost)
			result.TotalCostSpent = result.TotalCostSpent.Add(c.OrderCost)
			result.TotalExpectedProfit = result.TotalExpectedProfit.Add(c.ExpectedProfit)
		}

		result.Decisions = append(result.Decisions, decision)
	}

	return result
}
