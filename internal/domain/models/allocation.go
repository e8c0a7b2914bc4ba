package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RunType labels the strategy that produced a set of decisions.
type RunType string

const (
	// RunTypeOptimized ranks by profit-to-cost ratio.
	RunTypeOptimized RunType = "OPTIMIZED"
	// RunTypeBaseline takes the cheapest orders first.
	RunTypeBaseline RunType = "BASELINE"
)

// IsValid checks the run type against the known strategies.
func (r RunType) IsValid() bool {
	switch r {
	case RunTypeOptimized, RunTypeBaseline:
		return true
	default:
		return false
	}
}

func (r RunType) String() string {
	return string(r)
}

// DecisionStatus is the outcome recorded for a ranked candidate.
type DecisionStatus string

const (
	StatusSelected DecisionStatus = "SELECTED"
	StatusRejected DecisionStatus = "REJECTED"
)

// RankedCandidate is the per-run view of an eligible item with its money figures.
type RankedCandidate struct {
	ProductID      int64           `json:"product_id"`
	ProductName    string          `json:"product_name"`
	OrderQuantity  decimal.Decimal `json:"order_quantity"`
	OrderCost      decimal.Decimal `json:"order_cost"`
	ExpectedProfit decimal.Decimal `json:"expected_profit"`
	PriorityScore  float64         `json:"priority_score"`
}

// AllocationDecision is the immutable audit record of one candidate's outcome.
// BudgetCost is the amount committed against the budget, zero for rejections;
// OrderCost always holds the full cost of the order.
type AllocationDecision struct {
	RunID          string          `json:"run_id"`
	Rank           int             `json:"rank"`
	ProductID      int64           `json:"product_id"`
	ProductName    string          `json:"product_name"`
	OrderQuantity  decimal.Decimal `json:"order_quantity"`
	OrderCost      decimal.Decimal `json:"order_cost"`
	BudgetCost     decimal.Decimal `json:"budget_cost"`
	ExpectedProfit decimal.Decimal `json:"expected_profit"`
	PriorityScore  float64         `json:"priority_score"`
	Status         DecisionStatus  `json:"status"`
	RunType        RunType         `json:"run_type"`
	Timestamp      time.Time       `json:"timestamp"`
}

// UnrankableItem is an eligible item that could not enter the ranking.
type UnrankableItem struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Reason      string `json:"reason"`
}

// RunResult aggregates one engine invocation.
type RunResult struct {
	RunID               string               `json:"run_id"`
	RunType             RunType              `json:"run_type"`
	WeeklyBudget        decimal.Decimal      `json:"weekly_budget"`
	TotalCostSpent      decimal.Decimal      `json:"total_cost_spent"`
	RemainingBudget     decimal.Decimal      `json:"remaining_budget"`
	TotalExpectedProfit decimal.Decimal      `json:"total_expected_profit"`
	LowStockCount       int                  `json:"low_stock_count"`
	Decisions           []AllocationDecision `json:"decisions"`
	Unrankable          []UnrankableItem     `json:"unrankable"`
	GeneratedAt         time.Time            `json:"generated_at"`
}

// Selected returns the accepted decisions in ranked order.
func (r RunResult) Selected() []AllocationDecision {
	return r.filter(StatusSelected)
}

// Rejected returns the rejected decisions in ranked order.
func (r RunResult) Rejected() []AllocationDecision {
	return r.filter(StatusRejected)
}

func (r RunResult) filter(status DecisionStatus) []AllocationDecision {
	out := make([]AllocationDecision, 0, len(r.Decisions))
	for _, d := range r.Decisions {
		if d.Status == status {
			out = append(out, d)
		}
	}
	return out
}
