package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Comparison holds the outcome of the optimized and baseline strategies on the same snapshot.
type Comparison struct {
	Optimized    RunResult       `json:"optimized"`
	Baseline     RunResult       `json:"baseline"`
	ProfitUplift decimal.Decimal `json:"profit_uplift"`
}

// RunSummary is the aggregate persisted for later lookup of a run.
type RunSummary struct {
	RunID               string          `json:"run_id"`
	RunType             RunType         `json:"run_type"`
	WeeklyBudget        decimal.Decimal `json:"weekly_budget"`
	TotalCostSpent      decimal.Decimal `json:"total_cost_spent"`
	RemainingBudget     decimal.Decimal `json:"remaining_budget"`
	TotalExpectedProfit decimal.Decimal `json:"total_expected_profit"`
	LowStockCount       int             `json:"low_stock_count"`
	SelectedCount       int             `json:"selected_count"`
	RejectedCount       int             `json:"rejected_count"`
	UnrankableCount     int             `json:"unrankable_count"`
	CreatedAt           time.Time       `json:"created_at"`
}

// SummaryOf condenses a RunResult.
func SummaryOf(result RunResult) RunSummary {
	return RunSummary{
		RunID:               result.RunID,
		RunType:             result.RunType,
		WeeklyBudget:        result.WeeklyBudget,
		TotalCostSpent:      result.TotalCostSpent,
		RemainingBudget:     result.RemainingBudget,
		TotalExpectedProfit: result.TotalExpectedProfit,
		LowStockCount:       result.LowStockCount,
		SelectedCount:       len(result.Selected()),
		RejectedCount:       len(result.Rejected()),
		UnrankableCount:     len(result.Unrankable),
		CreatedAt:           result.GeneratedAt,
	}
}
