package cli

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/mamadbah2/psoe/internal/domain/models"
)

func sampleResult() models.RunResult {
	return models.RunResult{
		RunID:               "run-1",
		RunType:             models.RunTypeOptimized,
		WeeklyBudget:        decimal.NewFromInt(200),
		TotalCostSpent:      decimal.NewFromInt(180),
		RemainingBudget:     decimal.NewFromInt(20),
		TotalExpectedProfit: decimal.NewFromInt(270),
		LowStockCount:       3,
		Decisions: []models.AllocationDecision{
			{Rank: 1, ProductName: "Coffee Beans", OrderCost: decimal.NewFromInt(180), ExpectedProfit: decimal.NewFromInt(270), PriorityScore: 1.5, Status: models.StatusSelected},
			{Rank: 2, ProductName: "Cola", OrderCost: decimal.NewFromInt(52), ExpectedProfit: decimal.NewFromInt(28), PriorityScore: 0.5385, Status: models.StatusRejected},
		},
		Unrankable: []models.UnrankableItem{{ProductID: 4, ProductName: "Sample Sachet", Reason: "order cost is zero"}},
	}
}

func TestRenderRun(t *testing.T) {
	out := RenderRun(sampleResult())

	assert.Contains(t, out, "PSOE OPTIMIZED run")
	assert.Contains(t, out, "Rs 20.00")
	assert.Contains(t, out, "Rs 270.00")
	assert.Contains(t, out, "1 / 1")
	assert.Contains(t, out, "Coffee Beans")
	assert.Contains(t, out, "1.5000")
	assert.Contains(t, out, "REJECTED")
	assert.Contains(t, out, "#4 Sample Sachet: order cost is zero")
}

func TestRenderRunEmpty(t *testing.T) {
	out := RenderRun(models.RunResult{RunType: models.RunTypeBaseline, WeeklyBudget: decimal.NewFromInt(10), RemainingBudget: decimal.NewFromInt(10)})
	assert.Contains(t, out, "No low-stock items to rank.")
	assert.NotContains(t, out, "Unrankable")
}

func TestRenderComparison(t *testing.T) {
	baseline := sampleResult()
	baseline.RunType = models.RunTypeBaseline
	baseline.TotalExpectedProfit = decimal.RequireFromString("65.5")

	out := RenderComparison(models.Comparison{Optimized: sampleResult(), Baseline: baseline, ProfitUplift: decimal.RequireFromString("204.5")})

	assert.Contains(t, out, "Strategy comparison")
	assert.Contains(t, out, "BASELINE")
	assert.Contains(t, out, "65.50")
	assert.Contains(t, out, "Rs 204.50")
}
