package reporting

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/psoe/internal/domain/models"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func sampleResult() models.RunResult {
	at := time.Date(2025, 11, 3, 6, 0, 0, 0, time.UTC)
	return models.RunResult{
		RunID:               "3f2a9c1e-0000-4000-8000-000000000001",
		RunType:             models.RunTypeOptimized,
		WeeklyBudget:        dec("200"),
		TotalCostSpent:      dec("180"),
		RemainingBudget:     dec("20"),
		TotalExpectedProfit: dec("270"),
		LowStockCount:       4,
		GeneratedAt:         at,
		Decisions: []models.AllocationDecision{
			{Rank: 1, ProductID: 2, ProductName: "Coffee Beans", OrderQuantity: dec("30"), OrderCost: dec("180"), BudgetCost: dec("180"), ExpectedProfit: dec("270"), PriorityScore: 1.5, Status: models.StatusSelected, RunType: models.RunTypeOptimized, Timestamp: at},
			{Rank: 2, ProductID: 1, ProductName: "Cola", OrderQuantity: dec("40"), OrderCost: dec("52"), BudgetCost: decimal.Zero, ExpectedProfit: dec("28"), PriorityScore: 0.5384615384615384, Status: models.StatusRejected, RunType: models.RunTypeOptimized, Timestamp: at},
		},
		Unrankable: []models.UnrankableItem{{ProductID: 4, ProductName: "Sample Sachet", Reason: "order cost is zero"}},
	}
}

func TestRenderMarkdownSections(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderMarkdown(&buf, sampleResult(), nil))
	out := buf.String()

	assert.Contains(t, out, "# PSOE Optimization Report")
	assert.Contains(t, out, "**Generated On:** 2025-11-03 06:00:00 UTC")
	assert.Contains(t, out, "**Weekly Budget:** **Rs 200.00**")
	assert.Contains(t, out, "| **Remaining Budget** | **Rs 20.00** |")
	assert.Contains(t, out, "| **Items Selected for Reorder** | 1 |")
	assert.Contains(t, out, "| 1 | Coffee Beans | 1.5000 | 180.00 | SELECTED |")
	assert.Contains(t, out, "| 2 | Cola | 0.5385 | 52.00 | REJECTED |")
	assert.Contains(t, out, "| Coffee Beans | 30 | 180.00 | 270.00 |")
	assert.Contains(t, out, "| Cola | 52.00 | 28.00 |")
	assert.Contains(t, out, "## 5. Unrankable Items")
	assert.Contains(t, out, "| 4 | Sample Sachet | order cost is zero |")
	assert.NotContains(t, out, "Strategy Comparison")

	ranking := strings.Index(out, "## 2.")
	selected := strings.Index(out, "## 3.")
	rejected := strings.Index(out, "## 4.")
	assert.True(t, ranking < selected && selected < rejected)
}

func TestRenderMarkdownEscapesTableCells(t *testing.T) {
	result := sampleResult()
	result.Decisions[0].ProductName = "Coffee | Beans 1kg"
	result.Unrankable[0].ProductName = "Sachet\nsample"

	var buf bytes.Buffer
	require.NoError(t, RenderMarkdown(&buf, result, nil))
	out := buf.String()

	assert.Contains(t, out, `| 1 | Coffee \| Beans 1kg | 1.5000 | 180.00 | SELECTED |`)
	assert.Contains(t, out, `| Coffee \| Beans 1kg | 30 | 180.00 | 270.00 |`)
	assert.Contains(t, out, "| 4 | Sachet sample | order cost is zero |")
}

func TestRenderMarkdownEmptyRun(t *testing.T) {
	result := models.RunResult{
		RunID:           "empty",
		RunType:         models.RunTypeOptimized,
		WeeklyBudget:    dec("100"),
		TotalCostSpent:  decimal.Zero,
		RemainingBudget: dec("100"),
	}

	var buf bytes.Buffer
	require.NoError(t, RenderMarkdown(&buf, result, nil))
	out := buf.String()

	assert.Contains(t, out, "*No low-stock items to rank.*")
	assert.Contains(t, out, "*No orders were selected within the budget.*")
	assert.Contains(t, out, "*All necessary orders were selected.*")
	assert.NotContains(t, out, "Unrankable Items")
}

func TestRenderMarkdownWithComparison(t *testing.T) {
	optimized := sampleResult()
	baseline := sampleResult()
	baseline.RunType = models.RunTypeBaseline
	baseline.TotalExpectedProfit = dec("65.5")
	baseline.TotalCostSpent = dec("164.5")

	cmp := &models.Comparison{Optimized: optimized, Baseline: baseline, ProfitUplift: dec("204.5")}

	var buf bytes.Buffer
	require.NoError(t, RenderMarkdown(&buf, optimized, cmp))
	out := buf.String()

	assert.Contains(t, out, "## Strategy Comparison")
	assert.Contains(t, out, "| OPTIMIZED | 1 | 180.00 | 270.00 |")
	assert.Contains(t, out, "| BASELINE | 1 | 164.50 | 65.50 |")
	assert.Contains(t, out, "**Profit uplift:** Rs 204.50")
}

func TestSaveMarkdown(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	svc := NewService(dir, nil)

	path, err := svc.SaveMarkdown(context.Background(), sampleResult(), nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "psoe_report_3f2a9c1e-0000-4000-8000-000000000001.md"), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(content), "# PSOE Optimization Report"))
}

func TestSaveMarkdownCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewService(t.TempDir(), nil).SaveMarkdown(ctx, sampleResult(), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSummarize(t *testing.T) {
	text := Summarize(sampleResult())

	assert.Contains(t, text, "PSOE OPTIMIZED run 3f2a9c1e")
	assert.Contains(t, text, "Budget: Rs 200.00, spent 180.00, remaining 20.00")
	assert.Contains(t, text, "Selected 1, rejected 1, unrankable 1")
	assert.Contains(t, text, "- Coffee Beans x30 (180.00)")
}

func TestSummarizeNoLowStock(t *testing.T) {
	text := Summarize(models.RunResult{RunID: "r1", RunType: models.RunTypeBaseline, WeeklyBudget: dec("50")})
	assert.Equal(t, "PSOE BASELINE run r1\nNo low-stock items. Budget Rs 50.00 untouched.", text)
}

func TestSummarizeLowStock(t *testing.T) {
	assert.Equal(t, "No low-stock items.", SummarizeLowStock(nil))

	text := SummarizeLowStock([]models.InventoryItem{{ProductID: 1, ProductName: "Cola", CurrentStock: 2, LowStockThreshold: dec("12")}})
	assert.Equal(t, "1 low-stock items:\n- Cola: 2 left (threshold 12)", text)
}
