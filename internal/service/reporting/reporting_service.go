package reporting

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/psoe/internal/domain/models"
)

const (
	timestampLayout = "2006-01-02 15:04:05"
	currency        = "Rs"
)

// Service writes run reports to a directory and builds short text summaries.
type Service struct {
	dir    string
	logger *zap.Logger
}

// NewService wires a new reporting service writing into dir.
func NewService(dir string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(dir) == "" {
		dir = "."
	}
	return &Service{dir: dir, logger: logger}
}

// SaveMarkdown renders the report of a run into <dir>/psoe_report_<run id>.md and returns the path.
// cmp may be nil.
func (s *Service) SaveMarkdown(ctx context.Context, result models.RunResult, cmp *models.Comparison) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := RenderMarkdown(&buf, result, cmp); err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}

	path := filepath.Join(s.dir, ReportFileName(result.RunID))
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}

	s.logger.Info("report written", zap.String("run_id", result.RunID), zap.String("path", path))
	return path, nil
}

// ReportFileName names the markdown file of a run.
func ReportFileName(runID string) string {
	if runID == "" {
		return "psoe_report.md"
	}
	return fmt.Sprintf("psoe_report_%s.md", runID)
}

// RenderMarkdown writes the full report of a run: summary metrics, the ranking
// in allocation order, the selected and rejected tables and, when cmp is not
// nil, the strategy comparison.
func RenderMarkdown(w io.Writer, result models.RunResult, cmp *models.Comparison) error {
	data := reportData{
		Result:     result,
		Selected:   result.Selected(),
		Rejected:   result.Rejected(),
		Comparison: cmp,
	}
	if err := reportTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

// Summarize condenses a run into a few lines suitable for a chat message.
func Summarize(result models.RunResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "PSOE %s run %s\n", result.RunType, shortID(result.RunID))

	if result.LowStockCount == 0 {
		fmt.Fprintf(&b, "No low-stock items. Budget %s %s untouched.", currency, money(result.WeeklyBudget))
		return b.String()
	}

	selected := result.Selected()
	fmt.Fprintf(&b, "Low-stock items: %d\n", result.LowStockCount)
	fmt.Fprintf(&b, "Budget: %s %s, spent %s, remaining %s\n", currency, money(result.WeeklyBudget), money(result.TotalCostSpent), money(result.RemainingBudget))
	fmt.Fprintf(&b, "Expected profit: %s %s\n", currency, money(result.TotalExpectedProfit))
	fmt.Fprintf(&b, "Selected %d, rejected %d", len(selected), len(result.Rejected()))
	if len(result.Unrankable) > 0 {
		fmt.Fprintf(&b, ", unrankable %d", len(result.Unrankable))
	}

	for _, d := range selected {
		fmt.Fprintf(&b, "\n- %s x%s (%s)", d.ProductName, d.OrderQuantity.String(), money(d.OrderCost))
	}
	return b.String()
}

// SummarizeComparison condenses a strategy comparison for a chat message.
func SummarizeComparison(cmp models.Comparison) string {
	return fmt.Sprintf(
		"Strategy comparison (budget %s %s)\nOptimized: profit %s, cost %s, %d selected\nBaseline: profit %s, cost %s, %d selected\nProfit uplift: %s",
		currency, money(cmp.Optimized.WeeklyBudget),
		money(cmp.Optimized.TotalExpectedProfit), money(cmp.Optimized.TotalCostSpent), len(cmp.Optimized.Selected()),
		money(cmp.Baseline.TotalExpectedProfit), money(cmp.Baseline.TotalCostSpent), len(cmp.Baseline.Selected()),
		money(cmp.ProfitUplift),
	)
}

// SummarizeLowStock lists eligible items for a chat message.
func SummarizeLowStock(items []models.InventoryItem) string {
	if len(items) == 0 {
		return "No low-stock items."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d low-stock items:", len(items))
	for _, item := range items {
		fmt.Fprintf(&b, "\n- %s: %d left (threshold %s)", item.ProductName, item.CurrentStock, item.LowStockThreshold.String())
	}
	return b.String()
}

type reportData struct {
	Result     models.RunResult
	Selected   []models.AllocationDecision
	Rejected   []models.AllocationDecision
	Comparison *models.Comparison
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

var cellEscaper = strings.NewReplacer("|", `\|`, "\r\n", " ", "\n", " ", "\r", " ")

// cell keeps free text inside a single markdown table cell.
func cell(s string) string {
	return cellEscaper.Replace(s)
}

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"cell":     cell,
	"money":    money,
	"score":    func(f float64) string { return fmt.Sprintf("%.4f", f) },
	"qty":      func(d decimal.Decimal) string { return d.String() },
	"datetime": func(t time.Time) string { return t.UTC().Format(timestampLayout) },
	"cur":      func() string { return currency },
}).Parse(reportMarkdown))

const reportMarkdown = `# PSOE Optimization Report

**Run:** {{ .Result.RunID }} ({{ .Result.RunType }})
**Generated On:** {{ datetime .Result.GeneratedAt }} UTC
**Low-Stock Items:** {{ .Result.LowStockCount }}
**Weekly Budget:** **{{ cur }} {{ money .Result.WeeklyBudget }}**

---

## 1. Optimization Summary

| Metric | Value |
| :--- | :--- |
| **Total Cost Spent** | **{{ cur }} {{ money .Result.TotalCostSpent }}** |
| **Remaining Budget** | **{{ cur }} {{ money .Result.RemainingBudget }}** |
| **Total Expected Profit** | **{{ cur }} {{ money .Result.TotalExpectedProfit }}** |
| **Items Selected for Reorder** | {{ len .Selected }} |
| **Items Rejected (Budget Constraint)** | {{ len .Rejected }} |
| **Items Unrankable** | {{ len .Result.Unrankable }} |

---

## 2. Reorder Priority Ranking

{{ if .Result.Decisions -}}
| Rank | Product | Priority Score (Profit/Cost) | Total Order Cost | Status |
| ---: | :--- | ---: | ---: | :--- |
{{ range .Result.Decisions -}}
| {{ .Rank }} | {{ cell .ProductName }} | {{ score .PriorityScore }} | {{ money .OrderCost }} | {{ .Status }} |
{{ end -}}
{{ else -}}
*No low-stock items to rank.*
{{ end }}
---

## 3. Selected Orders (Budget Approved)

{{ if .Selected -}}
| Product | Order Qty | Budget Cost | Expected Profit |
| :--- | ---: | ---: | ---: |
{{ range .Selected -}}
| {{ cell .ProductName }} | {{ qty .OrderQuantity }} | {{ money .BudgetCost }} | {{ money .ExpectedProfit }} |
{{ end -}}
{{ else -}}
*No orders were selected within the budget.*
{{ end }}
---

## 4. Rejected Items (Budget Constraint)

{{ if .Rejected -}}
| Product | Required Cost | Foregone Profit |
| :--- | ---: | ---: |
{{ range .Rejected -}}
| {{ cell .ProductName }} | {{ money .OrderCost }} | {{ money .ExpectedProfit }} |
{{ end -}}
{{ else -}}
*All necessary orders were selected.*
{{ end -}}
{{ if .Result.Unrankable }}
---

## 5. Unrankable Items

| Product ID | Product | Reason |
| ---: | :--- | :--- |
{{ range .Result.Unrankable -}}
| {{ .ProductID }} | {{ cell .ProductName }} | {{ cell .Reason }} |
{{ end -}}
{{ end -}}
{{ with .Comparison }}
---

## Strategy Comparison

| Strategy | Selected | Total Cost | Expected Profit |
| :--- | ---: | ---: | ---: |
| {{ .Optimized.RunType }} | {{ len .Optimized.Selected }} | {{ money .Optimized.TotalCostSpent }} | {{ money .Optimized.TotalExpectedProfit }} |
| {{ .Baseline.RunType }} | {{ len .Baseline.Selected }} | {{ money .Baseline.TotalCostSpent }} | {{ money .Baseline.TotalExpectedProfit }} |

**Profit uplift:** {{ cur }} {{ money .ProfitUplift }}
{{ end -}}
`
