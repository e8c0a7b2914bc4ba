// Package cli renders runs for the terminal and prompts for the weekly budget.
package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/mamadbah2/psoe/internal/domain/models"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	labelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
	valueStyle    = lipgloss.NewStyle().Bold(true)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50"))
	rejectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	noteStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	boxStyle      = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
	cellStyle  = lipgloss.NewStyle().Padding(0, 1)
	rightAlign = cellStyle.Align(lipgloss.Right)
)

// RenderRun formats a run result for the terminal: a summary box, the
// ranking in allocation order and the unrankable items.
func RenderRun(result models.RunResult) string {
	title := titleStyle.Render(fmt.Sprintf("PSOE %s run", result.RunType))
	if result.RunID != "" {
		title += noteStyle.Render("  " + result.RunID)
	}

	summary := boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		metric("Low-stock items", strconv.Itoa(result.LowStockCount)),
		metric("Weekly budget", money(result.WeeklyBudget.StringFixed(2))),
		metric("Total cost spent", money(result.TotalCostSpent.StringFixed(2))),
		metric("Remaining budget", money(result.RemainingBudget.StringFixed(2))),
		metric("Expected profit", money(result.TotalExpectedProfit.StringFixed(2))),
		metric("Selected / rejected", fmt.Sprintf("%d / %d", len(result.Selected()), len(result.Rejected()))),
	))

	sections := []string{title, summary}

	if len(result.Decisions) == 0 {
		sections = append(sections, noteStyle.Render("No low-stock items to rank."))
	} else {
		sections = append(sections, rankingTable(result.Decisions))
	}

	if len(result.Unrankable) > 0 {
		lines := make([]string, 0, len(result.Unrankable)+1)
		lines = append(lines, labelStyle.Render("Unrankable"))
		for _, u := range result.Unrankable {
			lines = append(lines, noteStyle.Render(fmt.Sprintf("  #%d %s: %s", u.ProductID, u.ProductName, u.Reason)))
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...) + "\n"
}

// RenderComparison formats the optimized and baseline outcomes side by side.
func RenderComparison(cmp models.Comparison) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#444444"))).
		Headers("Strategy", "Selected", "Total cost", "Expected profit").
		StyleFunc(func(row, col int) lipgloss.Style {
			if col == 0 {
				return cellStyle
			}
			return rightAlign
		})

	for _, r := range []models.RunResult{cmp.Optimized, cmp.Baseline} {
		t.Row(
			r.RunType.String(),
			strconv.Itoa(len(r.Selected())),
			r.TotalCostSpent.StringFixed(2),
			r.TotalExpectedProfit.StringFixed(2),
		)
	}

	uplift := metric("Profit uplift", money(cmp.ProfitUplift.StringFixed(2)))
	return lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render("Strategy comparison"), t.String(), uplift) + "\n"
}

func rankingTable(decisions []models.AllocationDecision) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#444444"))).
		Headers("#", "Product", "Score", "Order cost", "Profit", "Status").
		StyleFunc(func(row, col int) lipgloss.Style {
			switch col {
			case 1, 5:
				return cellStyle
			default:
				return rightAlign
			}
		})

	for _, d := range decisions {
		status := selectedStyle.Render(string(d.Status))
		if d.Status == models.StatusRejected {
			status = rejectedStyle.Render(string(d.Status))
		}
		t.Row(
			strconv.Itoa(d.Rank),
			d.ProductName,
			fmt.Sprintf("%.4f", d.PriorityScore),
			d.OrderCost.StringFixed(2),
			d.ExpectedProfit.StringFixed(2),
			status,
		)
	}
	return t.String()
}

func metric(label, value string) string {
	return labelStyle.Width(22).Render(label) + valueStyle.Render(value)
}

func money(v string) string {
	return "Rs " + v
}
