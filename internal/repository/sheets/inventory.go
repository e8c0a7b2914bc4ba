package sheets

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/psoe/internal/domain/models"
	"github.com/mamadbah2/psoe/internal/repository/tabular"
)

// InventoryLoader reads the inventory snapshot from a sheet whose first row is the header.
type InventoryLoader struct {
	repo       Repository
	sheetRange string
	logger     *zap.Logger
}

// NewInventoryLoader wires a loader over the given range, e.g. "Inventory!A:G".
func NewInventoryLoader(repo Repository, sheetRange string, logger *zap.Logger) *InventoryLoader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InventoryLoader{repo: repo, sheetRange: sheetRange, logger: logger}
}

// LoadInventory reads and decodes the whole range.
func (l *InventoryLoader) LoadInventory(ctx context.Context) ([]models.InventoryItem, error) {
	values, err := l.repo.ReadRange(ctx, l.sheetRange)
	if err != nil {
		return nil, fmt.Errorf("load inventory range: %w", err)
	}

	rows := make([][]string, 0, len(values))
	for _, row := range values {
		cells := make([]string, 0, len(row))
		for _, cell := range row {
			cells = append(cells, cellString(cell))
		}
		rows = append(rows, cells)
	}

	items, err := tabular.Decode(rows)
	if err != nil {
		return nil, fmt.Errorf("decode inventory range %s: %w", l.sheetRange, err)
	}

	l.logger.Debug("inventory sheet loaded", zap.String("range", l.sheetRange), zap.Int("items", len(items)))
	return items, nil
}

// AuditRecorder appends decisions as rows of an audit sheet.
type AuditRecorder struct {
	repo       Repository
	sheetRange string
}

// NewAuditRecorder wires a recorder over the given range, e.g. "Audit!A:J".
func NewAuditRecorder(repo Repository, sheetRange string) *AuditRecorder {
	return &AuditRecorder{repo: repo, sheetRange: sheetRange}
}

// AppendDecisions writes one row per decision in a single append call.
func (a *AuditRecorder) AppendDecisions(ctx context.Context, decisions []models.AllocationDecision) error {
	rows := make([][]interface{}, 0, len(decisions))
	for _, d := range decisions {
		rows = append(rows, auditRow(d))
	}
	if err := a.repo.AppendRows(ctx, a.sheetRange, rows); err != nil {
		return fmt.Errorf("append audit rows: %w", err)
	}
	return nil
}

func auditRow(d models.AllocationDecision) []interface{} {
	return []interface{}{
		d.Timestamp.UTC().Format(time.RFC3339),
		d.RunID,
		string(d.RunType),
		d.Rank,
		d.ProductID,
		d.ProductName,
		d.OrderQuantity.String(),
		d.BudgetCost.StringFixed(2),
		string(d.Status),
		d.OrderCost.StringFixed(2),
	}
}

// cellString renders unformatted sheet values without exponent notation.
func cellString(v interface{}) string {
	switch n := v.(type) {
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
