package sheets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/psoe/internal/domain/models"
)

type fakeRepo struct {
	values   [][]interface{}
	readErr  error
	appended map[string][][]interface{}
}

func (f *fakeRepo) AppendRows(_ context.Context, sheetRange string, rows [][]interface{}) error {
	if f.appended == nil {
		f.appended = map[string][][]interface{}{}
	}
	f.appended[sheetRange] = append(f.appended[sheetRange], rows...)
	return nil
}

func (f *fakeRepo) ReadRange(_ context.Context, _ string) ([][]interface{}, error) {
	return f.values, f.readErr
}

func TestInventoryLoaderDecodesUnformattedValues(t *testing.T) {
	repo := &fakeRepo{values: [][]interface{}{
		{"product_id", "product_name", "current_stock", "reorder_quantity", "unit_cost", "unit_price", "low_stock_threshold"},
		{float64(4), "Tea Bags", float64(2), 18.5, 4.4, 8, float64(6)},
	}}

	items, err := NewInventoryLoader(repo, "Inventory!A:G", nil).LoadInventory(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(4), items[0].ProductID)
	assert.Equal(t, "18.50", items[0].ReorderQuantity.StringFixed(2))
	assert.Equal(t, "4.40", items[0].UnitCost.StringFixed(2))
}

func TestInventoryLoaderReadError(t *testing.T) {
	repo := &fakeRepo{readErr: errors.New("quota exceeded")}
	_, err := NewInventoryLoader(repo, "Inventory!A:G", nil).LoadInventory(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestAuditRecorderAppendsOneRowPerDecision(t *testing.T) {
	repo := &fakeRepo{}
	at := time.Date(2025, 11, 3, 6, 0, 0, 0, time.UTC)
	decisions := []models.AllocationDecision{
		{RunID: "run-1", Rank: 1, ProductID: 4, ProductName: "Tea Bags", OrderQuantity: decimal.NewFromInt(18), OrderCost: decimal.RequireFromString("79.2"), BudgetCost: decimal.RequireFromString("79.2"), Status: models.StatusSelected, RunType: models.RunTypeOptimized, Timestamp: at},
		{RunID: "run-1", Rank: 2, ProductID: 9, ProductName: "Cola", OrderQuantity: decimal.NewFromInt(40), OrderCost: decimal.RequireFromString("52"), BudgetCost: decimal.Zero, Status: models.StatusRejected, RunType: models.RunTypeOptimized, Timestamp: at},
	}

	require.NoError(t, NewAuditRecorder(repo, "Audit!A:J").AppendDecisions(context.Background(), decisions))

	rows := repo.appended["Audit!A:J"]
	require.Len(t, rows, 2)
	assert.Equal(t, []interface{}{"2025-11-03T06:00:00Z", "run-1", "OPTIMIZED", 1, int64(4), "Tea Bags", "18", "79.20", "SELECTED", "79.20"}, rows[0])
	assert.Equal(t, "0.00", rows[1][7])
	assert.Equal(t, "REJECTED", rows[1][8])
}

func TestCellString(t *testing.T) {
	assert.Equal(t, "1000000", cellString(1e6))
	assert.Equal(t, "0.1", cellString(0.1))
	assert.Equal(t, "", cellString(nil))
	assert.Equal(t, "Cola", cellString("Cola"))
}
