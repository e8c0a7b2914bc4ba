package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/psoe/internal/config"
	"github.com/mamadbah2/psoe/internal/service/reorder"
)

const inventoryCSV = `product_id,product_name,current_stock,reorder_quantity,unit_cost,unit_price,low_stock_threshold
1,Cola,2,40,1.30,2.00,12
2,Coffee Beans,1,30,6.00,15.00,9
3,Tea Bags,50,20,4.40,8.00,6
`

func csvConfig(t *testing.T) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "inventory.csv")
	require.NoError(t, os.WriteFile(path, []byte(inventoryCSV), 0o600))
	return &config.Config{
		Inventory: config.InventoryConfig{Source: config.SourceCSV, CSVPath: path},
		Audit:     config.AuditConfig{Sink: config.SinkNone},
	}
}

func TestBuildCSVWithoutSink(t *testing.T) {
	deps, err := Build(context.Background(), csvConfig(t), nil)
	require.NoError(t, err)
	defer deps.Close(context.Background())

	assert.Nil(t, deps.Decisions)

	result, err := deps.Reorder.Run(context.Background(), decimal.NewFromInt(200), reorder.RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, result.LowStockCount)
	require.Len(t, result.Selected(), 1)
	assert.Equal(t, int64(2), result.Selected()[0].ProductID)

	_, err = deps.Reorder.FindRunSummary(context.Background(), result.RunID)
	assert.ErrorIs(t, err, reorder.ErrSummariesUnavailable)
}

func TestBuildRejectsUnknownSelections(t *testing.T) {
	cfg := csvConfig(t)
	cfg.Audit.Sink = "kafka"
	_, err := Build(context.Background(), cfg, nil)
	assert.ErrorContains(t, err, "kafka")

	cfg = csvConfig(t)
	cfg.Inventory.Source = "ftp"
	_, err = Build(context.Background(), cfg, nil)
	assert.ErrorContains(t, err, "ftp")
}
