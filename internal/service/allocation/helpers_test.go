package allocation

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/psoe/internal/domain/models"
)

var fixedNow = time.Date(2025, 11, 3, 6, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func item(id int64, name string, stock int64, qty, cost, price, threshold string) models.InventoryItem {
	return models.InventoryItem{
		ProductID:         id,
		ProductName:       name,
		CurrentStock:      stock,
		ReorderQuantity:   d(qty),
		UnitCost:          d(cost),
		UnitPrice:         d(price),
		LowStockThreshold: d(threshold),
	}
}

func newTestEngine(strategy Strategy) *Engine {
	return NewEngine(strategy, WithClock(func() time.Time { return fixedNow }))
}

func productIDs(decisions []models.AllocationDecision) []int64 {
	ids := make([]int64, 0, len(decisions))
	for _, dec := range decisions {
		ids = append(ids, dec.ProductID)
	}
	return ids
}

// scenarioSnapshot reproduces the nine low-stock drinks of the weekly report.
// Each margin is distinct so the ranked order is fixed: 1 through 9.
// Items are listed out of ranked order on purpose.
func scenarioSnapshot() []models.InventoryItem {
	return []models.InventoryItem{
		item(7, "Lemonade", 3, "100", "75.056", "97.5728", "40"),       // cost 7505.60, ratio 0.3
		item(2, "Coffee Beans", 1, "100", "104.364", "187.8552", "30"), // cost 10436.40, ratio 0.8
		item(9, "Water Bottle", 0, "100", "61.44", "67.584", "25"),     // cost 6144.00, ratio 0.1
		item(4, "Tea Bags", 4, "100", "33.404", "53.4464", "20"),       // cost 3340.40, ratio 0.6
		item(1, "Energy Drink", 2, "100", "218.295", "414.7605", "50"), // cost 21829.50, ratio 0.9
		item(6, "Diet Soda", 5, "100", "22.84", "31.976", "12"),        // cost 2284.00, ratio 0.4
		item(3, "Berry Juice", 6, "100", "75.231", "127.8927", "60"),   // cost 7523.10, ratio 0.7
		item(8, "Cola", 1, "100", "59.096", "70.9152", "10"),           // cost 5909.60, ratio 0.2
		item(5, "Mango Drink", 2, "100", "67.432", "101.148", "35"),    // cost 6743.20, ratio 0.5
		item(10, "Sparkling Water", 90, "100", "10.00", "15.00", "20"), // not low stock
	}
}
