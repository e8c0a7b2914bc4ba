package models

import "github.com/shopspring/decimal"

// InventoryItem captures the stock state of one product as materialized by a loader.
type InventoryItem struct {
	ProductID         int64           `json:"product_id"`
	ProductName       string          `json:"product_name"`
	CurrentStock      int64           `json:"current_stock"`
	ReorderQuantity   decimal.Decimal `json:"reorder_quantity"`
	UnitCost          decimal.Decimal `json:"unit_cost"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	LowStockThreshold decimal.Decimal `json:"low_stock_threshold"`
}

// IsLowStock reports whether the current stock sits strictly below the threshold.
func (i InventoryItem) IsLowStock() bool {
	return decimal.NewFromInt(i.CurrentStock).LessThan(i.LowStockThreshold)
}
