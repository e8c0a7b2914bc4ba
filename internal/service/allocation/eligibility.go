package allocation

import "github.com/mamadbah2/psoe/internal/domain/models"

// FilterLowStock keeps the items below their low-stock threshold, in input order.
func FilterLowStock(items []models.InventoryItem) []models.InventoryItem {
	out := make([]models.InventoryItem, 0, len(items))
	for _, item := range items {
		if item.IsLowStock() {
			out = append(out, item)
		}
	}
	return out
}
