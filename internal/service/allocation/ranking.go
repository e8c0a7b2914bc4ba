package allocation

import (
	"github.com/shopspring/decimal"

	"github.com/mamadbah2/psoe/internal/domain/models"
)

// CurrencyPlaces is the number of fractional digits kept on money values.
const CurrencyPlaces = 2

// ReasonZeroOrderCost marks candidates whose order would cost nothing.
const ReasonZeroOrderCost = "order cost is zero"

// Rank computes the money figures and priority score of an item. The boolean
// is false when the order cost is zero and the item cannot be ranked.
func Rank(item models.InventoryItem) (models.RankedCandidate, bool) {
	cost := item.ReorderQuantity.Mul(item.UnitCost).Round(CurrencyPlaces)
	profit := item.ReorderQuantity.Mul(item.UnitPrice.Sub(item.UnitCost)).Round(CurrencyPlaces)

	candidate := models.RankedCandidate{
		ProductID:      item.ProductID,
		ProductName:    item.ProductName,
		OrderQuantity:  item.ReorderQuantity,
		OrderCost:      cost,
		ExpectedProfit: profit,
	}
	if cost.IsZero() {
		return candidate, false
	}

	candidate.PriorityScore = priorityScore(profit, cost)
	return candidate, true
}

// RankAll ranks every item, splitting off the unrankable ones. Input order is kept.
func RankAll(items []models.InventoryItem) ([]models.RankedCandidate, []models.UnrankableItem) {
	ranked := make([]models.RankedCandidate, 0, len(items))
	var unrankable []models.UnrankableItem

	for _, item := range items {
		candidate, ok := Rank(item)
		if !ok {
			unrankable = append(unrankable, models.UnrankableItem{
				ProductID:   item.ProductID,
				ProductName: item.ProductName,
				Reason:      ReasonZeroOrderCost,
			})
			continue
		}
		ranked = append(ranked, candidate)
	}
	return ranked, unrankable
}

func priorityScore(profit, cost decimal.Decimal) float64 {
	return profit.Div(cost).InexactFloat64()
}
