// Package tabular decodes inventory snapshots from header-addressed rows, the
// shape shared by CSV exports and spreadsheet ranges.
package tabular

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/psoe/internal/domain/models"
)

// Column names, matched case-insensitively.
const (
	ColProductID         = "product_id"
	ColProductName       = "product_name"
	ColCurrentStock      = "current_stock"
	ColReorderQuantity   = "reorder_quantity"
	ColUnitCost          = "unit_cost"
	ColUnitPrice         = "unit_price"
	ColLowStockThreshold = "low_stock_threshold"
)

// Columns lists the inventory columns in their canonical order.
var Columns = []string{
	ColProductID,
	ColProductName,
	ColCurrentStock,
	ColReorderQuantity,
	ColUnitCost,
	ColUnitPrice,
	ColLowStockThreshold,
}

// Header maps lower-cased column names to their position.
type Header map[string]int

// ParseHeader indexes a header row.
func ParseHeader(row []string) (Header, error) {
	index := make(Header, len(row))
	for i, name := range row {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}

	var missing []string
	for _, col := range Columns {
		if col == ColProductName {
			continue
		}
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required headers: %s", strings.Join(missing, ", "))
	}
	return index, nil
}

// DecodeRow turns one data row into an InventoryItem. line is used in error messages only.
func (h Header) DecodeRow(row []string, line int) (models.InventoryItem, error) {
	get := func(key string) string {
		pos, ok := h[key]
		if !ok || pos >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[pos])
	}

	var item models.InventoryItem
	var err error

	if item.ProductID, err = strconv.ParseInt(get(ColProductID), 10, 64); err != nil {
		return item, fmt.Errorf("line %d: invalid %s: %w", line, ColProductID, err)
	}
	item.ProductName = get(ColProductName)

	stock, err := decimal.NewFromString(get(ColCurrentStock))
	if err != nil {
		return item, fmt.Errorf("line %d: invalid %s: %w", line, ColCurrentStock, err)
	}
	if !stock.Equal(stock.Truncate(0)) {
		return item, fmt.Errorf("line %d: %s must be a whole number", line, ColCurrentStock)
	}
	item.CurrentStock = stock.IntPart()

	decimals := []struct {
		col string
		dst *decimal.Decimal
	}{
		{ColReorderQuantity, &item.ReorderQuantity},
		{ColUnitCost, &item.UnitCost},
		{ColUnitPrice, &item.UnitPrice},
		{ColLowStockThreshold, &item.LowStockThreshold},
	}
	for _, f := range decimals {
		v, err := decimal.NewFromString(get(f.col))
		if err != nil {
			return item, fmt.Errorf("line %d: invalid %s: %w", line, f.col, err)
		}
		*f.dst = v
	}

	return item, nil
}

// Decode reads a header row followed by data rows. Blank rows are skipped.
func Decode(rows [][]string) ([]models.InventoryItem, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("missing header row")
	}

	header, err := ParseHeader(rows[0])
	if err != nil {
		return nil, err
	}

	items := make([]models.InventoryItem, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		item, err := header.DecodeRow(row, i+2)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
