package allocation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/psoe/internal/domain/models"
)

// ErrInvalidInput is matched by every snapshot or budget validation failure.
var ErrInvalidInput = errors.New("invalid input")

// ErrNegativeBudget indicates the weekly budget was below zero.
var ErrNegativeBudget = fmt.Errorf("%w: weekly budget must not be negative", ErrInvalidInput)

// Violation describes one offending field of one inventory record.
type Violation struct {
	ProductID int64  `json:"product_id"`
	Field     string `json:"field"`
	Reason    string `json:"reason"`
}

// ValidationError lists every violation found in a snapshot.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, fmt.Sprintf("product %d: %s %s", v.ProductID, v.Field, v.Reason))
	}
	return fmt.Sprintf("%s: %s", ErrInvalidInput, strings.Join(parts, "; "))
}

// Is lets callers match a ValidationError with errors.Is(err, ErrInvalidInput).
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// Validate checks the whole snapshot and reports every bad record at once.
func Validate(items []models.InventoryItem) error {
	var violations []Violation
	seen := make(map[int64]struct{}, len(items))

	for _, item := range items {
		if _, dup := seen[item.ProductID]; dup {
			violations = append(violations, Violation{ProductID: item.ProductID, Field: "product_id", Reason: "is duplicated"})
		}
		seen[item.ProductID] = struct{}{}

		if item.CurrentStock < 0 {
			violations = append(violations, Violation{ProductID: item.ProductID, Field: "current_stock", Reason: "must not be negative"})
		}

		fields := []struct {
			name  string
			value decimal.Decimal
		}{
			{"reorder_quantity", item.ReorderQuantity},
			{"unit_cost", item.UnitCost},
			{"unit_price", item.UnitPrice},
			{"low_stock_threshold", item.LowStockThreshold},
		}
		for _, f := range fields {
			if f.value.IsNegative() {
				violations = append(violations, Violation{ProductID: item.ProductID, Field: f.name, Reason: "must not be negative"})
			}
		}
	}

	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}

// ValidateBudget rejects negative budgets.
func ValidateBudget(budget decimal.Decimal) error {
	if budget.IsNegative() {
		return ErrNegativeBudget
	}
	return nil
}
