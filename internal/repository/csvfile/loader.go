package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/mamadbah2/psoe/internal/domain/models"
	"github.com/mamadbah2/psoe/internal/repository/tabular"
)

// Loader reads an inventory snapshot from a CSV export.
type Loader struct {
	path   string
	logger *zap.Logger
}

// NewLoader builds a loader for the CSV file at path.
func NewLoader(path string, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{path: path, logger: logger}
}

// LoadInventory reads the whole file on every call.
func (l *Loader) LoadInventory(ctx context.Context) ([]models.InventoryItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open inventory csv: %w", err)
	}
	defer file.Close()

	items, err := Parse(file)
	if err != nil {
		return nil, fmt.Errorf("parse inventory csv %s: %w", l.path, err)
	}

	l.logger.Debug("inventory csv loaded", zap.String("path", l.path), zap.Int("items", len(items)))
	return items, nil
}

// Parse decodes CSV content with a header row.
func Parse(r io.Reader) ([]models.InventoryItem, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return tabular.Decode(rows)
}
