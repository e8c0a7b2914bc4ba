package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/psoe/internal/domain/models"
)

const (
	inventoryTable = "inventory_data"
	auditTable     = "psoe_audit_log"
)

// Repository reads inventory snapshots from and appends decisions to PostgreSQL.
type Repository struct {
	pool   *pgxpool.Pool
	sb     sq.StatementBuilderType
	logger *zap.Logger
}

// NewRepository connects a pool and verifies it with a ping.
func NewRepository(ctx context.Context, databaseURL string, logger *zap.Logger) (*Repository, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return NewRepositoryFromPool(pool, logger), nil
}

// NewRepositoryFromPool wraps an existing pool.
func NewRepositoryFromPool(pool *pgxpool.Pool, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{
		pool:   pool,
		sb:     sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		logger: logger,
	}
}

// LoadInventory returns the whole inventory table ordered by product name then id.
// Filtering to low-stock rows happens in the engine so validation sees every record.
func (r *Repository) LoadInventory(ctx context.Context) ([]models.InventoryItem, error) {
	query, args, err := r.sb.
		Select(
			"product_id",
			"product_name",
			"current_stock",
			"reorder_quantity::text",
			"unit_cost::text",
			"unit_price::text",
			"low_stock_threshold::text",
		).
		From(inventoryTable).
		OrderBy("product_name", "product_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build inventory query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query inventory: %w", err)
	}
	defer rows.Close()

	var items []models.InventoryItem
	for rows.Next() {
		var (
			item                        models.InventoryItem
			qty, cost, price, threshold string
		)
		if err := rows.Scan(&item.ProductID, &item.ProductName, &item.CurrentStock, &qty, &cost, &price, &threshold); err != nil {
			return nil, fmt.Errorf("scan inventory row: %w", err)
		}
		if item.ReorderQuantity, err = decimal.NewFromString(qty); err != nil {
			return nil, fmt.Errorf("product %d reorder_quantity: %w", item.ProductID, err)
		}
		if item.UnitCost, err = decimal.NewFromString(cost); err != nil {
			return nil, fmt.Errorf("product %d unit_cost: %w", item.ProductID, err)
		}
		if item.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("product %d unit_price: %w", item.ProductID, err)
		}
		if item.LowStockThreshold, err = decimal.NewFromString(threshold); err != nil {
			return nil, fmt.Errorf("product %d low_stock_threshold: %w", item.ProductID, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate inventory rows: %w", err)
	}

	r.logger.Debug("inventory loaded", zap.Int("items", len(items)))
	return items, nil
}

// AppendDecisions writes every decision of a run in one transaction.
func (r *Repository) AppendDecisions(ctx context.Context, decisions []models.AllocationDecision) error {
	if len(decisions) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin audit transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, d := range decisions {
		query, args, err := r.sb.
			Insert(auditTable).
			Columns("run_id", "product_id", "order_quantity", "budget_cost", "status", "run_type", "order_timestamp").
			Values(d.RunID, d.ProductID, d.OrderQuantity.String(), d.BudgetCost.StringFixed(2), string(d.Status), string(d.RunType), d.Timestamp).
			ToSql()
		if err != nil {
			return fmt.Errorf("build audit insert: %w", err)
		}
		batch.Queue(query, args...)
	}

	results := tx.SendBatch(ctx, batch)
	for _, d := range decisions {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("insert audit row for product %d: %w", d.ProductID, err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("close audit batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit audit transaction: %w", err)
	}

	r.logger.Debug("audit rows appended", zap.Int("rows", len(decisions)), zap.String("run_id", decisions[0].RunID))
	return nil
}

// UpsertInventory inserts the items, replacing rows that share a product id.
func (r *Repository) UpsertInventory(ctx context.Context, items []models.InventoryItem) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	insert := r.sb.
		Insert(inventoryTable).
		Columns("product_id", "product_name", "current_stock", "reorder_quantity", "unit_cost", "unit_price", "low_stock_threshold").
		Suffix(`ON CONFLICT (product_id) DO UPDATE SET
			product_name = EXCLUDED.product_name,
			current_stock = EXCLUDED.current_stock,
			reorder_quantity = EXCLUDED.reorder_quantity,
			unit_cost = EXCLUDED.unit_cost,
			unit_price = EXCLUDED.unit_price,
			low_stock_threshold = EXCLUDED.low_stock_threshold`)
	for _, item := range items {
		insert = insert.Values(
			item.ProductID,
			item.ProductName,
			item.CurrentStock,
			item.ReorderQuantity.String(),
			item.UnitCost.String(),
			item.UnitPrice.String(),
			item.LowStockThreshold.String(),
		)
	}

	query, args, err := insert.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build inventory upsert: %w", err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("upsert inventory: %w", err)
	}

	r.logger.Info("inventory upserted", zap.Int64("rows", tag.RowsAffected()))
	return int(tag.RowsAffected()), nil
}

// DecisionsForRun reads back the audit rows of a run in insertion order.
func (r *Repository) DecisionsForRun(ctx context.Context, runID string) ([]models.AllocationDecision, error) {
	query, args, err := r.sb.
		Select("run_id::text", "product_id", "order_quantity::text", "budget_cost::text", "status", "run_type", "order_timestamp").
		From(auditTable).
		Where(sq.Eq{"run_id": runID}).
		OrderBy("log_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build audit query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	defer rows.Close()

	var decisions []models.AllocationDecision
	for rows.Next() {
		var (
			d         models.AllocationDecision
			qty, cost string
			status    string
			runType   string
		)
		if err := rows.Scan(&d.RunID, &d.ProductID, &qty, &cost, &status, &runType, &d.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		if d.OrderQuantity, err = decimal.NewFromString(qty); err != nil {
			return nil, fmt.Errorf("audit order_quantity: %w", err)
		}
		if d.BudgetCost, err = decimal.NewFromString(cost); err != nil {
			return nil, fmt.Errorf("audit budget_cost: %w", err)
		}
		d.Status = models.DecisionStatus(status)
		d.RunType = models.RunType(runType)
		decisions = append(decisions, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit rows: %w", err)
	}
	return decisions, nil
}

// Ping verifies the pool can reach the database.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close releases the pool.
func (r *Repository) Close() {
	r.pool.Close()
}
