package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/mamadbah2/psoe/internal/domain/models"
	"github.com/mamadbah2/psoe/internal/service/reorder"
)

const (
	auditCollection   = "psoe_audit_log"
	summaryCollection = "run_summaries"
	disconnectTimeout = 5 * time.Second
)

// MongoDBRepository stores audit decisions and run summaries in MongoDB.
type MongoDBRepository struct {
	client *mongo.Client
	dbName string
}

// NewMongoDBRepository creates a new MongoDB repository.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string) (*MongoDBRepository, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := pingOrDisconnect(ctx, client); err != nil {
		return nil, err
	}

	return &MongoDBRepository{client: client, dbName: dbName}, nil
}

type pinger interface {
	Ping(ctx context.Context, rp *readpref.ReadPref) error
	Disconnect(ctx context.Context) error
}

// pingOrDisconnect releases the client when the server cannot be reached.
func pingOrDisconnect(ctx context.Context, client pinger) error {
	err := client.Ping(ctx, nil)
	if err == nil {
		return nil
	}

	discCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), disconnectTimeout)
	defer cancel()
	if discErr := client.Disconnect(discCtx); discErr != nil {
		err = errors.Join(err, discErr)
	}
	return fmt.Errorf("failed to ping mongodb: %w", err)
}

type auditDocument struct {
	RunID          string               `bson:"run_id"`
	ProductID      int64                `bson:"product_id"`
	OrderQuantity  primitive.Decimal128 `bson:"order_quantity"`
	BudgetCost     primitive.Decimal128 `bson:"budget_cost"`
	Status         string               `bson:"status"`
	RunType        string               `bson:"run_type"`
	OrderTimestamp time.Time            `bson:"order_timestamp"`
}

type summaryDocument struct {
	RunID               string               `bson:"run_id"`
	RunType             string               `bson:"run_type"`
	WeeklyBudget        primitive.Decimal128 `bson:"weekly_budget"`
	TotalCostSpent      primitive.Decimal128 `bson:"total_cost_spent"`
	RemainingBudget     primitive.Decimal128 `bson:"remaining_budget"`
	TotalExpectedProfit primitive.Decimal128 `bson:"total_expected_profit"`
	LowStockCount       int                  `bson:"low_stock_count"`
	SelectedCount       int                  `bson:"selected_count"`
	RejectedCount       int                  `bson:"rejected_count"`
	UnrankableCount     int                  `bson:"unrankable_count"`
	CreatedAt           time.Time            `bson:"created_at"`
}

// AppendDecisions inserts one document per decision. Existing documents are never touched.
func (r *MongoDBRepository) AppendDecisions(ctx context.Context, decisions []models.AllocationDecision) error {
	if len(decisions) == 0 {
		return nil
	}

	docs := make([]interface{}, 0, len(decisions))
	for _, d := range decisions {
		doc, err := toAuditDocument(d)
		if err != nil {
			return err
		}
		docs = append(docs, doc)
	}

	collection := r.client.Database(r.dbName).Collection(auditCollection)
	if _, err := collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true)); err != nil {
		return fmt.Errorf("failed to insert audit decisions: %w", err)
	}
	return nil
}

// SaveRunSummary stores the aggregate of a run.
func (r *MongoDBRepository) SaveRunSummary(ctx context.Context, summary models.RunSummary) error {
	doc, err := toSummaryDocument(summary)
	if err != nil {
		return err
	}

	collection := r.client.Database(r.dbName).Collection(summaryCollection)
	if _, err := collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert run summary: %w", err)
	}
	return nil
}

// FindRunSummary loads the summary of a run by id.
func (r *MongoDBRepository) FindRunSummary(ctx context.Context, runID string) (models.RunSummary, error) {
	collection := r.client.Database(r.dbName).Collection(summaryCollection)

	var doc summaryDocument
	err := collection.FindOne(ctx, bson.M{"run_id": runID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.RunSummary{}, fmt.Errorf("%w: %s", reorder.ErrRunNotFound, runID)
	}
	if err != nil {
		return models.RunSummary{}, fmt.Errorf("failed to find run summary: %w", err)
	}
	return fromSummaryDocument(doc)
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func toAuditDocument(d models.AllocationDecision) (auditDocument, error) {
	qty, err := toDecimal128(d.OrderQuantity)
	if err != nil {
		return auditDocument{}, fmt.Errorf("product %d order_quantity: %w", d.ProductID, err)
	}
	cost, err := toDecimal128(d.BudgetCost)
	if err != nil {
		return auditDocument{}, fmt.Errorf("product %d budget_cost: %w", d.ProductID, err)
	}
	return auditDocument{
		RunID:          d.RunID,
		ProductID:      d.ProductID,
		OrderQuantity:  qty,
		BudgetCost:     cost,
		Status:         string(d.Status),
		RunType:        string(d.RunType),
		OrderTimestamp: d.Timestamp,
	}, nil
}

func toSummaryDocument(s models.RunSummary) (summaryDocument, error) {
	doc := summaryDocument{
		RunID:           s.RunID,
		RunType:         string(s.RunType),
		LowStockCount:   s.LowStockCount,
		SelectedCount:   s.SelectedCount,
		RejectedCount:   s.RejectedCount,
		UnrankableCount: s.UnrankableCount,
		CreatedAt:       s.CreatedAt,
	}

	fields := []struct {
		name string
		src  decimal.Decimal
		dst  *primitive.Decimal128
	}{
		{"weekly_budget", s.WeeklyBudget, &doc.WeeklyBudget},
		{"total_cost_spent", s.TotalCostSpent, &doc.TotalCostSpent},
		{"remaining_budget", s.RemainingBudget, &doc.RemainingBudget},
		{"total_expected_profit", s.TotalExpectedProfit, &doc.TotalExpectedProfit},
	}
	for _, f := range fields {
		v, err := toDecimal128(f.src)
		if err != nil {
			return summaryDocument{}, fmt.Errorf("run %s %s: %w", s.RunID, f.name, err)
		}
		*f.dst = v
	}
	return doc, nil
}

func fromSummaryDocument(doc summaryDocument) (models.RunSummary, error) {
	summary := models.RunSummary{
		RunID:           doc.RunID,
		RunType:         models.RunType(doc.RunType),
		LowStockCount:   doc.LowStockCount,
		SelectedCount:   doc.SelectedCount,
		RejectedCount:   doc.RejectedCount,
		UnrankableCount: doc.UnrankableCount,
		CreatedAt:       doc.CreatedAt,
	}

	fields := []struct {
		src primitive.Decimal128
		dst *decimal.Decimal
	}{
		{doc.WeeklyBudget, &summary.WeeklyBudget},
		{doc.TotalCostSpent, &summary.TotalCostSpent},
		{doc.RemainingBudget, &summary.RemainingBudget},
		{doc.TotalExpectedProfit, &summary.TotalExpectedProfit},
	}
	for _, f := range fields {
		v, err := decimal.NewFromString(f.src.String())
		if err != nil {
			return models.RunSummary{}, fmt.Errorf("decode run %s: %w", doc.RunID, err)
		}
		*f.dst = v
	}
	return summary, nil
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	return primitive.ParseDecimal128(d.String())
}
