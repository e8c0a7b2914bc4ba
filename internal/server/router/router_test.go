package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/psoe/internal/domain/models"
	"github.com/mamadbah2/psoe/internal/server/handlers"
	"github.com/mamadbah2/psoe/internal/service/allocation"
	"github.com/mamadbah2/psoe/internal/service/reorder"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeReorder struct {
	items    []models.InventoryItem
	result   models.RunResult
	cmp      models.Comparison
	summary  models.RunSummary
	err      error
	findErr  error
	lastOpts reorder.RunOptions
	budget   decimal.Decimal
}

func (f *fakeReorder) LowStock(context.Context) ([]models.InventoryItem, error) {
	return f.items, f.err
}

func (f *fakeReorder) Run(_ context.Context, budget decimal.Decimal, opts reorder.RunOptions) (models.RunResult, error) {
	f.budget = budget
	f.lastOpts = opts
	return f.result, f.err
}

func (f *fakeReorder) Compare(_ context.Context, budget decimal.Decimal) (models.Comparison, error) {
	f.budget = budget
	return f.cmp, f.err
}

func (f *fakeReorder) FindRunSummary(context.Context, string) (models.RunSummary, error) {
	return f.summary, f.findErr
}

type fakeDecisions struct {
	rows  []models.AllocationDecision
	err   error
	calls []string
}

func (f *fakeDecisions) DecisionsForRun(_ context.Context, runID string) ([]models.AllocationDecision, error) {
	f.calls = append(f.calls, runID)
	return f.rows, f.err
}

func sampleResult() models.RunResult {
	return models.RunResult{
		RunID:               "run-1",
		RunType:             models.RunTypeOptimized,
		WeeklyBudget:        decimal.NewFromInt(200),
		TotalCostSpent:      decimal.NewFromInt(180),
		RemainingBudget:     decimal.NewFromInt(20),
		TotalExpectedProfit: decimal.NewFromInt(270),
		LowStockCount:       1,
		Decisions: []models.AllocationDecision{{
			RunID: "run-1", Rank: 1, ProductID: 2, ProductName: "Coffee Beans",
			OrderQuantity: decimal.NewFromInt(30), OrderCost: decimal.NewFromInt(180), BudgetCost: decimal.NewFromInt(180),
			ExpectedProfit: decimal.NewFromInt(270), PriorityScore: 1.5, Status: models.StatusSelected, RunType: models.RunTypeOptimized,
		}},
	}
}

func serve(t *testing.T, svc *fakeReorder, decisions handlers.DecisionReader, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	engine := New(handlers.NewRunHandler(svc, decisions, nil), nil, nil)

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealthz(t *testing.T) {
	rec := serve(t, &fakeReorder{}, nil, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestPostRun(t *testing.T) {
	svc := &fakeReorder{result: sampleResult()}
	rec := serve(t, svc, nil, http.MethodPost, "/api/v1/runs", `{"budget":"200.00","run_type":"BASELINE","dry_run":true}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "200", svc.budget.String())
	assert.Equal(t, models.RunTypeBaseline, svc.lastOpts.RunType)
	assert.True(t, svc.lastOpts.DryRun)

	body := decode(t, rec)
	assert.Equal(t, "run-1", body["run_id"])
	assert.Equal(t, "20", body["remaining_budget"])
}

func TestPostRunNumericBudget(t *testing.T) {
	svc := &fakeReorder{result: sampleResult()}
	rec := serve(t, svc, nil, http.MethodPost, "/api/v1/runs", `{"budget":56000.5}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "56000.5", svc.budget.String())
}

func TestPostRunMarkdown(t *testing.T) {
	rec := serve(t, &fakeReorder{result: sampleResult()}, nil, http.MethodPost, "/api/v1/runs?format=markdown", `{"budget":200}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/markdown")
	assert.Contains(t, rec.Body.String(), "# PSOE Optimization Report")
	assert.Contains(t, rec.Body.String(), "| Coffee Beans | 30 | 180.00 | 270.00 |")
}

func TestPostRunMissingBudget(t *testing.T) {
	rec := serve(t, &fakeReorder{}, nil, http.MethodPost, "/api/v1/runs", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, &fakeReorder{}, nil, http.MethodPost, "/api/v1/runs", `{"budget":"lots"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostRunInvalidSnapshot(t *testing.T) {
	err := &allocation.ValidationError{Violations: []allocation.Violation{
		{ProductID: 7, Field: "unit_cost", Reason: "must not be negative"},
		{ProductID: 9, Field: "product_id", Reason: "is duplicated"},
	}}
	rec := serve(t, &fakeReorder{err: err}, nil, http.MethodPost, "/api/v1/runs", `{"budget":100}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "invalid input", body["error"])
	assert.Len(t, body["violations"], 2)
}

func TestPostRunNegativeBudget(t *testing.T) {
	rec := serve(t, &fakeReorder{err: allocation.ErrNegativeBudget}, nil, http.MethodPost, "/api/v1/runs", `{"budget":-1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostRunLoadFailure(t *testing.T) {
	svc := &fakeReorder{err: &reorder.StageError{Stage: reorder.StageLoad, Err: errors.New("connection refused")}}
	rec := serve(t, svc, nil, http.MethodPost, "/api/v1/runs", `{"budget":100}`)

	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "load", decode(t, rec)["stage"])
}

func TestPostRunAuditFailureReturnsResult(t *testing.T) {
	svc := &fakeReorder{result: sampleResult(), err: &reorder.StageError{Stage: reorder.StageAudit, Err: errors.New("insert failed")}}
	rec := serve(t, svc, nil, http.MethodPost, "/api/v1/runs", `{"budget":200}`)

	require.Equal(t, http.StatusBadGateway, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "audit", body["stage"])
	result, ok := body["result"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "run-1", result["run_id"])
}

func TestPostCompare(t *testing.T) {
	optimized := sampleResult()
	baseline := sampleResult()
	baseline.RunType = models.RunTypeBaseline
	svc := &fakeReorder{cmp: models.Comparison{Optimized: optimized, Baseline: baseline, ProfitUplift: decimal.NewFromInt(204)}}

	rec := serve(t, svc, nil, http.MethodPost, "/api/v1/runs/compare", `{"budget":200}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "204", decode(t, rec)["profit_uplift"])

	rec = serve(t, svc, nil, http.MethodPost, "/api/v1/runs/compare?format=markdown", `{"budget":200}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "## Strategy Comparison")
}

func TestGetLowStock(t *testing.T) {
	svc := &fakeReorder{items: []models.InventoryItem{{ProductID: 1, ProductName: "Cola"}}}
	rec := serve(t, svc, nil, http.MethodGet, "/api/v1/low-stock", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["count"])
}

func TestGetRun(t *testing.T) {
	svc := &fakeReorder{summary: models.RunSummary{RunID: "run-1", SelectedCount: 6}}
	rec := serve(t, svc, nil, http.MethodGet, "/api/v1/runs/run-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 6, decode(t, rec)["selected_count"])

	svc.findErr = fmt.Errorf("%w: run-2", reorder.ErrRunNotFound)
	rec = serve(t, svc, nil, http.MethodGet, "/api/v1/runs/run-2", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	svc.findErr = reorder.ErrSummariesUnavailable
	rec = serve(t, svc, nil, http.MethodGet, "/api/v1/runs/run-2", "")
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestGetDecisions(t *testing.T) {
	const runID = "9b2f6c1e-4d4a-4f0e-8a5e-2f1f3c7d9e10"
	rows := sampleResult().Decisions
	rec := serve(t, &fakeReorder{}, &fakeDecisions{rows: rows}, http.MethodGet, "/api/v1/runs/"+runID+"/decisions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, runID, body["run_id"])
	assert.Len(t, body["decisions"], 1)

	rec = serve(t, &fakeReorder{}, &fakeDecisions{}, http.MethodGet, "/api/v1/runs/"+runID+"/decisions", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(t, &fakeReorder{}, &fakeDecisions{err: errors.New("conn reset")}, http.MethodGet, "/api/v1/runs/"+runID+"/decisions", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec = serve(t, &fakeReorder{}, nil, http.MethodGet, "/api/v1/runs/"+runID+"/decisions", "")
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestGetDecisionsRejectsMalformedRunID(t *testing.T) {
	decisions := &fakeDecisions{}
	rec := serve(t, &fakeReorder{}, decisions, http.MethodGet, "/api/v1/runs/not-a-uuid/decisions", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, decisions.calls)
}

func TestWebhookRoutesOnlyWhenConfigured(t *testing.T) {
	rec := serve(t, &fakeReorder{}, nil, http.MethodPost, "/webhook", `{}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type fakeMessaging struct {
	payloads []models.WebhookPayload
}

func (f *fakeMessaging) VerifyWebhookToken(mode, token, challenge string) (string, error) {
	if token != "secret" {
		return "", errors.New("invalid verify token")
	}
	return challenge, nil
}

func (f *fakeMessaging) VerifySignature([]byte, string) error {
	return nil
}

func (f *fakeMessaging) HandleWebhook(_ context.Context, payload models.WebhookPayload) error {
	f.payloads = append(f.payloads, payload)
	return nil
}

func (f *fakeMessaging) SendOutbound(context.Context, models.OutboundMessageRequest) error {
	return nil
}

func TestWebhookRoutes(t *testing.T) {
	messaging := &fakeMessaging{}
	engine := New(handlers.NewRunHandler(&fakeReorder{}, nil, nil), handlers.NewWebhookHandler(messaging, nil), nil)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=secret&hub.challenge=99", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "99", rec.Body.String())

	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=nope&hub.challenge=99", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	payload := `{"object":"whatsapp_business_account","entry":[{"changes":[{"value":{"messages":[{"from":"1","type":"text","text":{"body":"/lowstock"}}]}}]}]}`
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, messaging.payloads, 1)
	assert.Equal(t, "/lowstock", messaging.payloads[0].Entry[0].Changes[0].Value.Messages[0].Text.Body)
}
