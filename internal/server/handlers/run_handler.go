package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/psoe/internal/domain/models"
	"github.com/mamadbah2/psoe/internal/service/allocation"
	"github.com/mamadbah2/psoe/internal/service/reorder"
	"github.com/mamadbah2/psoe/internal/service/reporting"
)

const markdownContentType = "text/markdown; charset=utf-8"

// ReorderService is the subset of the reorder service exposed over HTTP.
type ReorderService interface {
	LowStock(ctx context.Context) ([]models.InventoryItem, error)
	Run(ctx context.Context, budget decimal.Decimal, opts reorder.RunOptions) (models.RunResult, error)
	Compare(ctx context.Context, budget decimal.Decimal) (models.Comparison, error)
	FindRunSummary(ctx context.Context, runID string) (models.RunSummary, error)
}

// DecisionReader reads recorded decisions back from the audit log.
type DecisionReader interface {
	DecisionsForRun(ctx context.Context, runID string) ([]models.AllocationDecision, error)
}

// RunRequest is the body accepted by the run endpoints.
type RunRequest struct {
	Budget  *decimal.Decimal `json:"budget" binding:"required"`
	RunType models.RunType   `json:"run_type"`
	DryRun  bool             `json:"dry_run"`
}

// RunHandler exposes allocation runs over HTTP.
type RunHandler struct {
	svc       ReorderService
	decisions DecisionReader
	logger    *zap.Logger
}

// NewRunHandler constructs the HTTP adapter. decisions may be nil.
func NewRunHandler(svc ReorderService, decisions DecisionReader, logger *zap.Logger) *RunHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RunHandler{svc: svc, decisions: decisions, logger: logger}
}

// LowStock lists the items currently below their threshold.
func (h *RunHandler) LowStock(c *gin.Context) {
	items, err := h.svc.LowStock(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(items), "items": items})
}

// Run executes one allocation run. With ?format=markdown the report is returned instead of JSON.
func (h *RunHandler) Run(c *gin.Context) {
	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid run request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "budget is required"})
		return
	}

	result, err := h.svc.Run(c.Request.Context(), *req.Budget, reorder.RunOptions{RunType: req.RunType, DryRun: req.DryRun})
	if err != nil {
		if result.RunID != "" {
			h.logger.Error("run completed with collaborator failure", zap.String("run_id", result.RunID), zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "stage": stageOf(err), "result": result})
			return
		}
		h.writeError(c, err)
		return
	}

	if c.Query("format") == "markdown" {
		h.writeMarkdown(c, result, nil)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Compare runs both strategies on one snapshot.
func (h *RunHandler) Compare(c *gin.Context) {
	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid compare request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "budget is required"})
		return
	}

	cmp, err := h.svc.Compare(c.Request.Context(), *req.Budget)
	if err != nil {
		h.writeError(c, err)
		return
	}

	if c.Query("format") == "markdown" {
		h.writeMarkdown(c, cmp.Optimized, &cmp)
		return
	}
	c.JSON(http.StatusOK, cmp)
}

// GetRun returns the stored summary of a run.
func (h *RunHandler) GetRun(c *gin.Context) {
	summary, err := h.svc.FindRunSummary(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, reorder.ErrSummariesUnavailable):
		c.JSON(http.StatusNotImplemented, gin.H{"error": err.Error()})
	case errors.Is(err, reorder.ErrRunNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case err != nil:
		h.logger.Error("failed to load run summary", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "unable to load run summary"})
	default:
		c.JSON(http.StatusOK, summary)
	}
}

// GetDecisions returns the audit rows recorded for a run.
func (h *RunHandler) GetDecisions(c *gin.Context) {
	if h.decisions == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "audit log is not readable"})
		return
	}

	runID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "run id must be a UUID"})
		return
	}

	decisions, err := h.decisions.DecisionsForRun(c.Request.Context(), runID.String())
	if err != nil {
		h.logger.Error("failed to read audit log", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "unable to read audit log"})
		return
	}
	if len(decisions) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no decisions recorded for run"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"run_id": runID.String(), "decisions": decisions})
}

func (h *RunHandler) writeMarkdown(c *gin.Context, result models.RunResult, cmp *models.Comparison) {
	c.Status(http.StatusOK)
	c.Header("Content-Type", markdownContentType)
	if err := reporting.RenderMarkdown(c.Writer, result, cmp); err != nil {
		h.logger.Error("failed to render report", zap.Error(err))
	}
}

func (h *RunHandler) writeError(c *gin.Context, err error) {
	var validation *allocation.ValidationError
	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": allocation.ErrInvalidInput.Error(), "violations": validation.Violations})
	case errors.Is(err, allocation.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case stageOf(err) != "":
		h.logger.Error("collaborator failure", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "stage": stageOf(err)})
	default:
		h.logger.Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func stageOf(err error) reorder.Stage {
	var se *reorder.StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
