// Package app wires the inventory source, audit sink and reorder service
// selected by the configuration.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mamadbah2/psoe/internal/config"
	"github.com/mamadbah2/psoe/internal/domain/models"
	"github.com/mamadbah2/psoe/internal/repository/csvfile"
	"github.com/mamadbah2/psoe/internal/repository/mongodb"
	"github.com/mamadbah2/psoe/internal/repository/postgres"
	"github.com/mamadbah2/psoe/internal/repository/sheets"
	"github.com/mamadbah2/psoe/internal/service/reorder"
)

// DecisionReader reads recorded decisions back from the audit log.
type DecisionReader interface {
	DecisionsForRun(ctx context.Context, runID string) ([]models.AllocationDecision, error)
}

// Deps holds the wired services and the connections they own.
type Deps struct {
	Reorder *reorder.Service
	// Decisions is nil unless the audit sink can be read back.
	Decisions DecisionReader

	closers []func(context.Context) error
	logger  *zap.Logger
}

// Close releases every connection opened by Build.
func (d *Deps) Close(ctx context.Context) {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](ctx); err != nil {
			d.logger.Error("failed to close dependency", zap.Error(err))
		}
	}
}

// Build opens the configured stores and wires the reorder service.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Deps, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	deps := &Deps{logger: logger}
	b := builder{cfg: cfg, logger: logger, deps: deps}

	loader, err := b.inventory(ctx)
	if err != nil {
		deps.Close(ctx)
		return nil, err
	}

	var (
		audit     reorder.AuditRecorder
		summaries reorder.SummaryStore
	)

	switch cfg.Audit.Sink {
	case config.SinkPostgres:
		repo, err := b.postgres(ctx)
		if err != nil {
			deps.Close(ctx)
			return nil, err
		}
		audit = repo
		deps.Decisions = repo
	case config.SinkMongoDB:
		repo, err := mongodb.NewMongoDBRepository(ctx, cfg.MongoDB.URI, cfg.MongoDB.DBName)
		if err != nil {
			deps.Close(ctx)
			return nil, err
		}
		deps.closers = append(deps.closers, repo.Close)
		audit = repo
		summaries = repo
	case config.SinkSheets:
		repo, err := b.sheets(ctx)
		if err != nil {
			deps.Close(ctx)
			return nil, err
		}
		audit = sheets.NewAuditRecorder(repo, cfg.Sheets.AuditRange)
	case config.SinkNone:
		logger.Warn("audit sink disabled, decisions will not be recorded")
	default:
		deps.Close(ctx)
		return nil, fmt.Errorf("unsupported audit sink %q", cfg.Audit.Sink)
	}

	deps.Reorder = reorder.NewService(loader, audit, summaries, logger.Named("svc.reorder"))

	logger.Info("dependencies wired",
		zap.String("inventory_source", cfg.Inventory.Source),
		zap.String("audit_sink", cfg.Audit.Sink),
		zap.Bool("run_summaries", summaries != nil))

	return deps, nil
}

type builder struct {
	cfg    *config.Config
	logger *zap.Logger
	deps   *Deps

	pg         *postgres.Repository
	sheetsRepo *sheets.GoogleSheetRepository
}

func (b *builder) inventory(ctx context.Context) (reorder.InventoryLoader, error) {
	switch b.cfg.Inventory.Source {
	case config.SourcePostgres:
		return b.postgres(ctx)
	case config.SourceSheets:
		repo, err := b.sheets(ctx)
		if err != nil {
			return nil, err
		}
		return sheets.NewInventoryLoader(repo, b.cfg.Sheets.InventoryRange, b.logger.Named("repo.sheets")), nil
	case config.SourceCSV:
		return csvfile.NewLoader(b.cfg.Inventory.CSVPath, b.logger.Named("repo.csv")), nil
	default:
		return nil, fmt.Errorf("unsupported inventory source %q", b.cfg.Inventory.Source)
	}
}

func (b *builder) postgres(ctx context.Context) (*postgres.Repository, error) {
	if b.pg != nil {
		return b.pg, nil
	}

	if b.cfg.Postgres.AutoMigrate {
		if err := postgres.MigrateUp(b.cfg.Postgres.URL); err != nil {
			return nil, err
		}
		b.logger.Info("database migrations applied")
	}

	repo, err := postgres.NewRepository(ctx, b.cfg.Postgres.URL, b.logger.Named("repo.postgres"))
	if err != nil {
		return nil, err
	}
	b.deps.closers = append(b.deps.closers, func(context.Context) error {
		repo.Close()
		return nil
	})
	b.pg = repo
	return repo, nil
}

func (b *builder) sheets(ctx context.Context) (*sheets.GoogleSheetRepository, error) {
	if b.sheetsRepo != nil {
		return b.sheetsRepo, nil
	}
	repo, err := sheets.NewGoogleSheetRepository(ctx, b.cfg.Sheets, b.logger.Named("repo.sheets"))
	if err != nil {
		return nil, err
	}
	b.sheetsRepo = repo
	return repo, nil
}
