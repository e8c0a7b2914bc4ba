package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/psoe/internal/app"
	"github.com/mamadbah2/psoe/internal/cli"
	"github.com/mamadbah2/psoe/internal/config"
	"github.com/mamadbah2/psoe/internal/domain/models"
	"github.com/mamadbah2/psoe/internal/service/allocation"
	"github.com/mamadbah2/psoe/internal/service/commands"
	"github.com/mamadbah2/psoe/internal/service/reorder"
	reportingsvc "github.com/mamadbah2/psoe/internal/service/reporting"
	"github.com/mamadbah2/psoe/pkg/logger"
)

func main() {
	var (
		envFile   = flag.String("env", "", "optional .env file")
		budgetArg = flag.String("budget", "", "weekly budget, prompted for when empty")
		strategy  = flag.String("strategy", string(models.RunTypeOptimized), "OPTIMIZED or BASELINE")
		compare   = flag.Bool("compare", false, "run both strategies and report the profit uplift")
		report    = flag.String("report", "", "directory to write the markdown report into")
		dryRun    = flag.Bool("dry-run", false, "do not record decisions")
	)
	flag.Parse()

	log := logger.Must(logger.NewConsole()).Named("psoe")
	defer func() { _ = log.Sync() }()

	if err := run(log, *envFile, *budgetArg, models.RunType(*strategy), *compare, *report, *dryRun); err != nil {
		if errors.Is(err, cli.ErrPromptCancelled) {
			os.Exit(130)
		}
		log.Error("run failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(log *zap.Logger, envFile, budgetArg string, runType models.RunType, compare bool, reportDir string, dryRun bool) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}

	budget, err := readBudget(budgetArg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	deps, err := app.Build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer deps.Close(context.Background())

	var (
		result models.RunResult
		cmp    *models.Comparison
	)

	if compare {
		c, err := deps.Reorder.Compare(ctx, budget)
		if err != nil {
			return err
		}
		cmp = &c
		result = c.Optimized
		fmt.Print(cli.RenderRun(result))
		fmt.Print(cli.RenderComparison(c))
	} else {
		result, err = deps.Reorder.Run(ctx, budget, reorder.RunOptions{RunType: runType, DryRun: dryRun})
		if result.RunID != "" {
			fmt.Print(cli.RenderRun(result))
		}
		if err != nil {
			return err
		}
	}

	if reportDir != "" {
		path, err := reportingsvc.NewService(reportDir, log.Named("report")).SaveMarkdown(ctx, result, cmp)
		if err != nil {
			return &reorder.StageError{Stage: reorder.StageReport, Err: err}
		}
		fmt.Printf("report written to %s\n", path)
	}
	return nil
}

func readBudget(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return cli.PromptBudget(os.Stdin, os.Stdout)
	}
	budget, err := commands.ParseBudget(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", allocation.ErrInvalidInput, err)
	}
	return budget, nil
}
