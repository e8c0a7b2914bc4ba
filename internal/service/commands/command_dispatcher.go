package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/psoe/internal/domain/models"
	"github.com/mamadbah2/psoe/internal/service/reorder"
	"github.com/mamadbah2/psoe/internal/service/reporting"
)

// ErrInvalidArguments indicates the command payload could not be parsed.
var ErrInvalidArguments = errors.New("invalid command arguments")

// ErrUnsupportedCommand indicates we do not support the requested command.
var ErrUnsupportedCommand = errors.New("unsupported command")

// HelpText lists the supported operator commands.
const HelpText = "Supported commands:\n" +
	"/reorder <budget> [baseline] [dry] - run the weekly allocation\n" +
	"/compare <budget> - compare optimized and baseline strategies\n" +
	"/lowstock - list items below their threshold\n" +
	"/help - show this message"

// ReorderRunner defines the reorder operations required by the dispatcher.
type ReorderRunner interface {
	LowStock(ctx context.Context) ([]models.InventoryItem, error)
	Run(ctx context.Context, budget decimal.Decimal, opts reorder.RunOptions) (models.RunResult, error)
	Compare(ctx context.Context, budget decimal.Decimal) (models.Comparison, error)
}

// Dispatcher executes parsed commands and builds the reply text.
type Dispatcher interface {
	HandleCommand(ctx context.Context, cmd models.Command, sender string) (string, error)
}

// Service implements the Dispatcher interface.
type Service struct {
	reorder ReorderRunner
	logger  *zap.Logger
}

// NewService constructs a command dispatcher.
func NewService(runner ReorderRunner, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{reorder: runner, logger: logger}
}

// HandleCommand runs the command and returns the reply for the sender.
func (s *Service) HandleCommand(ctx context.Context, cmd models.Command, sender string) (string, error) {
	s.logger.Debug("dispatching command", zap.String("command", string(cmd.Type)), zap.String("sender", sender), zap.Strings("args", cmd.Args))

	switch cmd.Type {
	case models.CommandReorder:
		budget, opts, err := parseReorderArgs(cmd.Args)
		if err != nil {
			return "", err
		}
		result, err := s.reorder.Run(ctx, budget, opts)
		if err != nil {
			var stageErr *reorder.StageError
			if errors.As(err, &stageErr) && stageErr.Stage != reorder.StageLoad {
				s.logger.Warn("run completed with collaborator failure", zap.String("run_id", result.RunID), zap.Error(err))
				return fmt.Sprintf("%s\nWarning: %s", reporting.Summarize(result), stageErr.Error()), nil
			}
			return "", err
		}
		message := reporting.Summarize(result)
		if opts.DryRun {
			message += "\n(dry run, nothing recorded)"
		}
		return message, nil
	case models.CommandCompare:
		budget, err := parseBudget(cmd.Args)
		if err != nil {
			return "", err
		}
		cmp, err := s.reorder.Compare(ctx, budget)
		if err != nil {
			return "", err
		}
		return reporting.SummarizeComparison(cmp), nil
	case models.CommandLowStock:
		items, err := s.reorder.LowStock(ctx)
		if err != nil {
			return "", err
		}
		return reporting.SummarizeLowStock(items), nil
	case models.CommandHelp:
		return HelpText, nil
	default:
		return "", ErrUnsupportedCommand
	}
}

func parseReorderArgs(args []string) (decimal.Decimal, reorder.RunOptions, error) {
	budget, err := parseBudget(args)
	if err != nil {
		return decimal.Zero, reorder.RunOptions{}, err
	}

	opts := reorder.RunOptions{RunType: models.RunTypeOptimized}
	for _, flag := range args[1:] {
		switch flag {
		case "baseline":
			opts.RunType = models.RunTypeBaseline
		case "optimized":
			opts.RunType = models.RunTypeOptimized
		case "dry", "dry-run":
			opts.DryRun = true
		default:
			return decimal.Zero, reorder.RunOptions{}, fmt.Errorf("%w: unknown option %q", ErrInvalidArguments, flag)
		}
	}
	return budget, opts, nil
}

// ParseBudget reads a budget amount, accepting thousands separators and an "rs" prefix.
func ParseBudget(raw string) (decimal.Decimal, error) {
	value := strings.TrimSpace(strings.ToLower(raw))
	value = strings.TrimSpace(strings.TrimPrefix(value, "rs"))
	value = strings.ReplaceAll(value, ",", "")
	if value == "" {
		return decimal.Zero, fmt.Errorf("%w: budget is required", ErrInvalidArguments)
	}

	budget, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: budget %q is not a number", ErrInvalidArguments, raw)
	}
	if budget.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: budget must not be negative", ErrInvalidArguments)
	}
	return budget, nil
}

func parseBudget(args []string) (decimal.Decimal, error) {
	if len(args) == 0 {
		return decimal.Zero, fmt.Errorf("%w: budget is required", ErrInvalidArguments)
	}
	return ParseBudget(args[0])
}
