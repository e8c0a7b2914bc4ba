package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"strconv"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/mamadbah2/psoe/internal/repository/csvfile"
	"github.com/mamadbah2/psoe/internal/repository/postgres"
	"github.com/mamadbah2/psoe/pkg/logger"
)

func main() {
	var (
		databaseURL string
		command     string
		csvPath     string
	)

	flag.StringVar(&databaseURL, "database", "", "Database URL (defaults to DATABASE_URL)")
	flag.StringVar(&command, "command", "up", "Migration command: up, down, version, force, seed")
	flag.StringVar(&csvPath, "csv", "", "Cleaned inventory CSV for the seed command (defaults to INVENTORY_CSV_PATH)")
	flag.Parse()

	_ = godotenv.Load()

	log := logger.Must(logger.NewConsole()).Named("migrate")
	defer func() { _ = log.Sync() }()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		log.Fatal("database URL is required, use -database or DATABASE_URL")
	}

	if command == "seed" {
		seed(log, databaseURL, csvPath)
		return
	}

	m, err := postgres.NewMigrator(databaseURL)
	if err != nil {
		log.Fatal("failed to create migration instance", zap.Error(err))
	}
	defer m.Close()

	switch command {
	case "up":
		log.Info("running migrations up")
		err = m.Up()
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info("no migrations to run, database is up to date")
			return
		}
		if err != nil {
			log.Fatal("failed to run migrations", zap.Error(err))
		}
		log.Info("migrations completed")

	case "down":
		log.Info("rolling back migrations")
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatal("failed to roll back migrations", zap.Error(err))
		}
		log.Info("rollback completed")

	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			log.Fatal("failed to read version", zap.Error(err))
		}
		log.Info("current version", zap.Uint("version", version), zap.Bool("dirty", dirty))

	case "force":
		if flag.NArg() < 1 {
			log.Fatal("force requires a version number: -command force <version>")
		}
		version, err := strconv.Atoi(flag.Arg(0))
		if err != nil {
			log.Fatal("invalid version number", zap.String("value", flag.Arg(0)), zap.Error(err))
		}
		if err := m.Force(version); err != nil {
			log.Fatal("failed to force version", zap.Error(err))
		}
		log.Info("forced version", zap.Int("version", version))

	default:
		log.Fatal("unknown command, use up, down, version, force or seed", zap.String("command", command))
	}
}

func seed(log *zap.Logger, databaseURL, csvPath string) {
	if csvPath == "" {
		csvPath = os.Getenv("INVENTORY_CSV_PATH")
	}
	if csvPath == "" {
		log.Fatal("seed requires -csv or INVENTORY_CSV_PATH")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	items, err := csvfile.NewLoader(csvPath, log).LoadInventory(ctx)
	if err != nil {
		log.Fatal("failed to read inventory csv", zap.Error(err))
	}

	repo, err := postgres.NewRepository(ctx, databaseURL, log)
	if err != nil {
		log.Fatal("failed to connect", zap.Error(err))
	}
	defer repo.Close()

	n, err := repo.UpsertInventory(ctx, items)
	if err != nil {
		log.Fatal("failed to seed inventory", zap.Error(err))
	}
	log.Info("inventory seeded", zap.String("csv", csvPath), zap.Int("rows", n))
}
