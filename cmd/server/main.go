package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/psoe/internal/app"
	"github.com/mamadbah2/psoe/internal/config"
	"github.com/mamadbah2/psoe/internal/scheduler"
	"github.com/mamadbah2/psoe/internal/server/handlers"
	"github.com/mamadbah2/psoe/internal/server/router"
	commandsvc "github.com/mamadbah2/psoe/internal/service/commands"
	reportingsvc "github.com/mamadbah2/psoe/internal/service/reporting"
	whatsappsvc "github.com/mamadbah2/psoe/internal/service/whatsapp"
	whatsappclient "github.com/mamadbah2/psoe/pkg/clients/whatsapp"
	"github.com/mamadbah2/psoe/pkg/logger"
)

func main() {
	envFile := flag.String("env", "", "optional .env file")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New())
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := app.Build(ctx, cfg, baseLogger)
	if err != nil {
		baseLogger.Fatal("failed to wire dependencies", zap.Error(err))
	}
	defer deps.Close(context.Background())

	reportingSvc := reportingsvc.NewService(cfg.Reorder.ReportDir, baseLogger.Named("svc.reporting"))
	runHandler := handlers.NewRunHandler(deps.Reorder, deps.Decisions, baseLogger.Named("handlers.runs"))

	var (
		webhookHandler *handlers.WebhookHandler
		notifier       scheduler.Notifier
	)
	if cfg.WhatsApp.Enabled() {
		dispatcher := commandsvc.NewService(deps.Reorder, baseLogger.Named("svc.commands"))
		whatsClient := whatsappclient.NewClient(cfg.WhatsApp)
		messagingSvc := whatsappsvc.NewMetaWhatsAppService(cfg.WhatsApp, whatsClient, dispatcher, baseLogger.Named("svc.whatsapp"))
		webhookHandler = handlers.NewWebhookHandler(messagingSvc, baseLogger.Named("handlers.whatsapp"))
		if cfg.WhatsApp.ReportRecipient != "" {
			notifier = messagingSvc
		}
		baseLogger.Info("whatsapp channel enabled", zap.Int("allowed_senders", len(cfg.WhatsApp.AllowedSenders)))
	} else {
		baseLogger.Warn("whatsapp credentials missing, command webhook and notifications disabled")
	}

	gin.SetMode(gin.ReleaseMode)
	engine := router.New(runHandler, webhookHandler, baseLogger.Named("router"))

	if cfg.Reorder.SchedulerEnabled {
		sched, err := scheduler.NewScheduler(cfg.Reorder, deps.Reorder, reportingSvc, notifier, baseLogger.Named("scheduler"))
		if err != nil {
			baseLogger.Fatal("failed to init scheduler", zap.Error(err))
		}
		if err := sched.Start(); err != nil {
			baseLogger.Fatal("failed to start scheduler", zap.Error(err))
		}
		defer sched.Stop()
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
