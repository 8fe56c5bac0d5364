package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/chickflow/internal/config"
	"github.com/mamadbah2/chickflow/internal/repository/mongodb"
	"github.com/mamadbah2/chickflow/internal/repository/sheets"
	"github.com/mamadbah2/chickflow/internal/repository/sqlite"
	"github.com/mamadbah2/chickflow/internal/scheduler"
	"github.com/mamadbah2/chickflow/internal/server/handlers"
	"github.com/mamadbah2/chickflow/internal/server/router"
	"github.com/mamadbah2/chickflow/internal/service/distribution"
	reportingsvc "github.com/mamadbah2/chickflow/internal/service/reporting"
	whatsappsvc "github.com/mamadbah2/chickflow/internal/service/whatsapp"
	whatsappclient "github.com/mamadbah2/chickflow/pkg/clients/whatsapp"
	"github.com/mamadbah2/chickflow/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Server.LogLevel))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		baseLogger.Fatal("failed to open database", zap.Error(err))
	}
	if err := sqlite.EnsureSchema(db); err != nil {
		baseLogger.Fatal("failed to create schema", zap.Error(err))
	}
	store := sqlite.NewStore(db, baseLogger.Named("repo.sqlite"))
	defer func() {
		if err := store.Close(); err != nil {
			baseLogger.Error("failed to close database", zap.Error(err))
		}
	}()

	loc, err := cfg.Reporting.Location()
	if err != nil {
		baseLogger.Fatal("invalid timezone", zap.Error(err))
	}

	var distOpts []distribution.Option
	var sender *whatsappsvc.Sender
	if cfg.WhatsApp.Enabled() {
		whatsClient := whatsappclient.NewClient(cfg.WhatsApp)
		sender = whatsappsvc.NewSender(whatsClient, cfg.WhatsApp.CountryCode, baseLogger.Named("svc.whatsapp.sender"))
		distOpts = append(distOpts, distribution.WithNotifier(sender))
		baseLogger.Info("whatsapp notifications enabled")
	} else {
		baseLogger.Warn("whatsapp credentials missing, notifications and farmer commands disabled")
	}

	if cfg.Sheets.Enabled() {
		sheetsRepo, err := sheets.NewSpreadsheetRepository(context.Background(), cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
		exporter := sheets.NewSalesExporter(sheetsRepo, baseLogger.Named("repo.sheets.sales"))
		if err := exporter.EnsureHeader(context.Background()); err != nil {
			baseLogger.Warn("could not prepare sales sheet", zap.Error(err))
		}
		distOpts = append(distOpts, distribution.WithSaleExporter(exporter))
		baseLogger.Info("sales export to google sheets enabled")
	}

	distOpts = append(distOpts, distribution.WithCountryCode(cfg.WhatsApp.CountryCode))
	distSvc := distribution.NewService(store, cfg.Pricing.UnitPrice, baseLogger.Named("svc.distribution"), distOpts...)

	var reportOpts []reportingsvc.Option
	if cfg.MongoDB.Enabled() {
		connectCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		mongoRepo, err := mongodb.NewMongoDBRepository(connectCtx, cfg.MongoDB.URI, cfg.MongoDB.DBName, baseLogger.Named("repo.mongodb"))
		cancel()
		if err != nil {
			baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
		}
		defer func() {
			if err := mongoRepo.Close(context.Background()); err != nil {
				baseLogger.Error("failed to close mongodb connection", zap.Error(err))
			}
		}()
		reportOpts = append(reportOpts, reportingsvc.WithArchive(mongoRepo))
	}
	if sender != nil && cfg.WhatsApp.ManagerID != "" {
		reportOpts = append(reportOpts, reportingsvc.WithManagerNotifier(sender, cfg.WhatsApp.ManagerID))
	}
	reportingSvc := reportingsvc.NewService(store, loc, baseLogger.Named("svc.reporting"), reportOpts...)

	routes := router.Handlers{
		Distribution: handlers.NewDistributionHandler(distSvc, baseLogger.Named("handlers.distribution")),
		Reports:      handlers.NewReportHandler(reportingSvc, baseLogger.Named("handlers.reports")),
		Health:       store,
	}
	if sender != nil {
		messagingSvc := whatsappsvc.NewMetaWhatsAppService(cfg.WhatsApp, sender, distSvc, baseLogger.Named("svc.whatsapp"))
		routes.Webhook = handlers.NewWebhookHandler(messagingSvc, baseLogger.Named("handlers.whatsapp"))
	}
	engine := router.New(routes, cfg.Auth.JWTSecret, baseLogger.Named("router"))

	sched, err := scheduler.NewScheduler(cfg.Reporting.CronSchedule, loc, reportingSvc, baseLogger.Named("scheduler"))
	if err != nil {
		baseLogger.Fatal("failed to init scheduler", zap.Error(err))
	}
	sched.Start()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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
	sched.Stop(shutdownCtx)
}
