package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/novadent/novadent/internal/app"
	"github.com/novadent/novadent/internal/appointments"
	"github.com/novadent/novadent/internal/auth"
	"github.com/novadent/novadent/internal/catalog"
	"github.com/novadent/novadent/internal/devices"
	"github.com/novadent/novadent/internal/inventory"
	"github.com/novadent/novadent/internal/notify"
	"github.com/novadent/novadent/internal/observability"
	"github.com/novadent/novadent/internal/patients"
	"github.com/novadent/novadent/internal/payments"
	"github.com/novadent/novadent/internal/platform/cache"
	"github.com/novadent/novadent/internal/platform/db"
	"github.com/novadent/novadent/internal/shared"
	"github.com/novadent/novadent/internal/visits"
	"github.com/novadent/novadent/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "novadent_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)
	metrics := observability.NewMetrics()

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	devicesRepo := devices.NewRepository(dbpool)
	devicesService := devices.NewService(devicesRepo, auditLogger)
	devicesHandler := devices.NewHandler(logger, devicesService)

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo, devicesService)
	authHandler := auth.NewHandler(logger, authService, sessionManager)

	patientsRepo := patients.NewRepository(dbpool)
	patientsService := patients.NewService(patientsRepo)
	patientsHandler := patients.NewHandler(logger, patientsService)

	catalogRepo := catalog.NewRepository(dbpool)
	catalogService := catalog.NewService(catalogRepo)
	catalogHandler := catalog.NewHandler(logger, catalogService)

	appointmentsRepo := appointments.NewRepository(dbpool)
	appointmentsService := appointments.NewService(appointmentsRepo, auditLogger)
	appointmentsHandler := appointments.NewHandler(logger, appointmentsService)

	inventoryRepo := inventory.NewRepository(dbpool)
	inventoryService := inventory.NewService(inventoryRepo, auditLogger, idempotencyStore)
	inventoryHandler := inventory.NewHandler(logger, inventoryService)

	alertStore := notify.NewAlertStore(dbpool)
	dispatcher := notify.NewDispatcher(redisClient, alertStore, jobClient, cfg.LowStockWindow, metrics, logger)

	paymentsRepo := payments.NewRepository(dbpool)

	visitsRepo := visits.NewRepository(dbpool)
	visitsService := visits.NewService(visitsRepo, inventoryService, catalogService, paymentsRepo, dispatcher, auditLogger, metrics, logger)
	visitsHandler := visits.NewHandler(logger, visitsService)

	router := app.NewRouter(app.RouterParams{
		Logger:              logger,
		Config:              cfg,
		SessionManager:      sessionManager,
		AuthHandler:         authHandler,
		PatientsHandler:     patientsHandler,
		CatalogHandler:      catalogHandler,
		AppointmentsHandler: appointmentsHandler,
		VisitsHandler:       visitsHandler,
		InventoryHandler:    inventoryHandler,
		DevicesHandler:      devicesHandler,
		Metrics:             metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
