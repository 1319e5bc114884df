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

	"github.com/dtauto/dtauto/internal/analytics"
	analytichttp "github.com/dtauto/dtauto/internal/analytics/http"
	"github.com/dtauto/dtauto/internal/app"
	"github.com/dtauto/dtauto/internal/audit"
	"github.com/dtauto/dtauto/internal/auth"
	"github.com/dtauto/dtauto/internal/costs"
	"github.com/dtauto/dtauto/internal/fleet"
	"github.com/dtauto/dtauto/internal/ledger"
	"github.com/dtauto/dtauto/internal/observability"
	"github.com/dtauto/dtauto/internal/payments"
	"github.com/dtauto/dtauto/internal/platform/cache"
	"github.com/dtauto/dtauto/internal/platform/db"
	"github.com/dtauto/dtauto/internal/shared"
	"github.com/dtauto/dtauto/internal/shipments"
	"github.com/dtauto/dtauto/internal/users"
	"github.com/dtauto/dtauto/jobs"
)

// distributionHook triggers the profit split when a sale lands.
type distributionHook struct {
	ledger *ledger.Service
}

func (h distributionHook) HandleVehicleSold(ctx context.Context, vehicleID int64) error {
	_, err := h.ledger.GenerateDistribution(ctx, vehicleID)
	return err
}

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

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

	sessionManager := shared.NewSessionManager(redisClient, "dtauto_session", cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	auditLogger := shared.NewAuditLogger(dbpool)
	attemptLimiter := shared.NewAttemptLimiter(redisClient, "login", cfg.LoginMaxAttempts, cfg.LoginAttemptWindow)

	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo, auditLogger, logger)
	usersHandler := users.NewHandler(logger, usersService)

	authService := auth.NewService(usersRepo, attemptLimiter, logger)
	authHandler := auth.NewHandler(logger, authService, sessionManager)

	ledgerRepo := ledger.NewRepository(dbpool)
	ledgerService := ledger.NewService(ledgerRepo, auditLogger, logger)
	ledgerHandler := ledger.NewHandler(logger, ledgerService)

	fleetRepo := fleet.NewRepository(dbpool)
	fleetService := fleet.NewService(fleetRepo, distributionHook{ledger: ledgerService}, auditLogger, logger)
	fleetHandler := fleet.NewHandler(logger, fleetService)

	costsRepo := costs.NewRepository(dbpool)
	costsService := costs.NewService(costsRepo, auditLogger, logger)
	costsHandler := costs.NewHandler(logger, costsService)

	shipmentsRepo := shipments.NewRepository(dbpool)
	shipmentsService := shipments.NewService(shipmentsRepo, costsService, auditLogger, logger)
	shipmentsHandler := shipments.NewHandler(logger, shipmentsService)

	paymentsRepo := payments.NewRepository(dbpool)
	paymentsService := payments.NewService(paymentsRepo, auditLogger, logger)
	paymentsHandler := payments.NewHandler(logger, paymentsService)

	analyticsRepo := analytics.NewRepository(dbpool)
	analyticsService := analytics.NewService(analyticsRepo)
	analyticsHandler := analytichttp.NewHandler(logger, analyticsService)

	auditRepo := audit.NewRepository(dbpool)
	auditService := audit.NewService(auditRepo)
	auditHandler := audit.NewHandler(logger, auditService)

	metrics := observability.NewMetrics()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		SessionManager:   sessionManager,
		CSRFManager:      csrfManager,
		Pool:             dbpool,
		Metrics:          metrics,
		AuthHandler:      authHandler,
		UsersHandler:     usersHandler,
		FleetHandler:     fleetHandler,
		ShipmentsHandler: shipmentsHandler,
		CostsHandler:     costsHandler,
		PaymentsHandler:  paymentsHandler,
		LedgerHandler:    ledgerHandler,
		AnalyticsHandler: analyticsHandler,
		AuditHandler:     auditHandler,
		JobsHandler:      jobsHandler,
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
