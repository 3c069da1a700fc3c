package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/dialadrink/backend/api/routes"
	authsvc "github.com/dialadrink/backend/internal/auth"
	"github.com/dialadrink/backend/internal/drivers"
	"github.com/dialadrink/backend/internal/ledger"
	"github.com/dialadrink/backend/internal/notify"
	"github.com/dialadrink/backend/internal/orders"
	"github.com/dialadrink/backend/internal/payments"
	"github.com/dialadrink/backend/internal/settings"
	"github.com/dialadrink/backend/internal/settlement"
	"github.com/dialadrink/backend/internal/wallets"
	"github.com/dialadrink/backend/pkg/config"
	"github.com/dialadrink/backend/pkg/db"
	"github.com/dialadrink/backend/pkg/logger"
	"github.com/dialadrink/backend/pkg/metrics"
	"github.com/dialadrink/backend/pkg/migrate"
	"github.com/dialadrink/backend/pkg/push"
	"github.com/dialadrink/backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	pushClient, err := push.New(context.Background(), cfg.FCM, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap fcm", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	settlementMetrics := metrics.NewSettlementMetrics(registry)

	guard, err := settlement.NewRedisGuard(redisClient, cfg.Settlement.GuardLockTTL, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement guard", err)
		os.Exit(1)
	}

	ledgerRepo := ledger.NewRepository(dbClient.DB())
	walletsRepo := wallets.NewRepository(dbClient.DB())
	settingsRepo := settings.NewRepository(dbClient.DB(), cfg.Settlement)
	driversRepo := drivers.NewRepository(dbClient.DB())

	settlementService, err := settlement.NewService(
		settlement.NewRepository(dbClient.DB()),
		ledgerRepo,
		walletsRepo,
		settingsRepo,
		driversRepo,
		dbClient,
		guard,
		settlementMetrics,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement service", err)
		os.Exit(1)
	}

	var sender push.Sender
	if pushClient != nil {
		sender = pushClient
	}
	notifier, err := notify.NewService(redisClient, sender, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create notifier", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(orders.NewRepository(dbClient.DB()), settlementService, notifier, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	paymentsService, err := payments.NewService(ordersService, ledgerRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	authService, err := authsvc.NewService(authsvc.NewRepository(dbClient.DB()), cfg.JWT, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	handler := routes.NewRouter(routes.Deps{
		Config:            cfg,
		Logger:            logg,
		DBPinger:          dbClient,
		RedisPinger:       redisClient,
		AuthService:       authService,
		OrdersService:     ordersService,
		PaymentsService:   paymentsService,
		SettlementService: settlementService,
		Notifier:          notifier,
		WalletsRepo:       walletsRepo,
		LedgerRepo:        ledgerRepo,
		MetricsRegistry:   registry,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-shutdown
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
