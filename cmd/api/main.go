package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tillworks/posedge/api/routes"
	"github.com/tillworks/posedge/internal/cart"
	"github.com/tillworks/posedge/internal/inventory"
	"github.com/tillworks/posedge/internal/invoices"
	"github.com/tillworks/posedge/internal/payments"
	"github.com/tillworks/posedge/internal/remote"
	"github.com/tillworks/posedge/pkg/config"
	"github.com/tillworks/posedge/pkg/logger"
	"github.com/tillworks/posedge/pkg/metrics"
	"github.com/tillworks/posedge/pkg/redis"
	"github.com/tillworks/posedge/pkg/store"
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg.Store, logg)
	if err != nil {
		logg.Error(ctx, "failed to open local store", err)
		os.Exit(1)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logg.Error(ctx, "error closing local store", err)
		}
	}()

	gateway, err := remote.NewClient(cfg.Remote, logg)
	if err != nil {
		logg.Error(ctx, "failed to build remote gateway", err)
		os.Exit(1)
	}

	cacheMetrics := metrics.NewCacheMetrics(prometheus.DefaultRegisterer)
	syncMetrics := metrics.NewSyncMetrics(prometheus.DefaultRegisterer)

	inventoryService, err := inventory.NewService(st, gateway, cfg.Cache, cacheMetrics, logg)
	if err != nil {
		logg.Error(ctx, "failed to create inventory service", err)
		os.Exit(1)
	}

	cartService, err := cart.NewService(st, logg)
	if err != nil {
		logg.Error(ctx, "failed to create cart service", err)
		os.Exit(1)
	}

	paymentsEngine := payments.NewEngine(cfg.Payments.CashTypes)

	var guard invoices.Guard
	if cfg.Redis.Enabled() {
		redisClient, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(ctx, "error closing redis", err)
			}
		}()
		guard = invoices.NewRedisGuard(redisClient, 0)
	}

	invoiceService, err := invoices.NewService(st, gateway, guard, syncMetrics, logg)
	if err != nil {
		logg.Error(ctx, "failed to create invoice service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	startCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(startCtx, "starting posedge api")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg, logg, st, gateway,
			inventoryService, cartService, paymentsEngine, invoiceService,
		),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "server shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(startCtx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
