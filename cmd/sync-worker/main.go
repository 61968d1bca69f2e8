package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tillworks/posedge/internal/invoices"
	"github.com/tillworks/posedge/internal/remote"
	"github.com/tillworks/posedge/pkg/config"
	"github.com/tillworks/posedge/pkg/logger"
	"github.com/tillworks/posedge/pkg/metrics"
	"github.com/tillworks/posedge/pkg/redis"
	"github.com/tillworks/posedge/pkg/store"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "sync-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "sync-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if !cfg.Sync.Enabled {
		logg.Info(ctx, "background sync disabled, exiting")
		return
	}

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

	syncMetrics := metrics.NewSyncMetrics(prometheus.DefaultRegisterer)
	invoiceService, err := invoices.NewService(st, gateway, guard, syncMetrics, logg)
	if err != nil {
		logg.Error(ctx, "failed to create invoice service", err)
		os.Exit(1)
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"interval": cfg.Sync.Interval.String(),
	})
	logg.Info(ctx, "starting sync worker")

	ticker := time.NewTicker(cfg.Sync.Interval)
	defer ticker.Stop()

	runPass(ctx, invoiceService, logg)
	for {
		select {
		case <-ctx.Done():
			logg.Info(ctx, "sync worker stopping")
			return
		case <-ticker.C:
			runPass(ctx, invoiceService, logg)
		}
	}
}

func runPass(ctx context.Context, svc invoices.Service, logg *logger.Logger) {
	// Partial failure is normal while the backend is flaky; the report line
	// inside Sync already tells the story, so only hard failures log here.
	if _, err := svc.Sync(ctx, "timer"); err != nil {
		logg.Warn(ctx, "sync pass finished with errors")
	}
}
