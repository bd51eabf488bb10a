package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/odyssey-erp/odyssey-docs/internal/app"
	"github.com/odyssey-erp/odyssey-docs/internal/dashboard"
	jobmetrics "github.com/odyssey-erp/odyssey-docs/internal/jobs"
	"github.com/odyssey-erp/odyssey-docs/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-docs/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	// The mock store lives in the server process, so the worker can only
	// reload documents when they are persisted.
	var loader jobs.DocumentLoader
	if cfg.StoreDriver == app.StorePostgres {
		stores, err := app.OpenStores(ctx, cfg, logger)
		if err != nil {
			logger.Error("open document store", slog.Any("error", err))
			os.Exit(1)
		}
		defer stores.Close()
		loader = stores.Documents
	}

	redisClient, err := cache.New(ctx, cfg.RedisOptions())
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := jobmetrics.NewMetrics(nil)
	snapshots := dashboard.NewRedisStore(redisClient, cfg.DashboardTTL)
	ticker := dashboard.NewTicker(dashboard.TickerConfig{
		Interval:  cfg.DashboardInterval,
		Jitter:    cfg.DashboardJitter,
		Publisher: snapshots,
		Logger:    logger,
	})

	submitted := jobs.NewDocumentSubmittedJob(loader, logger, metrics)
	refresh := jobs.NewDashboardRefreshJob(snapshots, ticker, logger, metrics)

	refreshTask, err := jobs.NewDashboardRefreshTask(time.Time{})
	if err != nil {
		logger.Error("build dashboard refresh task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   cfg.AsynqRedis(),
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskDocumentSubmitted, Handler: submitted.Handle},
			{Type: jobs.TaskDashboardRefresh, Handler: refresh.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.DashboardCron, Task: refreshTask},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if cfg.WorkerMetricsAddr != "" {
		metricsServer := jobs.NewMetricsServer(cfg.WorkerMetricsAddr, prometheus.DefaultGatherer, logger)
		go func() {
			if err := metricsServer.Run(ctx); err != nil {
				logger.Error("worker metrics server", slog.Any("error", err))
			}
		}()
	}

	logger.Info("starting worker", slog.Int("concurrency", cfg.WorkerConcurrency), slog.String("store", cfg.StoreDriver))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
