package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-docs/cmd/odyssey/cli"
	"github.com/odyssey-erp/odyssey-docs/internal/app"
	"github.com/odyssey-erp/odyssey-docs/internal/dashboard"
	docshttp "github.com/odyssey-erp/odyssey-docs/internal/documents/http"
	"github.com/odyssey-erp/odyssey-docs/internal/forms"
	"github.com/odyssey-erp/odyssey-docs/internal/observability"
	"github.com/odyssey-erp/odyssey-docs/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-docs/internal/presentation"
	"github.com/odyssey-erp/odyssey-docs/internal/view"
	"github.com/odyssey-erp/odyssey-docs/jobs"
	"github.com/odyssey-erp/odyssey-docs/report"
)

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

	if len(os.Args) > 1 && os.Args[1] == "jobs" {
		os.Exit(runJobsCommand(ctx, cfg, logger, os.Args[2:]))
	}

	stores, err := app.OpenStores(ctx, cfg, logger)
	if err != nil {
		logger.Error("open document store", slog.Any("error", err))
		os.Exit(1)
	}
	defer stores.Close()

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()

	var (
		snapshots *dashboard.RedisStore
		notifier  forms.Notifier
	)
	redisClient, err := cache.New(ctx, cfg.RedisOptions())
	if err != nil {
		logger.Warn("redis unavailable, dashboard and job notifications disabled", slog.Any("error", err))
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
		snapshots = dashboard.NewRedisStore(redisClient, cfg.DashboardTTL)
		ticker := dashboard.NewTicker(dashboard.TickerConfig{
			Interval:  cfg.DashboardInterval,
			Jitter:    cfg.DashboardJitter,
			Publisher: snapshots,
			Logger:    logger,
		})
		if _, err := ticker.Tick(ctx); err != nil {
			logger.Warn("publish first dashboard snapshot", slog.Any("error", err))
		}
		go func() {
			if err := ticker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("dashboard ticker", slog.Any("error", err))
			}
		}()

		jobClient, err := jobs.NewClient(cfg.AsynqRedis())
		if err != nil {
			logger.Warn("job client", slog.Any("error", err))
		} else {
			defer func() {
				if err := jobClient.Close(); err != nil {
					logger.Warn("job client close", slog.Any("error", err))
				}
			}()
			notifier = jobClient
		}
	}

	reportClient := report.NewClient(cfg.GotenbergURL, cfg.GotenbergTimeout)
	reportHandler := report.NewHandler(reportClient, logger)
	exporter := report.NewDocumentExporter(reportClient, templates, presentation.NewFormatter("en"))

	docsCfg := docshttp.Config{
		Store:       stores.Documents,
		Catalog:     stores.Catalog,
		Exporter:    exporter,
		Notifier:    notifier,
		Templates:   templates,
		Metrics:     metrics,
		Policy:      cfg.Policy(),
		SaveTimeout: cfg.SaveTimeout,
		Logger:      logger,
	}
	if snapshots != nil {
		docsCfg.Dashboard = snapshots
		docsCfg.Stream = snapshots
	}
	documentsHandler := docshttp.NewHandler(docsCfg)

	inspector := asynq.NewInspector(cfg.AsynqRedis())
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		DocumentsHandler: documentsHandler,
		ReportHandler:    reportHandler,
		JobHandler:       jobHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("store", cfg.StoreDriver))
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

// runJobsCommand handles `odyssey jobs stats` and `odyssey jobs trigger <task> [document-id]`.
func runJobsCommand(ctx context.Context, cfg *app.Config, logger *slog.Logger, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: odyssey jobs stats | trigger <task> [document-id]")
		return 2
	}
	jobsCLI, err := cli.NewJobsCLI(cfg.AsynqRedis())
	if err != nil {
		logger.Error("jobs cli", slog.Any("error", err))
		return 1
	}
	defer func() { _ = jobsCLI.Close() }()

	switch args[0] {
	case "stats":
		stats, err := jobsCLI.InspectQueue(ctx)
		if err != nil {
			logger.Error("inspect queue", slog.Any("error", err))
			return 1
		}
		if err := cli.WriteStats(os.Stdout, stats); err != nil {
			return 1
		}
		return 0
	case "trigger":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: odyssey jobs trigger <task> [document-id]")
			return 2
		}
		arg := ""
		if len(args) > 2 {
			arg = args[2]
		}
		var loader cli.DocumentLoader
		if args[1] == jobs.TaskDocumentSubmitted {
			stores, err := app.OpenStores(ctx, cfg, logger)
			if err != nil {
				logger.Error("open document store", slog.Any("error", err))
				return 1
			}
			defer stores.Close()
			loader = stores.Documents
		}
		info, err := jobsCLI.Trigger(ctx, args[1], arg, loader)
		if err != nil {
			logger.Error("trigger job", slog.String("task", args[1]), slog.Any("error", err))
			return 1
		}
		logger.Info("job enqueued", slog.String("task", info.Type), slog.String("id", info.ID))
		return 0
	default:
		fmt.Fprintf(os.Stderr, "unknown jobs command %q\n", args[0])
		return 2
	}
}
