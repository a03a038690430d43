package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/lexops/notify/internal/api"
	"github.com/lexops/notify/internal/channel"
	"github.com/lexops/notify/internal/config"
	"github.com/lexops/notify/internal/db"
	"github.com/lexops/notify/internal/dedup"
	"github.com/lexops/notify/internal/domain"
	"github.com/lexops/notify/internal/factory"
	"github.com/lexops/notify/internal/legacy"
	"github.com/lexops/notify/internal/metrics"
	"github.com/lexops/notify/internal/prefs"
	"github.com/lexops/notify/internal/queue"
	"github.com/lexops/notify/internal/ratelimiter"
	"github.com/lexops/notify/internal/repository"
	"github.com/lexops/notify/internal/scanner"
	"github.com/lexops/notify/internal/service"
	"github.com/lexops/notify/internal/template"
	"github.com/lexops/notify/internal/webhook"
	"github.com/lexops/notify/internal/worker"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	// ---- configuration ----
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	// ---- database ----
	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	logger.Info("database migrations applied")

	// ---- redis ----
	// The suppression cache degrades open, so a Redis outage at boot
	// is logged but not fatal.
	rdb, err := db.ConnectRedis(ctx, cfg)
	if err != nil {
		logger.Warn("redis unreachable, duplicate suppression degraded", zap.Error(err))
	}
	defer rdb.Close() //nolint:errcheck

	// ---- core dependencies ----
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	q := queue.New()

	jobRepo := repository.NewPgJobRepository(pool)
	notifRepo := repository.NewPgNotificationRepository(pool)
	prefRepo := repository.NewPgPreferenceRepository(pool)
	tmplRepo := repository.NewPgTemplateRepository(pool)
	dirRepo := repository.NewPgDirectoryRepository(pool)
	legacyRepo := repository.NewPgLegacyRepository(pool)
	billingRepo := repository.NewPgBillingSource(pool)
	scanSrc := repository.NewPgScanSource(pool)

	cache := dedup.NewCache(rdb, logger)
	limiters := ratelimiter.New(cfg.RateLimit)

	senders := []channel.Sender{
		channel.NewRealtimeSender(cfg.RealtimeBaseURL, cfg.ProviderTimeout),
		channel.NewEmailSender(cfg.EmailBaseURL, cfg.EmailAPIKey, cfg.ProviderTimeout),
		channel.NewNoopSender(domain.ChannelSMS, logger),
		channel.NewNoopSender(domain.ChannelPush, logger),
	}

	onDelivered, onFailed, onProcessed := m.WorkerHooks()
	onPublished, onSuppressed := m.PublishHooks()

	svc := service.New(service.Deps{
		Factory:   factory.New(logger),
		Jobs:      jobRepo,
		Notifs:    notifRepo,
		Directory: dirRepo,
		Prefs:     prefs.NewResolver(prefRepo, dirRepo),
		Templates: template.NewResolver(tmplRepo),
		Queue:     q,
		Dedup:     cache,
		Senders:   senders,
		Limiters:  limiters,
		Logger:    logger,

		PublishWindow: cfg.PublishWindow,

		OnPublished:  onPublished,
		OnSuppressed: onSuppressed,
		OnDelivered:  onDelivered,
		OnFailed:     onFailed,
	})

	// ---- legacy transition ----
	hybrid := legacy.NewHybridPublisher(svc, legacyRepo, logger)
	hybrid.SetLegacyOnly(cfg.LegacyOnly)
	// The migrator publishes through the plain service: re-publishing a
	// migrated row through the hybrid would write it back into the legacy
	// store and the next run would migrate it again.
	migrator := legacy.NewMigrator(legacyRepo, notifRepo, svc, cfg.MigrationBatchSize, logger)

	// ---- worker pool ----
	// Context for all background goroutines; cancelled on shutdown signal.
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	wp := worker.NewPool(
		cfg.Workers, q, jobRepo, svc,
		cfg.RetryBackoff, cfg.JobTimeout,
		logger,
		worker.MetricHooks{OnProcessed: onProcessed},
	)
	wp.Start(workerCtx)

	retryW := worker.NewRetryWorker(jobRepo, q, cfg.RetryInterval, logger)
	go retryW.Run(workerCtx)

	schedulerW := worker.NewSchedulerWorker(jobRepo, q, cfg.SchedulerInterval, logger)
	// Rows left pending or queued by the previous process are not on the
	// fresh in-memory queue; put them back before accepting new publishes.
	schedulerW.Recover(ctx)
	go schedulerW.Run(workerCtx)

	purgeW := worker.NewPurgeWorker(notifRepo, cfg.PurgeInterval, logger)
	go purgeW.Run(workerCtx)

	// Queue depth gauges are sampled rather than event-driven.
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				critical, high, medium, low := q.Depths()
				m.QueueDepthCritical.Set(float64(critical))
				m.QueueDepthHigh.Set(float64(high))
				m.QueueDepthMedium.Set(float64(medium))
				m.QueueDepthLow.Set(float64(low))
			}
		}
	}()

	// ---- periodic scanners ----
	// All scanners publish through the hybrid so alerts reach the
	// legacy tables during the transition.
	go scanner.NewDeadlineScanner(scanSrc, hybrid, cache, cfg.DeadlineScanInterval, logger).Run(workerCtx)
	go scanner.NewContractScanner(scanSrc, dirRepo, hybrid, cache, cfg.ContractScanInterval, logger).Run(workerCtx)
	go scanner.NewDocumentScanner(scanSrc, dirRepo, hybrid, cache, cfg.DocumentScanInterval, logger).Run(workerCtx)
	go scanner.NewReminderScanner(scanSrc, hybrid, cache, cfg.ReminderScanInterval, logger).Run(workerCtx)

	// ---- HTTP server ----
	payments := webhook.NewPaymentAdapter(billingRepo, dirRepo, hybrid, logger)

	router := api.NewRouter(api.Deps{
		Service:   svc,
		Publisher: hybrid,
		Directory: dirRepo,
		Payments:  payments,
		Mode:      hybrid,
		Migrator:  migrator,
		Queue:     q,
		Registry:  reg,
		Logger:    logger,
	})
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Start server in a goroutine so it does not block the shutdown listener.
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// ---- graceful shutdown ----
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutdown signal received")

	// 1. Stop accepting new HTTP requests.
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// 2. Signal workers and scanners to stop pulling new work.
	cancelWorkers()

	// 3. Wait for in-flight workers to finish their current job.
	wp.Wait()

	logger.Info("server stopped cleanly")
}
