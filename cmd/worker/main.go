package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"adhera-notify/internal/domain/entity"
	"adhera-notify/internal/handler/http/respond"
	pgRepo "adhera-notify/internal/infra/adapter/persistence/postgres"
	"adhera-notify/internal/infra/db"
	"adhera-notify/internal/infra/sender"
	workerPkg "adhera-notify/internal/infra/worker"
	"adhera-notify/internal/observability/logging"
	"adhera-notify/internal/observability/metrics"
	"adhera-notify/internal/repository"
	"adhera-notify/internal/usecase/dispatch"
	"adhera-notify/internal/usecase/producer"
	"adhera-notify/internal/usecase/retryer"
)

func waitForMigrations(logger *slog.Logger, db *sql.DB) {
	const probe = "SELECT 1 FROM notifications LIMIT 1"
	for i := 0; i < 10; i++ {
		if _, err := db.Exec(probe); err == nil {
			return
		}
		logger.Info("waiting for migrations, retrying in 3s", slog.Int("attempt", i+1))
		time.Sleep(3 * time.Second)
	}
	logger.Error("migrations did not complete in time")
	os.Exit(1)
}

func main() {
	logger := logging.NewLogger()
	slog.SetDefault(logger)

	database := initDatabase(logger)
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load worker configuration (fail-open strategy)
	workerMetrics := workerPkg.NewWorkerMetrics()
	workerMetrics.MustRegister()
	workerConfig, err := workerPkg.LoadConfigFromEnv(logger, workerMetrics)
	if err != nil {
		logger.Error("failed to load worker configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker configuration loaded",
		slog.String("retry_schedule", workerConfig.RetrySchedule),
		slog.String("timezone", workerConfig.Timezone),
		slog.Int("retry_batch_size", workerConfig.RetryBatchSize),
		slog.Int("dispatch_max_concurrent", workerConfig.DispatchMaxConcurrent),
		slog.Duration("send_timeout", workerConfig.SendTimeout),
		slog.Int("health_port", workerConfig.HealthPort))

	startMetricsServer(ctx, logger)

	// Start health check server
	healthAddr := fmt.Sprintf(":%d", workerConfig.HealthPort)
	healthServer := workerPkg.NewHealthServer(healthAddr, logger)
	go func() {
		if err := healthServer.Start(ctx); err != nil && err != http.ErrServerClosed {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()
	logger.Info("health check server started", slog.String("addr", healthAddr))

	dispatcher, retryService := setupServices(logger, database, workerConfig)
	runner := setupRunner(logger, database, dispatcher, retryService, workerConfig, workerMetrics)

	runner.Start()
	healthServer.SetReady(true)
	logger.Info("worker marked as ready")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down worker...")

	healthServer.SetReady(false)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	if err := runner.Stop(stopCtx); err != nil {
		logger.Error("runner stop failed", slog.Any("error", err))
	}
	if err := dispatcher.Shutdown(stopCtx); err != nil {
		logger.Error("dispatcher shutdown failed", slog.Any("error", err))
	}

	cancel()
	logger.Info("worker stopped")
}

// initDatabase opens the database connection and waits for the API's
// migrations to complete.
func initDatabase(logger *slog.Logger) *sql.DB {
	database, err := db.Open(context.Background())
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	waitForMigrations(logger, database)
	return database
}

// setupServices wires the dispatcher and the retry scheduler.
func setupServices(logger *slog.Logger, database *sql.DB, cfg *workerPkg.WorkerConfig) (dispatch.Service, retryer.Service) {
	notificationRepo := pgRepo.NewNotificationRepo(database)
	preferenceRepo := pgRepo.NewPreferenceRepo(database)
	recipientRepo := pgRepo.NewRecipientRepo(database)

	registry := buildSenderRegistry(logger)

	dispatchConfig := dispatch.DefaultConfig()
	dispatchConfig.MaxConcurrent = cfg.DispatchMaxConcurrent
	dispatchConfig.SendTimeout = cfg.SendTimeout
	dispatcher := dispatch.NewService(notificationRepo, preferenceRepo, recipientRepo, registry, dispatchConfig)

	retryConfig := retryer.DefaultConfig()
	retryConfig.BatchSize = cfg.RetryBatchSize
	retryService := retryer.NewService(notificationRepo, dispatcher, retryConfig)

	return dispatcher, retryService
}

// buildSenderRegistry constructs the channel senders from environment
// configuration. Misconfigured channels come back disabled and are dropped
// by the registry.
func buildSenderRegistry(logger *slog.Logger) sender.Registry {
	emailSender := sender.NewEmailSender(sender.LoadEmailConfigFromEnv(logger))
	smsSender, whatsappSender := sender.NewGatewaySenders(sender.LoadGatewayConfigFromEnv(logger))
	pushSender := sender.NewPushSender(sender.LoadPushConfigFromEnv(logger))

	registry := sender.NewRegistry(emailSender, smsSender, whatsappSender, pushSender, sender.NewInAppSender())

	channels := make([]string, 0, len(registry))
	for ch := range registry {
		channels = append(channels, string(ch))
	}
	logger.Info("sender registry built", slog.Any("enabled_channels", channels))
	return registry
}

// setupRunner registers the producers, the retry sweep and the status gauge
// refresh on one cron instance.
func setupRunner(
	logger *slog.Logger,
	database *sql.DB,
	dispatcher dispatch.Service,
	retryService retryer.Service,
	cfg *workerPkg.WorkerConfig,
	workerMetrics *workerPkg.WorkerMetrics,
) *producer.Runner {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Error("invalid timezone, using UTC", slog.String("timezone", cfg.Timezone), slog.Any("error", err))
		loc = time.UTC
	}

	runner := producer.NewRunner(dispatcher, loc, producer.WithRunTimeout(cfg.ProducerRunTimeout))

	adherence := pgRepo.NewAdherenceSource(database)
	producers := []producer.Producer{
		producer.NewMedicationReminderProducer(adherence, channelFromEnv("REMINDER_CHANNEL", entity.ChannelPush)),
		producer.NewMissedDoseProducer(adherence, channelFromEnv("MISSED_DOSE_CHANNEL", entity.ChannelSMS)),
		producer.NewExpiryWarningProducer(adherence, channelFromEnv("EXPIRY_CHANNEL", entity.ChannelEmail)),
		producer.NewRefillAlertProducer(adherence, channelFromEnv("REFILL_CHANNEL", entity.ChannelEmail)),
		producer.NewRiskScoreProducer(adherence, channelFromEnv("RISK_CHANNEL", entity.ChannelEmail)),
	}
	for _, p := range producers {
		if err := runner.Add(p); err != nil {
			logger.Error("failed to register producer", slog.String("producer", p.Name()), slog.Any("error", err))
			os.Exit(1)
		}
	}

	notificationRepo := pgRepo.NewNotificationRepo(database)
	if err := runner.AddJob("retry_sweep", cfg.RetrySchedule, func(ctx context.Context) {
		runRetrySweep(ctx, logger, retryService, workerMetrics)
	}); err != nil {
		logger.Error("failed to register retry sweep", slog.Any("error", err))
		os.Exit(1)
	}

	// Status gauges feed the operations dashboard; a 1 minute lag is fine.
	if err := runner.AddJob("status_gauges", "* * * * *", func(ctx context.Context) {
		refreshStatusGauges(ctx, logger, notificationRepo)
	}); err != nil {
		logger.Error("failed to register status gauge refresh", slog.Any("error", err))
		os.Exit(1)
	}

	return runner
}

// channelFromEnv reads a delivery channel override from the environment,
// falling back to the given default on missing or unknown values.
func channelFromEnv(key string, fallback entity.Channel) entity.Channel {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	ch := entity.Channel(raw)
	if !ch.Valid() {
		slog.Warn("unknown channel in environment, using default",
			slog.String("key", key),
			slog.String("value", raw),
			slog.String("default", string(fallback)))
		return fallback
	}
	return ch
}

// runRetrySweep executes one retry scheduler pass with metrics and error
// handling.
func runRetrySweep(ctx context.Context, logger *slog.Logger, retryService retryer.Service, workerMetrics *workerPkg.WorkerMetrics) {
	startTime := time.Now()
	workerMetrics.RecordJobRun("retry_sweep", "started")
	logger.Info("retry sweep started")

	stats, err := retryService.RunOnce(ctx)
	if err != nil {
		logger.Error("retry sweep failed", slog.String("error", respond.SanitizeError(err)))
		workerMetrics.RecordJobRun("retry_sweep", "failure")
		workerMetrics.RecordJobDuration("retry_sweep", time.Since(startTime).Seconds())
		return
	}

	workerMetrics.RecordJobRun("retry_sweep", "success")
	workerMetrics.RecordJobDuration("retry_sweep", time.Since(startTime).Seconds())
	workerMetrics.RecordNotificationsDispatched(stats.Sent)
	workerMetrics.RecordLastSuccess("retry_sweep")

	logger.Info("retry sweep completed",
		slog.Int("eligible", stats.Eligible),
		slog.Int("claimed", stats.Claimed),
		slog.Int("sent", stats.Sent),
		slog.Int("failed", stats.Failed),
		slog.Int("exhausted", stats.Exhausted),
		slog.Duration("duration", time.Since(startTime)))
}

// refreshStatusGauges updates the per-status notification gauges and the
// retry backlog gauge from the record store.
func refreshStatusGauges(ctx context.Context, logger *slog.Logger, repo repository.NotificationRepository) {
	counts, err := repo.CountByStatus(ctx)
	if err != nil {
		logger.Error("status gauge refresh failed", slog.String("error", respond.SanitizeError(err)))
		return
	}

	byStatus := make(map[string]int, len(counts))
	for status, count := range counts {
		byStatus[string(status)] = int(count)
	}
	metrics.UpdateNotificationCounts(byStatus)
	metrics.UpdateRetryBacklog(int(counts[entity.StatusFailed]))
}
