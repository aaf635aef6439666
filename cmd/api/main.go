package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"adhera-notify/internal/config"
	hhttp "adhera-notify/internal/handler/http"
	"adhera-notify/internal/handler/http/auth"
	"adhera-notify/internal/handler/http/requestid"
	pgRepo "adhera-notify/internal/infra/adapter/persistence/postgres"
	"adhera-notify/internal/infra/db"
	"adhera-notify/internal/infra/sender"
	"adhera-notify/internal/observability/logging"
	"adhera-notify/internal/observability/tracing"
	"adhera-notify/internal/usecase/dispatch"
	"adhera-notify/internal/usecase/receipt"
	"adhera-notify/internal/usecase/retryer"
)

func main() {
	logger := logging.NewLogger()
	slog.SetDefault(logger)

	validateJWTSecret(logger)
	securityConfig := loadSecurityConfig(logger)

	database := initDatabase(logger)
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	version := getVersion()
	dispatcher, handler := setupServer(logger, database, securityConfig, version)

	runServer(logger, handler, dispatcher, version)
}

// validateJWTSecret validates the JWT_SECRET environment variable for security requirements.
func validateJWTSecret(logger *slog.Logger) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		logger.Error("JWT_SECRET must be set")
		os.Exit(1)
	}
	if len(secret) < 32 {
		logger.Error("JWT_SECRET must be at least 32 characters (256 bits)")
		os.Exit(1)
	}
	weakSecrets := []string{"secret", "password", "test", "admin", "default"}
	for _, weak := range weakSecrets {
		if secret == weak || secret == weak+"123" {
			logger.Error("JWT_SECRET must not be a common weak value", slog.String("weak_value", weak))
			os.Exit(1)
		}
	}
}

// loadSecurityConfig loads the webhook and JWT policy file. The path defaults
// to config/security.yaml and can be overridden with SECURITY_CONFIG_PATH.
func loadSecurityConfig(logger *slog.Logger) *config.SecurityConfig {
	path := os.Getenv("SECURITY_CONFIG_PATH")
	if path == "" {
		path = "config/security.yaml"
	}
	cfg, err := config.LoadSecurityConfig(path)
	if err != nil {
		logger.Error("failed to load security configuration",
			slog.String("path", path), slog.Any("error", err))
		os.Exit(1)
	}
	return cfg
}

// initDatabase opens the database connection and runs migrations.
func initDatabase(logger *slog.Logger) *sql.DB {
	database, err := db.Open(context.Background())
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	if err := db.MigrateUp(database); err != nil {
		logger.Error("failed to migrate database", slog.Any("error", err))
		os.Exit(1)
	}
	return database
}

// getVersion returns the application version from environment or default.
func getVersion() string {
	version := os.Getenv("VERSION")
	if version == "" {
		version = "dev"
	}
	return version
}

// setupServer wires the services and returns the dispatcher (for shutdown)
// and the fully middleware-wrapped HTTP handler.
func setupServer(logger *slog.Logger, database *sql.DB, securityConfig *config.SecurityConfig, version string) (dispatch.Service, http.Handler) {
	notificationRepo := pgRepo.NewNotificationRepo(database)
	preferenceRepo := pgRepo.NewPreferenceRepo(database)
	recipientRepo := pgRepo.NewRecipientRepo(database)

	// The API's manual retry endpoint re-enters the same channel send path
	// the worker uses, so the API carries its own sender registry.
	registry := buildSenderRegistry(logger)
	dispatcher := dispatch.NewService(notificationRepo, preferenceRepo, recipientRepo, registry, dispatch.DefaultConfig())

	receiptService := receipt.NewService(notificationRepo)
	retryService := retryer.NewService(notificationRepo, dispatcher, retryer.DefaultConfig())

	mux := http.NewServeMux()
	mux.Handle("/health", &hhttp.HealthHandler{DB: database, Version: version})
	mux.Handle("/ready", &hhttp.HealthHandler{DB: database, Version: version})
	mux.Handle("/live", hhttp.LivenessHandler())
	mux.Handle("/metrics", hhttp.MetricsHandler())
	mux.Handle("/webhooks/receipts/", &hhttp.ReceiptHandler{
		Receipts: receiptService,
		Secrets:  securityConfig,
		Logger:   logger,
	})
	mux.Handle("/admin/notifications/", &hhttp.AdminHandler{
		Notifications: notificationRepo,
		Retryer:       retryService,
		Logger:        logger,
	})

	return dispatcher, applyMiddleware(logger, mux)
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

// applyMiddleware wraps the handler with the middleware chain.
// Order (outermost first): Request ID -> Tracing -> Rate Limit -> Recovery ->
// Logging -> Body Limit -> Metrics -> Authentication -> Timeout.
func applyMiddleware(logger *slog.Logger, handler http.Handler) http.Handler {
	rateLimiter := hhttp.NewRateLimiter(20, 40)

	chain := handler
	chain = hhttp.Timeout(30 * time.Second)(chain)
	chain = auth.Authz(chain)
	chain = hhttp.MetricsMiddleware(chain)
	chain = hhttp.LimitRequestBody(1 << 20)(chain) // 1MB limit
	chain = hhttp.Logging(logger)(chain)
	chain = hhttp.Recover(logger)(chain)
	chain = rateLimiter.Limit(chain)
	chain = tracing.Middleware(chain)
	chain = requestid.Middleware(chain)
	return chain
}

// runServer starts the HTTP server and handles graceful shutdown.
func runServer(logger *slog.Logger, handler http.Handler, dispatcher dispatch.Service, version string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addr := os.Getenv("API_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second, // Prevent Slowloris attacks
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		logger.Info("server starting",
			slog.String("addr", addr),
			slog.String("version", version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", slog.Any("error", err))
	}

	// Let in-flight manual retries finish their provider calls.
	if err := dispatcher.Shutdown(shutdownCtx); err != nil {
		logger.Error("dispatcher shutdown failed", slog.Any("error", err))
	}
	logger.Info("server stopped")
}
