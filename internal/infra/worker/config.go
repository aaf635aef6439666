package worker

import (
	"fmt"
	"log/slog"
	"time"

	"adhera-notify/internal/pkg/config"
)

// WorkerConfig holds the configuration for the worker component: producer
// cron scheduling, the retry sweep, dispatch concurrency and the health
// endpoint.
//
// Configuration sources:
//   - Environment variables (loaded via LoadConfigFromEnv)
//   - Default values (provided by DefaultConfig)
//
// All fields have defaults and validation rules so the worker can start
// safely even with invalid or missing configuration.
type WorkerConfig struct {
	// Timezone is the IANA timezone name for cron scheduling. Producer
	// schedules like "daily at 09:00" fire in this zone.
	// Validation: Must be a valid IANA timezone name
	// Default: "UTC"
	Timezone string

	// RetrySchedule is the cron expression for the retry sweep.
	// Format: "minute hour day month weekday"
	// Default: "*/10 * * * *" (every 10 minutes)
	RetrySchedule string

	// RetryBatchSize caps how many failed records one retry sweep claims.
	// Range: 1-500
	// Default: 50
	RetryBatchSize int

	// DispatchMaxConcurrent is the maximum number of concurrent provider
	// sends across all producers and the retry sweep.
	// Range: 1-100
	// Default: 10
	DispatchMaxConcurrent int

	// SendTimeout bounds a single provider send, including the record
	// state transition that follows it.
	// Range: 1s-5m
	// Default: 30 seconds
	SendTimeout time.Duration

	// ProducerRunTimeout bounds one producer run end to end, from the
	// candidate scan through the last dispatch.
	// Range: 1m-4h
	// Default: 5 minutes
	ProducerRunTimeout time.Duration

	// HealthPort is the port number for the health check HTTP server.
	// Range: 1024-65535 (avoid privileged ports)
	// Default: 9091
	HealthPort int
}

// DefaultConfig returns a WorkerConfig with production defaults: a 10 minute
// retry sweep, 50 records per sweep, 10 concurrent sends and a 30 second
// per-send budget.
func DefaultConfig() WorkerConfig {
	return WorkerConfig{
		Timezone:              "UTC",
		RetrySchedule:         "*/10 * * * *",
		RetryBatchSize:        50,
		DispatchMaxConcurrent: 10,
		SendTimeout:           30 * time.Second,
		ProducerRunTimeout:    5 * time.Minute,
		HealthPort:            9091,
	}
}

// Validate checks the configuration values using the reusable validators
// from internal/pkg/config. All failures are collected and returned together.
func (c *WorkerConfig) Validate() error {
	var errors []error

	if err := config.ValidateTimezone(c.Timezone); err != nil {
		errors = append(errors, fmt.Errorf("timezone: %w", err))
	}

	if err := config.ValidateCronSchedule(c.RetrySchedule); err != nil {
		errors = append(errors, fmt.Errorf("retry schedule: %w", err))
	}

	if err := config.ValidateIntRange(c.RetryBatchSize, 1, 500); err != nil {
		errors = append(errors, fmt.Errorf("retry batch size: %w", err))
	}

	if err := config.ValidateIntRange(c.DispatchMaxConcurrent, 1, 100); err != nil {
		errors = append(errors, fmt.Errorf("dispatch max concurrent: %w", err))
	}

	if err := config.ValidateDuration(c.SendTimeout, time.Second, 5*time.Minute); err != nil {
		errors = append(errors, fmt.Errorf("send timeout: %w", err))
	}

	if err := config.ValidateDuration(c.ProducerRunTimeout, time.Minute, 4*time.Hour); err != nil {
		errors = append(errors, fmt.Errorf("producer run timeout: %w", err))
	}

	if err := config.ValidateIntRange(c.HealthPort, 1024, 65535); err != nil {
		errors = append(errors, fmt.Errorf("health port: %w", err))
	}

	if len(errors) > 0 {
		return fmt.Errorf("validation failed: %v", errors)
	}

	return nil
}

// LoadConfigFromEnv loads worker configuration from environment variables
// with validation and automatic fallback to default values on failure.
//
// This function implements the fail-open strategy:
//  1. Start with DefaultConfig() as base
//  2. Load each field from environment variables
//  3. Validate each loaded value
//  4. If validation fails: use default value, log warning, increment metrics
//  5. Never return error - always return a valid configuration
//
// Environment variables:
//   - WORKER_TIMEZONE: IANA timezone name (default: "UTC")
//   - RETRY_SCHEDULE: Cron expression (default: "*/10 * * * *")
//   - RETRY_BATCH_SIZE: Integer 1-500 (default: 50)
//   - DISPATCH_MAX_CONCURRENT: Integer 1-100 (default: 10)
//   - SEND_TIMEOUT: Duration string, e.g., "30s" (default: 30 seconds)
//   - PRODUCER_RUN_TIMEOUT: Duration string, e.g., "5m" (default: 5 minutes)
//   - WORKER_HEALTH_PORT: Integer 1024-65535 (default: 9091)
//
// Metrics updated:
//   - ValidationErrorsTotal: Incremented for each validation failure
//   - FallbacksTotal: Incremented for each fallback applied
//   - FallbackActive: Set to 1 if any fallback is active, 0 otherwise
//   - LoadTimestamp: Set to current time after successful load
func LoadConfigFromEnv(logger *slog.Logger, metrics *WorkerMetrics) (*WorkerConfig, error) {
	cfg := DefaultConfig()
	fallbackApplied := false

	result := config.LoadEnvWithFallback("WORKER_TIMEZONE", cfg.Timezone, config.ValidateTimezone)
	cfg.Timezone = result.Value.(string)
	if result.FallbackApplied {
		fallbackApplied = true
		metrics.RecordValidationError("timezone")
		metrics.RecordFallback("timezone", "default")
		for _, warning := range result.Warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", "Timezone"),
				slog.String("warning", warning))
		}
	}

	result = config.LoadEnvWithFallback("RETRY_SCHEDULE", cfg.RetrySchedule, config.ValidateCronSchedule)
	cfg.RetrySchedule = result.Value.(string)
	if result.FallbackApplied {
		fallbackApplied = true
		metrics.RecordValidationError("retry_schedule")
		metrics.RecordFallback("retry_schedule", "default")
		for _, warning := range result.Warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", "RetrySchedule"),
				slog.String("warning", warning))
		}
	}

	result = config.LoadEnvInt("RETRY_BATCH_SIZE", cfg.RetryBatchSize, func(v int) error {
		return config.ValidateIntRange(v, 1, 500)
	})
	cfg.RetryBatchSize = result.Value.(int)
	if result.FallbackApplied {
		fallbackApplied = true
		metrics.RecordValidationError("retry_batch_size")
		metrics.RecordFallback("retry_batch_size", "default")
		for _, warning := range result.Warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", "RetryBatchSize"),
				slog.String("warning", warning))
		}
	}

	result = config.LoadEnvInt("DISPATCH_MAX_CONCURRENT", cfg.DispatchMaxConcurrent, func(v int) error {
		return config.ValidateIntRange(v, 1, 100)
	})
	cfg.DispatchMaxConcurrent = result.Value.(int)
	if result.FallbackApplied {
		fallbackApplied = true
		metrics.RecordValidationError("dispatch_max_concurrent")
		metrics.RecordFallback("dispatch_max_concurrent", "default")
		for _, warning := range result.Warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", "DispatchMaxConcurrent"),
				slog.String("warning", warning))
		}
	}

	result = config.LoadEnvDuration("SEND_TIMEOUT", cfg.SendTimeout, func(d time.Duration) error {
		return config.ValidateDuration(d, time.Second, 5*time.Minute)
	})
	cfg.SendTimeout = result.Value.(time.Duration)
	if result.FallbackApplied {
		fallbackApplied = true
		metrics.RecordValidationError("send_timeout")
		metrics.RecordFallback("send_timeout", "default")
		for _, warning := range result.Warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", "SendTimeout"),
				slog.String("warning", warning))
		}
	}

	result = config.LoadEnvDuration("PRODUCER_RUN_TIMEOUT", cfg.ProducerRunTimeout, func(d time.Duration) error {
		return config.ValidateDuration(d, time.Minute, 4*time.Hour)
	})
	cfg.ProducerRunTimeout = result.Value.(time.Duration)
	if result.FallbackApplied {
		fallbackApplied = true
		metrics.RecordValidationError("producer_run_timeout")
		metrics.RecordFallback("producer_run_timeout", "default")
		for _, warning := range result.Warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", "ProducerRunTimeout"),
				slog.String("warning", warning))
		}
	}

	result = config.LoadEnvInt("WORKER_HEALTH_PORT", cfg.HealthPort, func(v int) error {
		return config.ValidateIntRange(v, 1024, 65535)
	})
	cfg.HealthPort = result.Value.(int)
	if result.FallbackApplied {
		fallbackApplied = true
		metrics.RecordValidationError("health_port")
		metrics.RecordFallback("health_port", "default")
		for _, warning := range result.Warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", "HealthPort"),
				slog.String("warning", warning))
		}
	}

	metrics.SetFallbackActive("", fallbackApplied)
	metrics.RecordLoadTimestamp()

	// Always return valid config (fail-open strategy)
	return &cfg, nil
}
