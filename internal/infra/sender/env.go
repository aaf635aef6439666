package sender

import (
	"log/slog"
	"net/url"
	"os"
	"time"
)

// Default per-attempt HTTP timeouts. Overridable per provider through the
// *_TIMEOUT environment variables.
const (
	defaultEmailTimeout   = 30 * time.Second
	defaultGatewayTimeout = 30 * time.Second
	defaultPushTimeout    = 10 * time.Second
	defaultPushTTL        = 1 * time.Hour
)

// LoadEmailConfigFromEnv loads the transactional email provider configuration.
//
// Environment variables:
//   - EMAIL_ENABLED: Boolean flag to enable email delivery (default: false)
//   - EMAIL_API_KEY: Provider API key (required if enabled)
//   - EMAIL_BASE_URL: Provider API base URL (required if enabled, must be HTTPS)
//   - EMAIL_FROM_ADDRESS: Verified sender address (required if enabled)
//   - EMAIL_FROM_NAME: Display name shown to recipients (optional)
//   - EMAIL_TIMEOUT: Per-attempt HTTP timeout (default: 30s)
//
// Misconfiguration disables the channel with a warning instead of failing
// startup; the remaining channels keep working.
func LoadEmailConfigFromEnv(logger *slog.Logger) EmailConfig {
	if os.Getenv("EMAIL_ENABLED") != "true" {
		return EmailConfig{Enabled: false}
	}

	cfg := EmailConfig{
		Enabled:     true,
		APIKey:      os.Getenv("EMAIL_API_KEY"),
		BaseURL:     os.Getenv("EMAIL_BASE_URL"),
		FromAddress: os.Getenv("EMAIL_FROM_ADDRESS"),
		FromName:    os.Getenv("EMAIL_FROM_NAME"),
		Timeout:     envDuration("EMAIL_TIMEOUT", defaultEmailTimeout),
	}

	if cfg.APIKey == "" || cfg.FromAddress == "" {
		logger.Warn("email provider credentials incomplete, disabling email channel")
		return EmailConfig{Enabled: false}
	}
	if !validHTTPSURL(cfg.BaseURL) {
		logger.Warn("email provider base URL must be HTTPS, disabling email channel",
			slog.String("base_url", cfg.BaseURL))
		return EmailConfig{Enabled: false}
	}
	return cfg
}

// LoadGatewayConfigFromEnv loads the messaging gateway configuration shared
// by the SMS and WhatsApp channels.
//
// Environment variables:
//   - GATEWAY_ENABLED: Boolean flag to enable gateway delivery (default: false)
//   - GATEWAY_ACCOUNT_ID: Gateway account identifier (required if enabled)
//   - GATEWAY_AUTH_TOKEN: Gateway API token (required if enabled)
//   - GATEWAY_BASE_URL: Gateway API base URL (required if enabled, must be HTTPS)
//   - GATEWAY_SMS_FROM: Sending number for SMS (empty disables SMS)
//   - GATEWAY_WHATSAPP_FROM: Sending identity for WhatsApp (empty disables WhatsApp)
//   - GATEWAY_TIMEOUT: Per-attempt HTTP timeout (default: 30s)
func LoadGatewayConfigFromEnv(logger *slog.Logger) GatewayConfig {
	if os.Getenv("GATEWAY_ENABLED") != "true" {
		return GatewayConfig{Enabled: false}
	}

	cfg := GatewayConfig{
		Enabled:      true,
		AccountID:    os.Getenv("GATEWAY_ACCOUNT_ID"),
		AuthToken:    os.Getenv("GATEWAY_AUTH_TOKEN"),
		BaseURL:      os.Getenv("GATEWAY_BASE_URL"),
		SMSFrom:      os.Getenv("GATEWAY_SMS_FROM"),
		WhatsAppFrom: os.Getenv("GATEWAY_WHATSAPP_FROM"),
		Timeout:      envDuration("GATEWAY_TIMEOUT", defaultGatewayTimeout),
	}

	if cfg.AccountID == "" || cfg.AuthToken == "" {
		logger.Warn("gateway credentials incomplete, disabling SMS and WhatsApp channels")
		return GatewayConfig{Enabled: false}
	}
	if !validHTTPSURL(cfg.BaseURL) {
		logger.Warn("gateway base URL must be HTTPS, disabling SMS and WhatsApp channels",
			slog.String("base_url", cfg.BaseURL))
		return GatewayConfig{Enabled: false}
	}
	if cfg.SMSFrom == "" && cfg.WhatsAppFrom == "" {
		logger.Warn("gateway has no sending identity configured, disabling SMS and WhatsApp channels")
		return GatewayConfig{Enabled: false}
	}
	return cfg
}

// LoadPushConfigFromEnv loads the web push relay configuration.
//
// Environment variables:
//   - PUSH_ENABLED: Boolean flag to enable push delivery (default: false)
//   - PUSH_AUTH_TOKEN: Relay auth token (required if enabled)
//   - PUSH_TTL: How long the push service holds an undelivered message (default: 1h)
//   - PUSH_TIMEOUT: Per-subscription HTTP timeout (default: 10s)
func LoadPushConfigFromEnv(logger *slog.Logger) PushConfig {
	if os.Getenv("PUSH_ENABLED") != "true" {
		return PushConfig{Enabled: false}
	}

	cfg := PushConfig{
		Enabled:   true,
		AuthToken: os.Getenv("PUSH_AUTH_TOKEN"),
		TTL:       envDuration("PUSH_TTL", defaultPushTTL),
		Timeout:   envDuration("PUSH_TIMEOUT", defaultPushTimeout),
	}

	if cfg.AuthToken == "" {
		logger.Warn("push relay auth token missing, disabling push channel")
		return PushConfig{Enabled: false}
	}
	return cfg
}

func envDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func validHTTPSURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.Scheme == "https" && u.Host != ""
}
