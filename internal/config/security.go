package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// JWTConfig configures bearer-token auth for the operator endpoints.
type JWTConfig struct {
	SecretEnv   string `yaml:"secret_env"`
	ExpiryHours int    `yaml:"expiry_hours"`
}

// WebhookAuth names the environment variable carrying one provider's shared
// webhook secret. Secrets themselves never appear in the YAML file.
type WebhookAuth struct {
	SecretEnv string `yaml:"secret_env"`
}

// SecurityConfig represents security configuration for the API surface.
type SecurityConfig struct {
	Security struct {
		JWT             JWTConfig              `yaml:"jwt"`
		Webhooks        map[string]WebhookAuth `yaml:"webhooks"`
		PublicEndpoints []string               `yaml:"public_endpoints"`
	} `yaml:"security"`
}

// LoadSecurityConfig loads security configuration from YAML file.
// The path parameter is expected to come from a trusted source (command-line argument or hardcoded default).
func LoadSecurityConfig(path string) (*SecurityConfig, error) {
	// #nosec G304 -- path is provided by trusted source (CLI arg or config), not user input
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config SecurityConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validateSecurityConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// validateSecurityConfig validates the loaded configuration.
func validateSecurityConfig(config *SecurityConfig) error {
	if config.Security.JWT.SecretEnv == "" {
		return fmt.Errorf("jwt secret_env is required")
	}

	if config.Security.JWT.ExpiryHours <= 0 {
		return fmt.Errorf("jwt expiry_hours must be positive")
	}

	for provider, hook := range config.Security.Webhooks {
		if hook.SecretEnv == "" {
			return fmt.Errorf("webhook secret_env is required for provider %q", provider)
		}
	}

	return nil
}

// GetPublicEndpoints returns the list of endpoints served without auth.
func (c *SecurityConfig) GetPublicEndpoints() []string {
	return c.Security.PublicEndpoints
}

// GetJWTSecretEnv returns the environment variable name for JWT secret.
func (c *SecurityConfig) GetJWTSecretEnv() string {
	return c.Security.JWT.SecretEnv
}

// GetJWTExpiryHours returns the JWT expiry time in hours.
func (c *SecurityConfig) GetJWTExpiryHours() int {
	return c.Security.JWT.ExpiryHours
}

// WebhookSecret resolves the shared secret for a provider's receipt webhook.
// Returns an empty string when the provider has no webhook configured or the
// environment variable is unset.
func (c *SecurityConfig) WebhookSecret(provider string) string {
	hook, ok := c.Security.Webhooks[provider]
	if !ok {
		return ""
	}
	return os.Getenv(hook.SecretEnv)
}
