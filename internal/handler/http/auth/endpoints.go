package auth

import "strings"

// PublicEndpoints defines endpoints that don't require a JWT.
//
// Justification for each public endpoint:
// - /health, /ready, /live: Required for orchestration health checks (Kubernetes, Docker, monitoring)
// - /metrics: Required for Prometheus scraping
// - /webhooks/: Provider receipt callbacks authenticate with a per-provider shared secret instead of a JWT
var PublicEndpoints = []string{
	"/health",
	"/ready",
	"/live",
	"/metrics",
	"/webhooks/",
}

// IsPublicEndpoint checks if a given path is a public endpoint.
// Public endpoints can be accessed without bearer authentication.
//
// Matching logic:
// - Endpoints ending with '/' use prefix matching (e.g., /webhooks/* matches /webhooks/receipts/email)
// - Endpoints without '/' require exact match or query params only (e.g., /health matches /health?x=1 but not /health/detail)
func IsPublicEndpoint(path string) bool {
	for _, endpoint := range PublicEndpoints {
		if strings.HasSuffix(endpoint, "/") {
			if strings.HasPrefix(path, endpoint) {
				return true
			}
			continue
		}

		// For endpoints without trailing '/', only allow exact match, trailing
		// slash, or query params. This prevents /health from matching
		// /health/detail or /healthcheck.
		if path == endpoint {
			return true
		}
		if path == endpoint+"/" {
			return true
		}
		if strings.HasPrefix(path, endpoint+"?") {
			return true
		}
	}
	return false
}
