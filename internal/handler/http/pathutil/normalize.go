package pathutil

import (
	"regexp"
	"strings"
)

// PathPattern represents a regex pattern and its corresponding normalized template.
type PathPattern struct {
	Pattern  *regexp.Regexp
	Template string
}

// uuidSegment matches a canonical UUID path segment. Record ids are UUIDs, so
// unnormalized paths would explode metrics label cardinality.
const uuidSegment = `[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`

// pathPatterns defines the list of patterns for dynamic routes.
// Patterns are evaluated in order from most specific to least specific.
// Pre-compiled at initialization.
var pathPatterns = []*PathPattern{
	// Operator routes with record ids
	{Pattern: regexp.MustCompile(`^/admin/notifications/` + uuidSegment + `/retry$`), Template: "/admin/notifications/:id/retry"},
	{Pattern: regexp.MustCompile(`^/admin/notifications/` + uuidSegment + `$`), Template: "/admin/notifications/:id"},

	// Receipt webhooks keyed by provider; provider names are a small fixed
	// set so they stay as-is, but anything deeper is collapsed.
	{Pattern: regexp.MustCompile(`^/webhooks/receipts/[a-z_]+/` + uuidSegment + `$`), Template: "/webhooks/receipts/:provider/:id"},
}

// NormalizePath normalizes dynamic URL paths to prevent metrics label
// cardinality explosion. Paths carrying record UUIDs (e.g.
// /admin/notifications/9f2c.../retry) collapse to template form
// (/admin/notifications/:id/retry). Static paths remain unchanged.
//
// Query parameters and trailing slashes are stripped first:
//
//	NormalizePath("/admin/notifications/failed?limit=10")  // "/admin/notifications/failed"
//	NormalizePath("/health/")                              // "/health"
func NormalizePath(path string) string {
	if idx := strings.IndexByte(path, '?'); idx != -1 {
		path = path[:idx]
	}

	if len(path) > 1 && path[len(path)-1] == '/' {
		path = path[:len(path)-1]
	}

	for _, p := range pathPatterns {
		if p.Pattern.MatchString(path) {
			return p.Template
		}
	}

	// No match found. Static paths like /health, /metrics and
	// /admin/notifications/failed pass through unchanged.
	return path
}
