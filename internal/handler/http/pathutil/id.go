package pathutil

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidID is returned when the ID in the URL path is invalid.
var ErrInvalidID = errors.New("invalid id")

// ExtractID extracts a record UUID from a URL path.
// It removes the prefix and optional suffix and validates the remaining
// segment as a canonical UUID.
//
// Example:
//
//	id, err := ExtractID("/admin/notifications/9f2c.../retry", "/admin/notifications/", "/retry")
func ExtractID(path, prefix, suffix string) (string, error) {
	idStr := strings.TrimPrefix(path, prefix)
	if suffix != "" {
		idStr = strings.TrimSuffix(idStr, suffix)
	}
	parsed, err := uuid.Parse(idStr)
	if err != nil {
		return "", ErrInvalidID
	}
	return parsed.String(), nil
}
