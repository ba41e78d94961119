package contextutils

import (
	"strings"
)

// MaskToken masks a share token for logging purposes to prevent exposure
// Returns a masked version that shows only first 4 and last 4 characters
func MaskToken(token string) string {
	if token == "" {
		return "[EMPTY]"
	}

	if len(token) <= 8 {
		return strings.Repeat("*", len(token))
	}

	return token[:4] + strings.Repeat("*", len(token)-8) + token[len(token)-4:]
}
