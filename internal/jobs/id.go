package jobs

import (
	"strings"

	"github.com/google/uuid"
)

// IDPrefix marks variation batch job IDs.
const IDPrefix = "var-"

// GenerateID creates a new random job ID carrying IDPrefix.
func GenerateID() string {
	return IDPrefix + uuid.NewString()
}

// NormalizeID accepts IDs with or without IDPrefix, so clients can use the
// bare UUID in URLs.
func NormalizeID(raw string) string {
	if !strings.HasPrefix(raw, IDPrefix) {
		return IDPrefix + raw
	}
	return raw
}
