package jobs

import (
	"fmt"
	"strconv"
)

// ParseIndex parses a 1-based output index from a URL path segment.
func ParseIndex(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %q", ErrOutOfRange, s)
	}
	return n, nil
}
