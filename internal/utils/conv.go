package utils

import (
	"strconv"
)

// ParseUint parses a decimal id parameter. The second return value is false
// for empty, malformed, or zero input.
func ParseUint(s string) (uint, bool) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}
