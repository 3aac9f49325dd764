package util

import "strconv"

// ParseSnowflake converts a Discord ID string to uint64, returning 0 for
// empty or malformed input. Gateway payloads occasionally omit IDs.
func ParseSnowflake(s string) uint64 {
	if s == "" {
		return 0
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
