// Package utils holds small helpers shared across handler and service
// layers, independent of any domain type.
package utils

import "strconv"

// failureFeedMaxLimit caps the failure-log page size. The feed backs a
// dashboard badge poller, so a runaway ?limit= must not turn one request
// into a full-log dump.
const failureFeedMaxLimit = 500

// LimitParam parses a page-size query parameter. Empty, non-numeric, and
// non-positive values mean "no limit" (0); values above the feed cap are
// clamped to it.
func LimitParam(raw string) int {
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0
	}
	if n > failureFeedMaxLimit {
		return failureFeedMaxLimit
	}
	return n
}
