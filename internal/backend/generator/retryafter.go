package generator

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// parseRetryAfterHeader understands both forms of the Retry-After header:
// delay in seconds and an HTTP date. Returns zero when absent or unparseable.
func parseRetryAfterHeader(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds <= 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if delay := at.Sub(now); delay > 0 {
			return delay
		}
	}
	return 0
}
