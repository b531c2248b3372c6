package handlers

import (
	"strconv"
	"time"
)

// RetryAfter formats d as a Retry-After header value in whole seconds, rounded up.
func RetryAfter(d time.Duration) string {
	if d <= 0 {
		return "0"
	}

	secs := int64(d / time.Second)
	if d%time.Second != 0 {
		secs++
	}

	return strconv.FormatInt(secs, 10)
}
