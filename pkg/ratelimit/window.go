// Package ratelimit paces outbound catalog API requests.
// A local token bucket bounds each process; an optional Redis fixed window
// shares one request budget across all processes using the same Redis.
package ratelimit

import (
	"strconv"
	"time"
)

// RedisKeyPrefix prefixes the per-second window counters in Redis.
const RedisKeyPrefix = "catalog:rate_limit:"

// WindowSize is the length of one shared counting window.
const WindowSize = time.Second

// windowTTL keeps a window key slightly longer than the window itself so a
// late INCR never recreates a key without expiry.
const windowTTL = 2 * WindowSize

// Window is the shared request count for one fixed window.
type Window struct {
	// Start is the beginning of the window.
	Start time.Time `json:"start"`

	// Count is the number of requests reserved in this window,
	// including the caller's own reservation.
	Count int64 `json:"count"`

	// Limit is the maximum number of requests allowed per window.
	Limit int `json:"limit"`
}

// WindowStart truncates t to the start of its window.
func WindowStart(t time.Time) time.Time {
	return t.Truncate(WindowSize)
}

// WindowKey returns the Redis key counting requests in the window containing t.
func WindowKey(t time.Time) string {
	return RedisKeyPrefix + strconv.FormatInt(WindowStart(t).Unix(), 10)
}

// Exceeded reports whether the window holds more requests than allowed.
// A non-positive limit never exceeds.
func (w Window) Exceeded() bool {
	return w.Limit > 0 && w.Count > int64(w.Limit)
}

// TimeUntilNext returns the duration from now until the next window starts.
// Returns 0 if the window has already ended.
func (w Window) TimeUntilNext(now time.Time) time.Duration {
	d := w.Start.Add(WindowSize).Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
