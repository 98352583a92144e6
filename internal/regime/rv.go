package regime

import (
	"math"
	"time"
)

// RVCurrent is the short-window realized volatility: the absolute move
// over the lookback window. Returns false when the window has no
// earlier sample.
func RVCurrent(current, windowAgo float64, hasWindowAgo bool) (float64, bool) {
	if !hasWindowAgo {
		return 0, false
	}
	return math.Abs(current - windowAgo), true
}

// RVOpenNorm is the day's average movement speed: the absolute move
// from the open divided by the number of lookback windows elapsed
// since the session start (at least one).
func RVOpenNorm(current, open float64, sessionStart, now time.Time, window time.Duration) (float64, bool) {
	if open == 0 || window <= 0 {
		return 0, false
	}
	windows := now.Sub(sessionStart).Minutes() / window.Minutes()
	if windows < 1 {
		windows = 1
	}
	return math.Abs(current-open) / windows, true
}
