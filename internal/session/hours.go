package session

import (
	"time"

	"github.com/option-signal-feed/internal/config"
)

// marketOpen reports whether the exchange is trading at the given
// instant: weekdays only, between the configured open and close
// wall-clock times inclusive.
func marketOpen(now time.Time, cfg config.MarketConfig) bool {
	local := now.In(cfg.Location())
	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	open := sessionStart(now, cfg)
	close := clockToday(local, cfg.CloseTime, cfg.Location())
	return !local.Before(open) && !local.After(close)
}

// sessionStart returns today's market-open instant in exchange time.
func sessionStart(now time.Time, cfg config.MarketConfig) time.Time {
	return clockToday(now.In(cfg.Location()), cfg.OpenTime, cfg.Location())
}

func clockToday(local time.Time, clock string, loc *time.Location) time.Time {
	hour, minute, err := config.ParseClock(clock)
	if err != nil {
		// Validated at load time; an unparseable value here means a
		// programming error, fall back to midnight.
		hour, minute = 0, 0
	}
	return time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
}
