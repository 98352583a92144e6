package ingestion

import "time"

// NextWeeklyExpiry returns the current weekly expiry date in YYYY-MM-DD
// format: today when today is the expiry weekday, otherwise the next
// occurrence of it.
func NextWeeklyExpiry(now time.Time, weekday time.Weekday) string {
	days := (int(weekday) - int(now.Weekday()) + 7) % 7
	return now.AddDate(0, 0, days).Format("2006-01-02")
}
