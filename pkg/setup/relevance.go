package setup

import "time"

// RelevantForDay reports whether a setup dated d still applies to a trading
// session on day. It accepts same-day setups, the previous day's setups on a
// weekday session, Friday setups on the following Monday, and gaps of up to
// four days between two weekdays to ride over market holidays without
// consulting a holiday calendar.
func RelevantForDay(d, day time.Time) bool {
	d = Day(d)
	day = Day(day)
	if d.After(day) {
		return false
	}
	if d.Equal(day) {
		return true
	}
	gap := int(day.Sub(d).Hours() / 24)
	if gap == 1 && weekday(day) {
		return true
	}
	if d.Weekday() == time.Friday && day.Weekday() == time.Monday && gap == 3 {
		return true
	}
	if gap <= 4 && weekday(d) && weekday(day) {
		return true
	}
	return false
}

func weekday(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return true
}
