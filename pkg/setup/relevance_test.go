package setup

import (
	"testing"
	"time"
)

func TestRelevantForDay(t *testing.T) {
	// 2025-05-12 is a Monday.
	monday := time.Date(2025, time.May, 12, 0, 0, 0, 0, time.UTC)
	tuesday := monday.AddDate(0, 0, 1)
	wednesday := monday.AddDate(0, 0, 2)
	friday := monday.AddDate(0, 0, 4)
	saturday := monday.AddDate(0, 0, 5)
	nextMonday := monday.AddDate(0, 0, 7)

	tests := []struct {
		name string
		d    time.Time
		day  time.Time
		want bool
	}{
		{"same day", wednesday, wednesday, true},
		{"previous day on weekday", tuesday, wednesday, true},
		{"friday setups on monday", friday, nextMonday, true},
		{"short holiday gap between weekdays", monday, friday, true},
		{"future setup", wednesday, tuesday, false},
		{"stale by a week", monday, nextMonday.AddDate(0, 0, 2), false},
		{"saturday is not a session", friday, saturday, false},
		{"weekend origin beyond one day", saturday, nextMonday.AddDate(0, 0, 1), false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := RelevantForDay(tt.d, tt.day); got != tt.want {
				t.Errorf("RelevantForDay(%s, %s) = %t, want %t", tt.d.Format("2006-01-02"), tt.day.Format("2006-01-02"), got, tt.want)
			}
		})
	}
}
