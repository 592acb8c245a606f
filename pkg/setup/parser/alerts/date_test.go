package alerts

import (
	"testing"
	"time"
)

func TestInferDate(t *testing.T) {
	received := time.Date(2025, time.May, 14, 13, 45, 0, 0, time.UTC)
	tests := []struct {
		name string
		text string
		want time.Time
	}{
		{
			name: "weekday with comma",
			text: "A+ Trade Setups (Wed, May 14)\n\nSPY: Breakout Above 590",
			want: day(2025, time.May, 14),
		},
		{
			name: "weekday without comma",
			text: "A+ Trade Setups (Wednesday May 13)",
			want: day(2025, time.May, 13),
		},
		{
			name: "month day only",
			text: "A+ Trade Setups (May 12)",
			want: day(2025, time.May, 12),
		},
		{
			name: "setups with explicit year",
			text: "Morning Setups (Tuesday, May 13, 2025)",
			want: day(2025, time.May, 13),
		},
		{
			name: "setups without weekday",
			text: "Morning Setups (May 9, 2025)",
			want: day(2025, time.May, 9),
		},
		{
			name: "no header falls back to receipt date",
			text: "SPY: Breakout Above 590",
			want: day(2025, time.May, 14),
		},
		{
			name: "future date falls back",
			text: "A+ Trade Setups (May 20)",
			want: day(2025, time.May, 14),
		},
		{
			name: "too old falls back",
			text: "A+ Trade Setups (May 1)",
			want: day(2025, time.May, 14),
		},
		{
			name: "header outside first two lines is ignored",
			text: "SPY: Breakout Above 590\nNVDA: Breakdown Below 900\nA+ Trade Setups (May 13)",
			want: day(2025, time.May, 14),
		},
		{
			name: "invalid month falls back",
			text: "A+ Trade Setups (Mai 13)",
			want: day(2025, time.May, 14),
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got := inferDate(tt.text, received)
			if !got.Equal(tt.want) {
				t.Errorf("want %s, got %s", tt.want, got)
			}
		})
	}
}

func TestInferDateYearBoundary(t *testing.T) {
	// A late December header read in early January belongs to the
	// previous year.
	received := time.Date(2026, time.January, 2, 9, 0, 0, 0, time.UTC)
	got := inferDate("A+ Trade Setups (Dec 31)", received)
	want := day(2025, time.December, 31)
	if !got.Equal(want) {
		t.Errorf("want %s, got %s", want, got)
	}
}

func TestInferDatePrecedence(t *testing.T) {
	// The first matching pattern wins even when a later one would also
	// match; the comma pattern must grab the weekday form.
	received := time.Date(2025, time.May, 14, 13, 45, 0, 0, time.UTC)
	got := inferDate("A+ Trade Setups (Wed, May 14)", received)
	if want := day(2025, time.May, 14); !got.Equal(want) {
		t.Errorf("want %s, got %s", want, got)
	}
}
