package alerts

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/martxel/setra/pkg/setup"
)

// Header date patterns in precedence order, most specific first. The first
// pattern that matches wins, even if its date is later rejected.
type headerPattern struct {
	re    *regexp.Regexp
	month int
	day   int
	year  int
}

var headerPatterns = []headerPattern{
	// "A+ Trade Setups (Wed, May 14)"
	{
		re:    regexp.MustCompile(`(?i)Trade Setups\s*\(\s*[A-Za-z]+\s*,\s*([A-Za-z]+)\s+(\d{1,2})\s*\)`),
		month: 1, day: 2,
	},
	// "A+ Trade Setups (Wed May 14)"
	{
		re:    regexp.MustCompile(`(?i)Trade Setups\s*\(\s*[A-Za-z]+\s+([A-Za-z]+)\s+(\d{1,2})\s*\)`),
		month: 1, day: 2,
	},
	// "A+ Trade Setups (May 14)"
	{
		re:    regexp.MustCompile(`(?i)Trade Setups\s*\(\s*([A-Za-z]+)\s+(\d{1,2})\s*\)`),
		month: 1, day: 2,
	},
	// "Setups (Wed, May 14, 2025)", weekday and year optional
	{
		re:    regexp.MustCompile(`(?i)Setups\s*\(\s*(?:[A-Za-z]+\s*,?\s+)?([A-Za-z]+)\s+(\d{1,2})(?:\s*,\s*(\d{4}))?\s*\)`),
		month: 1, day: 2, year: 3,
	},
}

// maxPastDays is how far back a header date may lie before it is discarded
// in favor of the receipt date.
const maxPastDays = 10

// inferDate resolves which trading day the message applies to. The receipt
// timestamp doubles as the "today" reference so the result only depends on
// the two inputs.
func inferDate(text string, receivedAt time.Time) time.Time {
	today := setup.Day(receivedAt)
	header := headerOf(text)
	for _, p := range headerPatterns {
		m := p.re.FindStringSubmatch(header)
		if m == nil {
			continue
		}
		month, ok := monthByName(m[p.month])
		if !ok {
			break
		}
		day, err := strconv.Atoi(m[p.day])
		if err != nil {
			break
		}
		year := today.Year()
		explicitYear := false
		if p.year > 0 && m[p.year] != "" {
			y, err := strconv.Atoi(m[p.year])
			if err != nil {
				break
			}
			year = y
			explicitYear = true
		}
		candidate := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
		if candidate.Month() != month || candidate.Day() != day {
			break
		}
		// A December header read in January lands almost a year ahead;
		// pull it back.
		if !explicitYear && candidate.After(today.AddDate(0, 0, 30)) {
			candidate = time.Date(year-1, month, day, 0, 0, 0, 0, time.UTC)
		}
		if candidate.After(today) {
			break
		}
		if candidate.Before(today.AddDate(0, 0, -maxPastDays)) {
			break
		}
		return candidate
	}
	return today
}

// headerOf returns the first two lines of the message, which is the only
// region date headers are searched in.
func headerOf(text string) string {
	lines := strings.SplitN(text, "\n", 3)
	if len(lines) > 2 {
		lines = lines[:2]
	}
	return strings.Join(lines, "\n")
}

func monthByName(name string) (time.Month, bool) {
	name = strings.ToLower(name)
	for m := time.January; m <= time.December; m++ {
		full := strings.ToLower(m.String())
		if name == full || name == full[:3] {
			return m, true
		}
	}
	return 0, false
}
