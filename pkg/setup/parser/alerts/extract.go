package alerts

import (
	"regexp"
	"strings"

	"github.com/martxel/setra/pkg/setup"
	"github.com/shopspring/decimal"
)

const num = `\$?((?:[0-9]{1,3}(?:,[0-9]{3})+(?:\.[0-9]+)?)|(?:[0-9]+(?:[.,][0-9]+)?))`

var (
	headlineRe   = regexp.MustCompile(`(?i)\b(breakout|breakdown|rejection|bounce)\s+(above|below|near|between)\s+` + num + `(?:\s*(?:-|–|to|and)\s*` + num + `)?`)
	targetRe     = regexp.MustCompile(`(?i)\b(?:upper\s+|lower\s+)?target\s*([0-9]+)?\s*:\s*` + num)
	supportRe    = regexp.MustCompile(`(?i)\bsupport\s*:\s*` + num)
	resistanceRe = regexp.MustCompile(`(?i)\bresistance\s*:\s*` + num)
	biasRe       = regexp.MustCompile(`(?i)\b(bullish|bearish)\s+bias\s+(above|below|near)\s+` + num)
	flipRe       = regexp.MustCompile(`(?i)\bflips?\s+(bullish|bearish)(?:\s+(?:above|below|near))?\s+` + num)

	// "1,234" is a thousands-grouped integer, "588,8" a decimal comma.
	thousandsRe = regexp.MustCompile(`^[0-9]{1,3}(?:,[0-9]{3})+(?:\.[0-9]+)?$`)
)

// price converts a matched numeric group. Thousands commas are stripped and
// a lone comma is accepted as decimal separator. A failed conversion means
// the field is skipped, never an aborted parse.
func price(s string) (decimal.Decimal, bool) {
	if thousandsRe.MatchString(s) {
		s = strings.ReplaceAll(s, ",", "")
	} else {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// extractSignals finds every headline-shaped statement in the section, one
// signal per matching line. Targets belong to the whole section when there
// is a single headline; with several headlines each one owns the lines up to
// the next.
func extractSignals(text string) []*setup.Signal {
	lines := strings.Split(text, "\n")
	var idx []int
	var sigs []*setup.Signal
	for i, line := range lines {
		s, ok := headlineSignal(line)
		if !ok {
			continue
		}
		idx = append(idx, i)
		sigs = append(sigs, s)
	}
	if len(sigs) == 0 {
		return nil
	}
	if len(sigs) == 1 {
		sigs[0].Targets = extractTargets(lines)
		return sigs
	}
	for n, s := range sigs {
		end := len(lines)
		if n+1 < len(idx) {
			end = idx[n+1]
		}
		s.Targets = extractTargets(lines[idx[n]:end])
	}
	return sigs
}

// headlineSignal matches one line against the "<Category> <Comparison>
// <price>" shape. Between-style comparisons need both band edges.
func headlineSignal(line string) (*setup.Signal, bool) {
	m := headlineRe.FindStringSubmatch(line)
	if m == nil {
		return nil, false
	}
	trigger, ok := price(m[3])
	if !ok {
		return nil, false
	}
	s := &setup.Signal{
		Category:       setup.Category(strings.ToLower(m[1])),
		Comparison:     comparison(m[2]),
		Trigger:        trigger,
		Aggressiveness: setup.None,
	}
	if s.Comparison == setup.Range {
		high, ok := price(m[4])
		if !ok {
			return nil, false
		}
		s.TriggerHigh = high
	}
	if strings.Contains(strings.ToLower(line), "aggressive") {
		s.Aggressiveness = setup.High
	}
	return s, true
}

func comparison(word string) setup.Comparison {
	switch strings.ToLower(word) {
	case "above":
		return setup.Above
	case "below":
		return setup.Below
	case "near":
		return setup.Near
	default:
		return setup.Range
	}
}

// extractTargets collects target levels in document order. Unnumbered
// "Target:" labels form the primary list; numbered "Target N:" labels are
// only used when no unnumbered label exists, so nothing is counted twice.
func extractTargets(lines []string) []decimal.Decimal {
	var generic []decimal.Decimal
	var numbered []decimal.Decimal
	for _, line := range lines {
		for _, m := range targetRe.FindAllStringSubmatch(line, -1) {
			p, ok := price(m[2])
			if !ok {
				continue
			}
			if m[1] == "" {
				generic = append(generic, p)
			} else {
				numbered = append(numbered, p)
			}
		}
	}
	if len(generic) > 0 {
		return generic
	}
	return numbered
}

// extractLevels picks up informational support/resistance statements, first
// match per label.
func extractLevels(text string) (support, resistance decimal.Decimal) {
	if m := supportRe.FindStringSubmatch(text); m != nil {
		if p, ok := price(m[1]); ok {
			support = p
		}
	}
	if m := resistanceRe.FindStringSubmatch(text); m != nil {
		if p, ok := price(m[1]); ok {
			resistance = p
		}
	}
	return support, resistance
}

// extractBias finds a bias statement and its optional flip. The comparison
// word next to the flip price is matched but only the price is kept.
func extractBias(text string) *setup.Bias {
	m := biasRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	p, ok := price(m[3])
	if !ok {
		return nil
	}
	b := &setup.Bias{
		Direction: setup.Direction(strings.ToLower(m[1])),
		Condition: comparison(m[2]),
		Price:     p,
	}
	if fm := flipRe.FindStringSubmatch(text); fm != nil {
		if fp, ok := price(fm[2]); ok {
			b.Flip = &setup.Flip{
				Direction: setup.Direction(strings.ToLower(fm[1])),
				Price:     fp,
			}
		}
	}
	return b
}
