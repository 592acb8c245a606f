// Package alerts implements the rule-based parser for free-form trade-setup
// alert messages: a date header, then one blank-line separated block per
// ticker carrying price-trigger statements, targets and bias levels in
// loosely structured text.
package alerts

import (
	"time"

	"github.com/martxel/setra/pkg/setup"
)

type Parser struct{}

func New() *Parser {
	return &Parser{}
}

// Parse extracts a setup batch from raw alert text. It never fails: text
// that matches nothing yields a batch with no tickers. The receipt time is
// the only clock the parser sees, so identical inputs always produce
// identical batches.
func (p *Parser) Parse(text string, receivedAt time.Time, source string) (*setup.Batch, error) {
	batch := &setup.Batch{
		Date:   inferDate(text, receivedAt),
		Raw:    text,
		Source: source,
	}
	for _, sec := range sections(text) {
		ts := &setup.TickerSetup{
			Symbol:  sec.symbol,
			Raw:     sec.text,
			Signals: extractSignals(sec.text),
			Bias:    extractBias(sec.text),
		}
		ts.Support, ts.Resistance = extractLevels(sec.text)
		batch.Tickers = append(batch.Tickers, ts)
	}
	return batch, nil
}
