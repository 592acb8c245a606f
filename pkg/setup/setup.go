package setup

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category classifies the directional action a signal describes.
type Category string

const (
	Breakout  Category = "breakout"
	Breakdown Category = "breakdown"
	Rejection Category = "rejection"
	Bounce    Category = "bounce"
)

// Comparison tells how the current price must relate to the trigger level.
type Comparison string

const (
	Above Comparison = "above"
	Below Comparison = "below"
	Near  Comparison = "near"
	Range Comparison = "range"
)

// Aggressiveness qualifies how aggressive a setup is. Only None and High are
// currently produced by the alert parser, the rest exist for structured
// sources.
type Aggressiveness string

const (
	None         Aggressiveness = "none"
	Low          Aggressiveness = "low"
	Medium       Aggressiveness = "medium"
	High         Aggressiveness = "high"
	Aggressive   Aggressiveness = "aggressive"
	Conservative Aggressiveness = "conservative"
)

// Direction is a market bias direction.
type Direction string

const (
	Bullish Direction = "bullish"
	Bearish Direction = "bearish"
)

// Signal is a single price-trigger statement extracted for a ticker.
// TriggerHigh is only set when Comparison is Range, in which case Trigger
// holds the low end of the band.
type Signal struct {
	Category       Category
	Aggressiveness Aggressiveness
	Comparison     Comparison
	Trigger        decimal.Decimal
	TriggerHigh    decimal.Decimal
	Targets        []decimal.Decimal
}

// Long reports whether the signal trades to the upside.
func (s *Signal) Long() bool {
	return s.Category == Breakout || s.Category == Bounce
}

// Flip is the level at which a bias inverts. The alert text carries a
// comparison word next to the flip price but only the price is kept.
type Flip struct {
	Direction Direction
	Price     decimal.Decimal
}

// Bias is a per-ticker market-bias statement with an optional flip level.
type Bias struct {
	Direction Direction
	Condition Comparison
	Price     decimal.Decimal
	Flip      *Flip
}

// TickerSetup groups everything extracted from one ticker's section of an
// alert message. Support and Resistance are informational levels and are
// never attached to individual signals.
type TickerSetup struct {
	Symbol     string
	Raw        string
	Signals    []*Signal
	Bias       *Bias
	Support    decimal.Decimal
	Resistance decimal.Decimal
}

// Batch is the parse result for one raw message: the trading day the setups
// apply to plus one TickerSetup per recognized ticker, in document order.
// A symbol appears at most once, first section wins.
type Batch struct {
	Date    time.Time
	Raw     string
	Source  string
	Tickers []*TickerSetup
}

// Ticker returns the setup for symbol, or nil.
func (b *Batch) Ticker(symbol string) *TickerSetup {
	for _, t := range b.Tickers {
		if t.Symbol == symbol {
			return t
		}
	}
	return nil
}

// Parser converts raw alert text into a Batch. Implementations must be pure:
// no I/O, no clock reads beyond the supplied receipt time, and identical
// inputs must yield identical output.
type Parser interface {
	Parse(text string, receivedAt time.Time, source string) (*Batch, error)
}

// Day truncates t to its calendar day in UTC.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
