// Package json parses setup batches from structured JSON, used to inject
// setups manually or from automated upstreams that already emit structure.
package json

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/martxel/setra/pkg/setup"
	"github.com/shopspring/decimal"
)

type Parser struct{}

type jsonBatch struct {
	Date    string       `json:"date"`
	Tickers []jsonTicker `json:"tickers"`
}

type jsonTicker struct {
	Symbol  string       `json:"symbol"`
	Signals []jsonSignal `json:"signals"`
	Bias    *jsonBias    `json:"bias"`
}

type jsonSignal struct {
	Category       string   `json:"category"`
	Comparison     string   `json:"comparison"`
	Aggressiveness string   `json:"aggressiveness"`
	Trigger        string   `json:"trigger"`
	TriggerHigh    string   `json:"trigger_high"`
	Targets        []string `json:"targets"`
}

type jsonBias struct {
	Direction string `json:"direction"`
	Condition string `json:"condition"`
	Price     string `json:"price"`
	FlipTo    string `json:"flip_to"`
	FlipPrice string `json:"flip_price"`
}

// Parse decodes a JSON batch. Unlike the alerts parser this one fails on
// malformed input, since structured upstreams should never send garbage.
func (p Parser) Parse(text string, receivedAt time.Time, source string) (*setup.Batch, error) {
	var jb jsonBatch
	if err := json.Unmarshal([]byte(text), &jb); err != nil {
		return nil, fmt.Errorf("json: couldn't parse batch: %w", err)
	}
	date := setup.Day(receivedAt)
	if jb.Date != "" {
		d, err := time.Parse("2006-01-02", jb.Date)
		if err != nil {
			return nil, fmt.Errorf("json: couldn't parse date (%s): %w", jb.Date, err)
		}
		date = d
	}
	batch := &setup.Batch{
		Date:   date,
		Raw:    text,
		Source: source,
	}
	for _, jt := range jb.Tickers {
		ts := &setup.TickerSetup{Symbol: jt.Symbol}
		for i, js := range jt.Signals {
			s := &setup.Signal{
				Category:       setup.Category(js.Category),
				Comparison:     setup.Comparison(js.Comparison),
				Aggressiveness: setup.Aggressiveness(js.Aggressiveness),
			}
			if s.Aggressiveness == "" {
				s.Aggressiveness = setup.None
			}
			var err error
			s.Trigger, err = decimal.NewFromString(js.Trigger)
			if err != nil {
				return nil, fmt.Errorf("json: couldn't parse trigger %d for %s (%s): %w", i+1, jt.Symbol, js.Trigger, err)
			}
			if js.TriggerHigh != "" {
				s.TriggerHigh, err = decimal.NewFromString(js.TriggerHigh)
				if err != nil {
					return nil, fmt.Errorf("json: couldn't parse trigger high %d for %s (%s): %w", i+1, jt.Symbol, js.TriggerHigh, err)
				}
			}
			for _, target := range js.Targets {
				t, err := decimal.NewFromString(target)
				if err != nil {
					return nil, fmt.Errorf("json: couldn't parse target for %s (%s): %w", jt.Symbol, target, err)
				}
				s.Targets = append(s.Targets, t)
			}
			ts.Signals = append(ts.Signals, s)
		}
		if jt.Bias != nil {
			price, err := decimal.NewFromString(jt.Bias.Price)
			if err != nil {
				return nil, fmt.Errorf("json: couldn't parse bias price for %s (%s): %w", jt.Symbol, jt.Bias.Price, err)
			}
			b := &setup.Bias{
				Direction: setup.Direction(jt.Bias.Direction),
				Condition: setup.Comparison(jt.Bias.Condition),
				Price:     price,
			}
			if jt.Bias.FlipPrice != "" {
				fp, err := decimal.NewFromString(jt.Bias.FlipPrice)
				if err != nil {
					return nil, fmt.Errorf("json: couldn't parse flip price for %s (%s): %w", jt.Symbol, jt.Bias.FlipPrice, err)
				}
				b.Flip = &setup.Flip{
					Direction: setup.Direction(jt.Bias.FlipTo),
					Price:     fp,
				}
			}
			ts.Bias = b
		}
		batch.Tickers = append(batch.Tickers, ts)
	}
	return batch, nil
}
