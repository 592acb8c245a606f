package inmem

import (
	"testing"
	"time"

	"github.com/martxel/setra/pkg/setup"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveDeduplicatesTriggers(t *testing.T) {
	s := New()
	day := time.Date(2025, time.May, 14, 0, 0, 0, 0, time.UTC)
	ts := tickerSetup("SPY", "590", "585")

	stored, err := s.Save(day, "alerts", ts)
	require.NoError(t, err)
	assert.NotEmpty(t, stored.ID)
	assert.Len(t, stored.Setup.Signals, 2)

	_, err = s.Save(day, "alerts", tickerSetup("SPY", "590", "585"))
	assert.ErrorIs(t, err, setup.ErrDuplicate)

	// A repeat alert carrying one fresh trigger keeps only the new one.
	partial, err := s.Save(day, "alerts", tickerSetup("SPY", "590", "600"))
	require.NoError(t, err)
	require.Len(t, partial.Setup.Signals, 1)
	assert.True(t, partial.Setup.Signals[0].Trigger.Equal(dec("600")))

	// Same trigger on another day is fine.
	_, err = s.Save(day.AddDate(0, 0, 1), "alerts", tickerSetup("SPY", "590", "585"))
	require.NoError(t, err)
}

func TestSaveCommentaryOnlyOncePerDay(t *testing.T) {
	s := New()
	day := time.Date(2025, time.May, 14, 0, 0, 0, 0, time.UTC)
	ts := &setup.TickerSetup{Symbol: "AAPL", Raw: "AAPL earnings tonight"}

	_, err := s.Save(day, "alerts", ts)
	require.NoError(t, err)
	_, err = s.Save(day, "alerts", ts)
	assert.ErrorIs(t, err, setup.ErrDuplicate)
}

func TestListAndBySymbol(t *testing.T) {
	s := New()
	day := time.Date(2025, time.May, 14, 0, 0, 0, 0, time.UTC)
	_, err := s.Save(day, "alerts", tickerSetup("SPY", "590"))
	require.NoError(t, err)
	_, err = s.Save(day, "alerts", tickerSetup("NVDA", "925"))
	require.NoError(t, err)
	_, err = s.Save(day.AddDate(0, 0, 1), "alerts", tickerSetup("SPY", "591"))
	require.NoError(t, err)

	all, err := s.List(day)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	spy, err := s.BySymbol(day, "SPY")
	require.NoError(t, err)
	require.Len(t, spy, 1)
	assert.Equal(t, "SPY", spy[0].Setup.Symbol)
}

func tickerSetup(symbol string, triggers ...string) *setup.TickerSetup {
	ts := &setup.TickerSetup{Symbol: symbol}
	for _, trigger := range triggers {
		ts.Signals = append(ts.Signals, &setup.Signal{
			Category:       setup.Breakout,
			Aggressiveness: setup.None,
			Comparison:     setup.Above,
			Trigger:        dec(trigger),
		})
	}
	return ts
}

func dec(value string) decimal.Decimal {
	d, err := decimal.NewFromString(value)
	if err != nil {
		panic(err)
	}
	return d
}
