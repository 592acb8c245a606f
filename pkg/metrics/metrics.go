// Package metrics exposes Prometheus counters for the parse/store/trade
// pipeline. The dashboard serves them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

type Recorder struct {
	messages   *prometheus.CounterVec
	batches    *prometheus.CounterVec
	stored     *prometheus.CounterVec
	duplicates *prometheus.CounterVec
	opened     *prometheus.CounterVec
	closed     *prometheus.CounterVec
	lastPrice  *prometheus.GaugeVec
}

func New() *Recorder {
	return &Recorder{
		messages: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "setra_messages_total",
				Help: "Total number of raw messages received",
			},
			[]string{"source"},
		),
		batches: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "setra_batches_parsed_total",
				Help: "Total number of parsed setup batches",
			},
			[]string{"source"},
		),
		stored: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "setra_setups_stored_total",
				Help: "Total number of ticker setups stored",
			},
			[]string{"symbol"},
		),
		duplicates: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "setra_duplicate_setups_total",
				Help: "Total number of setups rejected as duplicates",
			},
			[]string{"symbol"},
		),
		opened: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "setra_trades_opened_total",
				Help: "Total number of trades opened",
			},
			[]string{"symbol"},
		),
		closed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "setra_trades_closed_total",
				Help: "Total number of trades closed",
			},
			[]string{"symbol"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "setra_last_price",
				Help: "Last observed price per symbol",
			},
			[]string{"symbol"},
		),
	}
}

func (r *Recorder) Message(source string) { r.messages.WithLabelValues(source).Inc() }

func (r *Recorder) Batch(source string) { r.batches.WithLabelValues(source).Inc() }

func (r *Recorder) Stored(symbol string) { r.stored.WithLabelValues(symbol).Inc() }

func (r *Recorder) Duplicate(symbol string) { r.duplicates.WithLabelValues(symbol).Inc() }

func (r *Recorder) TradeOpened(symbol string) { r.opened.WithLabelValues(symbol).Inc() }

func (r *Recorder) TradeClosed(symbol string) { r.closed.WithLabelValues(symbol).Inc() }

// Price records the last observed price for a symbol. The signature matches
// the trade watcher's price observer.
func (r *Recorder) Price(symbol string, p decimal.Decimal) {
	r.lastPrice.WithLabelValues(symbol).Set(p.InexactFloat64())
}
