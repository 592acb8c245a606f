package trade

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/martxel/setra/pkg/broker"
	"github.com/martxel/setra/pkg/setup"
	"github.com/shopspring/decimal"
)

// defaultStopRatio places the stop this fraction beyond the trigger when the
// setup carried no flip level.
const defaultStopRatio = 0.02

// nearTolerance is the relative band a price must enter to satisfy a "near"
// trigger.
const nearTolerance = 0.003

// Trade is one paper trade driven by a setup signal: wait for the trigger
// condition, enter in the signal's direction, ride the targets, exit at the
// last target or the stop.
type Trade struct {
	StartTime     time.Time
	Symbol        string
	Category      setup.Category
	Comparison    setup.Comparison
	Trigger       decimal.Decimal
	TriggerHigh   decimal.Decimal
	Long          bool
	Targets       []decimal.Decimal
	Stop          decimal.Decimal
	Quantity      decimal.Decimal
	EntryPrice    decimal.Decimal
	EntryTime     time.Time
	ExitPrice     decimal.Decimal
	EndTime       time.Time
	OrderID       string
	CurrentTarget int
}

// New builds a trade from a signal. The stop falls back to a fixed ratio
// beyond the trigger when no flip level is supplied.
func New(symbol string, sig *setup.Signal, stop, qty decimal.Decimal) *Trade {
	long := sig.Long()
	if stop.IsZero() {
		ratio := decimal.NewFromFloat(1 - defaultStopRatio)
		if !long {
			ratio = decimal.NewFromFloat(1 + defaultStopRatio)
		}
		stop = sig.Trigger.Mul(ratio)
	}
	return &Trade{
		StartTime:   time.Now().UTC(),
		Symbol:      symbol,
		Category:    sig.Category,
		Comparison:  sig.Comparison,
		Trigger:     sig.Trigger,
		TriggerHigh: sig.TriggerHigh,
		Long:        long,
		Targets:     sig.Targets,
		Stop:        stop,
		Quantity:    qty,
	}
}

// Triggered reports whether price satisfies the trade's entry condition.
func (t *Trade) Triggered(price decimal.Decimal) bool {
	switch t.Comparison {
	case setup.Above:
		return price.GreaterThanOrEqual(t.Trigger)
	case setup.Below:
		return price.LessThanOrEqual(t.Trigger)
	case setup.Near:
		band := t.Trigger.Mul(decimal.NewFromFloat(nearTolerance))
		return price.Sub(t.Trigger).Abs().LessThanOrEqual(band)
	case setup.Range:
		return price.GreaterThanOrEqual(t.Trigger) && price.LessThanOrEqual(t.TriggerHigh)
	}
	return false
}

// Entered reports whether the entry order has filled.
func (t *Trade) Entered() bool {
	return !t.EntryTime.IsZero()
}

// Finished reports whether the trade has been closed out.
func (t *Trade) Finished() bool {
	return !t.EndTime.IsZero()
}

// Watcher drives one trade end to end against the broker, persisting it via
// the injected update func after every transition.
type Watcher struct {
	*Trade
	lastPrice decimal.Decimal
	log       func(v ...interface{})
	broker    broker.Broker
	force     chan struct{}
	wait      time.Duration
	update    func(t *Trade) error
	onPrice   func(symbol string, price decimal.Decimal)
}

func NewWatcher(log func(v ...interface{}), b broker.Broker, t *Trade, wait time.Duration, update func(t *Trade) error) *Watcher {
	return &Watcher{
		Trade:  t,
		log:    log,
		broker: b,
		force:  make(chan struct{}),
		wait:   wait,
		update: update,
	}
}

// OnPrice registers an observer called with every price the watcher reads.
// Must be set before Run.
func (w *Watcher) OnPrice(fn func(symbol string, price decimal.Decimal)) {
	w.onPrice = fn
}

// Run polls the symbol's price until the trade finishes. Before entry a
// forced close just abandons the watch; after entry it exits at market.
func (w *Watcher) Run(ctx context.Context) error {
	tick, update := ticker(w.wait)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick:
		case <-w.force:
			if !w.Entered() {
				return nil
			}
			return w.exit(ctx)
		}
		tick = update

		price, err := w.broker.Price(ctx, w.Symbol)
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			continue
		}
		if err != nil {
			w.log(fmt.Sprintf("%v (%T)", err, err))
			continue
		}
		w.lastPrice = price
		if w.onPrice != nil {
			w.onPrice(w.Symbol, price)
		}

		if !w.Entered() {
			if !w.Triggered(price) {
				continue
			}
			if err := w.enter(ctx); err != nil {
				return err
			}
			continue
		}

		if w.stopHit(price) {
			return w.exit(ctx)
		}

		// Walk targets in order, exit after the last one.
		for w.CurrentTarget < len(w.Targets) && w.targetHit(price, w.Targets[w.CurrentTarget]) {
			w.CurrentTarget++
			w.log(fmt.Sprintf("✔️ %s reached target %d", w.Symbol, w.CurrentTarget))
			if err := w.update(w.Trade); err != nil {
				w.log(fmt.Sprintf("trade: couldn't update %s: %v", w.Symbol, err))
			}
		}
		if len(w.Targets) > 0 && w.CurrentTarget >= len(w.Targets) {
			return w.exit(ctx)
		}
	}
}

// Status returns profit, profit ratio and elapsed time for a running trade.
func (w *Watcher) Status() (decimal.Decimal, decimal.Decimal, time.Duration) {
	elapsed := time.Since(w.StartTime)
	if !w.Entered() || w.EntryPrice.IsZero() {
		return decimal.Decimal{}, decimal.Decimal{}, elapsed
	}
	diff := w.lastPrice.Sub(w.EntryPrice)
	if !w.Long {
		diff = diff.Neg()
	}
	profit := diff.Mul(w.Quantity)
	perc := diff.Div(w.EntryPrice)
	return profit, perc, elapsed
}

// Close forces the watcher to exit its position, or to stop waiting for the
// trigger if it never entered.
func (w *Watcher) Close() {
	close(w.force)
}

func (w *Watcher) stopHit(price decimal.Decimal) bool {
	if w.Long {
		return price.LessThanOrEqual(w.Stop)
	}
	return price.GreaterThanOrEqual(w.Stop)
}

func (w *Watcher) targetHit(price, target decimal.Decimal) bool {
	if w.Long {
		return price.GreaterThanOrEqual(target)
	}
	return price.LessThanOrEqual(target)
}

func (w *Watcher) enter(ctx context.Context) error {
	order := w.broker.Buy
	if !w.Long {
		order = w.broker.Sell
	}
	var id string
	if err := w.retry(ctx, "enter", func() error {
		var err error
		id, err = order(ctx, w.Symbol, w.Quantity)
		return err
	}); err != nil {
		return err
	}
	w.OrderID = id
	avg, err := w.awaitFill(ctx, id)
	if err != nil {
		return err
	}
	w.EntryPrice = avg
	w.EntryTime = time.Now().UTC()
	w.log(fmt.Sprintf("⚙️ entered %s %s @ %s", side(w.Long), w.Symbol, avg))
	if err := w.update(w.Trade); err != nil {
		w.log(fmt.Sprintf("trade: couldn't update %s: %v", w.Symbol, err))
	}
	return nil
}

func (w *Watcher) exit(ctx context.Context) error {
	order := w.broker.Sell
	if !w.Long {
		order = w.broker.Buy
	}
	var id string
	if err := w.retry(ctx, "exit", func() error {
		var err error
		id, err = order(ctx, w.Symbol, w.Quantity)
		return err
	}); err != nil {
		return err
	}
	avg, err := w.awaitFill(ctx, id)
	if err != nil {
		return err
	}
	w.ExitPrice = avg
	w.lastPrice = avg
	w.EndTime = time.Now().UTC()
	if err := w.update(w.Trade); err != nil {
		w.log(fmt.Sprintf("trade: couldn't update %s: %v", w.Symbol, err))
	}
	return nil
}

var errNotFilled = errors.New("trade: order not filled yet")

func (w *Watcher) awaitFill(ctx context.Context, id string) (decimal.Decimal, error) {
	var avg decimal.Decimal
	if err := w.retry(ctx, "await fill", func() error {
		filled, price, err := w.broker.OrderStatus(ctx, id)
		if err != nil {
			return err
		}
		if !filled {
			return errNotFilled
		}
		avg = price
		return nil
	}); err != nil {
		return decimal.Decimal{}, err
	}
	return avg, nil
}

// retry runs fn until it succeeds, retrying transient network errors and
// unfilled orders forever, other errors up to a cap, pacing attempts with
// the watch interval.
func (w *Watcher) retry(ctx context.Context, desc string, fn func() error) error {
	var nerr int
	tick, update := ticker(w.wait)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick:
			tick = update
		}
		err := fn()
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			continue
		}
		if errors.Is(err, errNotFilled) {
			continue
		}
		if errors.Is(err, broker.ErrOrderCanceled) {
			return err
		}
		if err != nil {
			err := fmt.Errorf("trade: couldn't %s for %s: %w", desc, w.Symbol, err)
			nerr++
			if nerr > 100 {
				return err
			}
			w.log(err, "retrying...")
			continue
		}
		return nil
	}
}

func side(long bool) string {
	if long {
		return "long"
	}
	return "short"
}

func ticker(wait time.Duration) (<-chan time.Time, <-chan time.Time) {
	// Don't wait ticker time on first run
	closedTick := make(chan time.Time)
	close(closedTick)
	tick := (<-chan time.Time)(closedTick)
	ticker := time.NewTicker(wait)
	return tick, ticker.C
}
