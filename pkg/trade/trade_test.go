package trade

import (
	"context"
	"fmt"
	"log"
	"testing"
	"time"

	"github.com/martxel/setra/pkg/setup"
	"github.com/shopspring/decimal"
)

func TestLongTradeWalksTargets(t *testing.T) {
	sig := &setup.Signal{
		Category:   setup.Breakout,
		Comparison: setup.Above,
		Trigger:    dec("100"),
		Targets:    []decimal.Decimal{dec("101"), dec("102"), dec("103")},
	}
	tr := New("SPY", sig, dec("95"), dec("10"))
	if !tr.Long {
		t.Fatal("breakout should trade long")
	}

	b := &mockBroker{prices: prices("99", "100", "101", "102", "103")}
	var updates int
	w := NewWatcher(log.Println, b, tr, 10*time.Millisecond, func(t *Trade) error {
		updates++
		return nil
	})
	if err := w.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !tr.Finished() {
		t.Fatal("trade should have finished")
	}
	if !tr.EntryPrice.Equal(dec("100")) {
		t.Errorf("wrong entry price: want 100, got %s", tr.EntryPrice)
	}
	if !tr.ExitPrice.Equal(dec("103")) {
		t.Errorf("wrong exit price: want 103, got %s", tr.ExitPrice)
	}
	if tr.CurrentTarget != 3 {
		t.Errorf("wrong current target: want 3, got %d", tr.CurrentTarget)
	}
	profit, _, _ := w.Status()
	if want := dec("30"); !profit.Equal(want) {
		t.Errorf("wrong profit: want %s, got %s", want, profit)
	}
	if b.buys != 1 || b.sells != 1 {
		t.Errorf("wrong order counts: buys %d, sells %d", b.buys, b.sells)
	}
	if updates == 0 {
		t.Error("trade was never persisted")
	}
}

func TestShortTradeWalksTargets(t *testing.T) {
	sig := &setup.Signal{
		Category:   setup.Breakdown,
		Comparison: setup.Below,
		Trigger:    dec("100"),
		Targets:    []decimal.Decimal{dec("98"), dec("96")},
	}
	tr := New("NVDA", sig, decimal.Decimal{}, dec("10"))
	if tr.Long {
		t.Fatal("breakdown should trade short")
	}
	if want := dec("102"); !tr.Stop.Equal(want) {
		t.Fatalf("wrong default stop: want %s, got %s", want, tr.Stop)
	}

	b := &mockBroker{prices: prices("101", "100", "99", "98", "97", "96")}
	w := NewWatcher(log.Println, b, tr, 10*time.Millisecond, func(t *Trade) error { return nil })
	if err := w.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !tr.ExitPrice.Equal(dec("96")) {
		t.Errorf("wrong exit price: want 96, got %s", tr.ExitPrice)
	}
	profit, _, _ := w.Status()
	if want := dec("40"); !profit.Equal(want) {
		t.Errorf("wrong profit: want %s, got %s", want, profit)
	}
	// Short trades enter with a sell and exit with a buy.
	if b.sells != 1 || b.buys != 1 {
		t.Errorf("wrong order counts: buys %d, sells %d", b.buys, b.sells)
	}
}

func TestStopClosesTrade(t *testing.T) {
	sig := &setup.Signal{
		Category:   setup.Breakout,
		Comparison: setup.Above,
		Trigger:    dec("100"),
		Targets:    []decimal.Decimal{dec("110")},
	}
	tr := New("SPY", sig, dec("95"), dec("10"))

	b := &mockBroker{prices: prices("100", "98", "96", "94")}
	w := NewWatcher(log.Println, b, tr, 10*time.Millisecond, func(t *Trade) error { return nil })
	if err := w.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !tr.Finished() {
		t.Fatal("trade should have finished")
	}
	if !tr.ExitPrice.Equal(dec("94")) {
		t.Errorf("wrong exit price: want 94, got %s", tr.ExitPrice)
	}
	profit, _, _ := w.Status()
	if want := dec("-60"); !profit.Equal(want) {
		t.Errorf("wrong profit: want %s, got %s", want, profit)
	}
}

func TestCloseBeforeEntryAbandonsWatch(t *testing.T) {
	sig := &setup.Signal{
		Category:   setup.Breakout,
		Comparison: setup.Above,
		Trigger:    dec("100"),
	}
	tr := New("SPY", sig, decimal.Decimal{}, dec("10"))

	b := &mockBroker{prices: prices("99")}
	w := NewWatcher(log.Println, b, tr, 10*time.Millisecond, func(t *Trade) error { return nil })
	done := make(chan error, 1)
	go func() {
		done <- w.Run(context.Background())
	}()
	time.Sleep(50 * time.Millisecond)
	w.Close()
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if tr.Entered() {
		t.Error("trade should never have entered")
	}
	if b.buys != 0 || b.sells != 0 {
		t.Errorf("no orders expected: buys %d, sells %d", b.buys, b.sells)
	}
}

func TestPriceObserverSeesEveryRead(t *testing.T) {
	sig := &setup.Signal{
		Category:   setup.Breakout,
		Comparison: setup.Above,
		Trigger:    dec("100"),
		Targets:    []decimal.Decimal{dec("103")},
	}
	tr := New("SPY", sig, dec("95"), dec("10"))

	b := &mockBroker{prices: prices("99", "100", "103")}
	var observed []decimal.Decimal
	w := NewWatcher(log.Println, b, tr, 10*time.Millisecond, func(t *Trade) error { return nil })
	w.OnPrice(func(symbol string, price decimal.Decimal) {
		if symbol != "SPY" {
			t.Errorf("wrong symbol: %s", symbol)
		}
		observed = append(observed, price)
	})
	if err := w.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(observed) != 3 {
		t.Fatalf("want 3 observed prices, got %d", len(observed))
	}
	if !observed[len(observed)-1].Equal(dec("103")) {
		t.Errorf("wrong last observed price: %s", observed[len(observed)-1])
	}
}

func TestNearTrigger(t *testing.T) {
	sig := &setup.Signal{
		Category:   setup.Rejection,
		Comparison: setup.Near,
		Trigger:    dec("588.8"),
	}
	tr := New("SPY", sig, decimal.Decimal{}, dec("1"))
	if tr.Triggered(dec("600")) {
		t.Error("600 is not near 588.8")
	}
	if !tr.Triggered(dec("588")) {
		t.Error("588 is within the near band of 588.8")
	}
}

func TestRangeTrigger(t *testing.T) {
	sig := &setup.Signal{
		Category:    setup.Bounce,
		Comparison:  setup.Range,
		Trigger:     dec("238.5"),
		TriggerHigh: dec("241"),
	}
	tr := New("TSLA", sig, decimal.Decimal{}, dec("1"))
	if tr.Triggered(dec("238")) || tr.Triggered(dec("242")) {
		t.Error("prices outside the band must not trigger")
	}
	if !tr.Triggered(dec("239.5")) {
		t.Error("price inside the band must trigger")
	}
}

type mockBroker struct {
	prices []decimal.Decimal
	i      int
	price  decimal.Decimal
	buys   int
	sells  int
}

func (m *mockBroker) Price(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if m.i < len(m.prices) {
		m.price = m.prices[m.i]
		m.i++
	}
	return m.price, nil
}

func (m *mockBroker) Buy(ctx context.Context, symbol string, qty decimal.Decimal) (string, error) {
	m.buys++
	return fmt.Sprintf("buy%d", m.buys), nil
}

func (m *mockBroker) Sell(ctx context.Context, symbol string, qty decimal.Decimal) (string, error) {
	m.sells++
	return fmt.Sprintf("sell%d", m.sells), nil
}

func (m *mockBroker) OrderStatus(ctx context.Context, orderID string) (bool, decimal.Decimal, error) {
	return true, m.price, nil
}

func (m *mockBroker) CancelOrder(ctx context.Context, orderID string) error {
	return nil
}

func (m *mockBroker) Cash(ctx context.Context) (decimal.Decimal, error) {
	return decimal.NewFromFloat(100000.0), nil
}

func prices(values ...string) []decimal.Decimal {
	out := make([]decimal.Decimal, len(values))
	for i, v := range values {
		out[i] = dec(v)
	}
	return out
}

func dec(value string) decimal.Decimal {
	d, err := decimal.NewFromString(value)
	if err != nil {
		panic(err)
	}
	return d
}
