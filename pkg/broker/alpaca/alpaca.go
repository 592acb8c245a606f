// Package alpaca implements the broker interface on top of the Alpaca
// trading and market-data APIs. All calls go through a circuit breaker so a
// flapping API doesn't hammer retries through every watcher at once.
package alpaca

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/martxel/setra/pkg/broker"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
)

const paperURL = "https://paper-api.alpaca.markets"

var zero = decimal.Decimal{}

type alpacaBroker struct {
	client *alpaca.Client
	md     *marketdata.Client
	cb     *gobreaker.CircuitBreaker
	log    func(v ...interface{})
	debug  bool
}

// New creates a broker against the Alpaca paper endpoint. Live trading is a
// different base URL and deliberately not exposed here.
func New(log func(v ...interface{}), apiKey, apiSecret string, debug bool) broker.Broker {
	client := alpaca.NewClient(alpaca.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
		BaseURL:   paperURL,
	})
	md := marketdata.NewClient(marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	})
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: "alpaca",
	})
	return &alpacaBroker{
		client: client,
		md:     md,
		cb:     cb,
		log:    log,
		debug:  debug,
	}
}

func (b *alpacaBroker) Buy(ctx context.Context, symbol string, qty decimal.Decimal) (string, error) {
	return b.order(ctx, symbol, qty, alpaca.Buy)
}

func (b *alpacaBroker) Sell(ctx context.Context, symbol string, qty decimal.Decimal) (string, error) {
	return b.order(ctx, symbol, qty, alpaca.Sell)
}

func (b *alpacaBroker) order(ctx context.Context, symbol string, qty decimal.Decimal, side alpaca.Side) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	qty = qty.Round(0)
	res, err := b.cb.Execute(func() (interface{}, error) {
		return b.client.PlaceOrder(alpaca.PlaceOrderRequest{
			Symbol:      symbol,
			Qty:         &qty,
			Side:        side,
			Type:        alpaca.Market,
			TimeInForce: alpaca.Day,
		})
	})
	if err != nil {
		return "", fmt.Errorf("alpaca: couldn't place %s order for %s: %w", side, symbol, err)
	}
	order := res.(*alpaca.Order)
	if b.debug {
		js, _ := json.Marshal(order)
		b.log("order:", string(js))
	}
	return order.ID, nil
}

func (b *alpacaBroker) OrderStatus(ctx context.Context, orderID string) (bool, decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return false, zero, err
	}
	res, err := b.cb.Execute(func() (interface{}, error) {
		return b.client.GetOrder(orderID)
	})
	if err != nil {
		return false, zero, fmt.Errorf("alpaca: couldn't get order %s: %w", orderID, err)
	}
	order := res.(*alpaca.Order)
	switch order.Status {
	case "filled":
		avg := zero
		if order.FilledAvgPrice != nil {
			avg = *order.FilledAvgPrice
		}
		return true, avg, nil
	case "canceled", "expired", "rejected":
		return false, zero, broker.ErrOrderCanceled
	}
	return false, zero, nil
}

func (b *alpacaBroker) CancelOrder(ctx context.Context, orderID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.client.CancelOrder(orderID)
	}); err != nil {
		return fmt.Errorf("alpaca: couldn't cancel order %s: %w", orderID, err)
	}
	return nil
}

func (b *alpacaBroker) Price(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	res, err := b.cb.Execute(func() (interface{}, error) {
		return b.md.GetLatestTrade(symbol, marketdata.GetLatestTradeRequest{})
	})
	if err != nil {
		return zero, fmt.Errorf("alpaca: couldn't get price for %s: %w", symbol, err)
	}
	trade := res.(*marketdata.Trade)
	return decimal.NewFromFloat(trade.Price), nil
}

func (b *alpacaBroker) Cash(ctx context.Context) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	res, err := b.cb.Execute(func() (interface{}, error) {
		return b.client.GetAccount()
	})
	if err != nil {
		return zero, fmt.Errorf("alpaca: couldn't get account: %w", err)
	}
	return res.(*alpaca.Account).Cash, nil
}
