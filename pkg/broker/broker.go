package broker

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// Broker is the brokerage surface the trade watcher needs: market entries and
// exits, order polling and quotes. Implementations resolve prices in account
// currency as decimals.
type Broker interface {
	Buy(ctx context.Context, symbol string, qty decimal.Decimal) (orderID string, err error)
	Sell(ctx context.Context, symbol string, qty decimal.Decimal) (orderID string, err error)
	OrderStatus(ctx context.Context, orderID string) (filled bool, avgPrice decimal.Decimal, err error)
	CancelOrder(ctx context.Context, orderID string) error
	Price(ctx context.Context, symbol string) (decimal.Decimal, error)
	Cash(ctx context.Context) (decimal.Decimal, error)
}

var ErrOrderCanceled = errors.New("broker: order canceled")
