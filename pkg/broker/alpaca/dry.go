package alpaca

import (
	"context"
	"fmt"
	"strings"

	"github.com/martxel/setra/pkg/broker"
	"github.com/shopspring/decimal"
)

type alpacaBrokerDry struct {
	broker.Broker
}

// NewDry returns a broker that reads real quotes but only pretends to place
// orders, filling them instantly at the current price.
func NewDry(log func(v ...interface{}), apiKey, apiSecret string, debug bool) broker.Broker {
	return &alpacaBrokerDry{
		Broker: New(log, apiKey, apiSecret, debug),
	}
}

func (b *alpacaBrokerDry) Buy(ctx context.Context, symbol string, qty decimal.Decimal) (string, error) {
	return fmt.Sprintf("dry_buy_%s_%s", symbol, qty), nil
}

func (b *alpacaBrokerDry) Sell(ctx context.Context, symbol string, qty decimal.Decimal) (string, error) {
	return fmt.Sprintf("dry_sell_%s_%s", symbol, qty), nil
}

func (b *alpacaBrokerDry) OrderStatus(ctx context.Context, orderID string) (bool, decimal.Decimal, error) {
	split := strings.Split(orderID, "_")
	if len(split) != 4 || split[0] != "dry" {
		return false, zero, fmt.Errorf("alpaca: invalid dry order id: %s", orderID)
	}
	price, err := b.Price(ctx, split[2])
	if err != nil {
		return false, zero, err
	}
	return true, price, nil
}

func (b *alpacaBrokerDry) CancelOrder(ctx context.Context, orderID string) error {
	return nil
}

func (b *alpacaBrokerDry) Cash(ctx context.Context) (decimal.Decimal, error) {
	return decimal.NewFromFloat(100000.0), nil
}
