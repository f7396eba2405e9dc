package router

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"convert_go/internal/domain"
)

// PriceOracle reads the last recorded price of a pair from the price history.
type PriceOracle struct {
	store domain.PriceStore
}

func NewPriceOracle(store domain.PriceStore) *PriceOracle {
	return &PriceOracle{store: store}
}

// LastPrice returns the newest recorded price, or zero when the pair has
// no history. Zero means "no data" and must not be used as a price.
func (o *PriceOracle) LastPrice(ctx context.Context, pair string) (decimal.Decimal, error) {
	price, ok, err := o.store.LatestPrice(ctx, pair)
	if err != nil {
		return decimal.Zero, fmt.Errorf("read last %s price: %w", pair, err)
	}
	if !ok {
		return decimal.Zero, nil
	}
	return price, nil
}
