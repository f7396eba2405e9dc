package router

import (
	"fmt"

	"github.com/shopspring/decimal"

	"convert_go/internal/domain"
)

const (
	spotMarketUSD  = "BTC/USD"
	spotMarketUSDT = "BTC/USDT"
)

// FuturesLeg is the computed order for the mandatory futures leg.
type FuturesLeg struct {
	Base domain.Currency
	Side domain.Side
	Qty  int64 // contracts, USD denominated
}

// PlanFuturesLeg decides the futures order for req. Deposits into USDS sell
// the source currency's contract sized at amount×rate; everything else buys
// the target currency's contract sized at amount. Stablecoins trade as BTC.
// A size that does not fit in an int64 contract count is rejected.
func PlanFuturesLeg(req domain.ConversionRequest) (FuturesLeg, error) {
	leg := FuturesLeg{
		Base: contractBase(req.ToCurrency),
		Side: domain.SideBuy,
	}
	size := req.Amount
	if req.ToSettlement() {
		leg.Base = contractBase(req.FromCurrency)
		leg.Side = domain.SideSell
		size = req.Amount.Mul(req.QuotedRate)
	}

	floored := size.Floor()
	leg.Qty = floored.IntPart()
	if !decimal.NewFromInt(leg.Qty).Equal(floored) {
		return FuturesLeg{}, &domain.OrderRejected{
			Provider: domain.ProviderFutures,
			Message:  fmt.Sprintf("order size %s exceeds the contract limit", floored),
		}
	}
	return leg, nil
}

func contractBase(c domain.Currency) domain.Currency {
	if domain.IsStableCoin(c) {
		return domain.BTC
	}
	return c
}

// SpotLeg is the computed order for the stablecoin spot leg. Side and size
// are expressed in BTC.
type SpotLeg struct {
	Market string
	Side   domain.Side
	Size   decimal.Decimal
}

// PlanSpotLeg decides the spot order for req given the last BTC-USD price.
// USDC has no BTC market on the spot venue, so any USDC conversion trades
// BTC/USD; other stablecoins trade BTC/USDT.
func PlanSpotLeg(req domain.ConversionRequest, lastPrice decimal.Decimal) (SpotLeg, error) {
	if !lastPrice.IsPositive() {
		return SpotLeg{}, &domain.OracleUnavailable{
			Pair: domain.PairBTCUSD,
			Err:  fmt.Errorf("last recorded price is %s", lastPrice),
		}
	}

	side := domain.SideBuy
	if domain.IsStableCoin(req.ToCurrency) {
		side = domain.SideSell
	}

	market := spotMarketUSDT
	if req.FromCurrency == domain.USDC || req.ToCurrency == domain.USDC {
		market = spotMarketUSD
	}

	return SpotLeg{
		Market: market,
		Side:   side,
		Size:   req.Amount.Div(lastPrice),
	}, nil
}
