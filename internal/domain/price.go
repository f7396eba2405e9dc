package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PairBTCUSD is the pair used to size spot legs.
const PairBTCUSD = "BTC-USD"

// PricePoint is one row of the price history.
type PricePoint struct {
	CurrencyPair string // "BTC-USD"
	Rate         decimal.Decimal
	Market       string // market the price was read from, e.g. "BTC-PERP"
	Source       string // "FTX"
	Timestamp    time.Time
}

// PairForMarket maps a target market such as "BTC-PERP" to the pair its
// price is stored under ("BTC-USD").
func PairForMarket(market string) string {
	base, _, _ := strings.Cut(strings.TrimSpace(market), "-")
	return base + "-USD"
}
