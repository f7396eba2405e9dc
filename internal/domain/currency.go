package domain

import (
	"slices"
	"strings"
)

// Currency is an upper-case currency code (e.g. "BTC", "USDC").
type Currency string

const (
	BTC  Currency = "BTC"
	ETH  Currency = "ETH"
	USD  Currency = "USD"
	USDC Currency = "USDC"
	USDT Currency = "USDT"

	// USDS is the platform's settlement token. Converting into it deposits
	// into the internal balance, converting out of it withdraws.
	USDS Currency = "USDS"
)

// StableCoins are the currencies routed as USD equivalents.
var StableCoins = []Currency{USDC, USDT}

// IsStableCoin reports whether c is one of StableCoins.
func IsStableCoin(c Currency) bool {
	return slices.Contains(StableCoins, c)
}

// ParseCurrency trims and upper-cases a user supplied code.
func ParseCurrency(s string) Currency {
	return Currency(strings.ToUpper(strings.TrimSpace(s)))
}

func (c Currency) String() string {
	return string(c)
}
