package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Provider identifies which kind of venue filled a leg.
type Provider string

const (
	ProviderFutures Provider = "futures"
	ProviderSpot    Provider = "spot"
)

// Side is the direction of an order.
type Side int

const (
	SideBuy Side = iota + 1
	SideSell
)

// ParseSide accepts any capitalization of "buy" or "sell".
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy":
		return SideBuy, nil
	case "sell":
		return SideSell, nil
	default:
		return 0, fmt.Errorf("unknown order side %q", s)
	}
}

// Title returns "Buy" or "Sell", the futures venue spelling.
func (s Side) Title() string {
	switch s {
	case SideBuy:
		return "Buy"
	case SideSell:
		return "Sell"
	default:
		return ""
	}
}

// String returns "buy" or "sell", the spot venue spelling.
func (s Side) String() string {
	return strings.ToLower(s.Title())
}

// OrderType is the execution style of a futures order.
type OrderType int

const (
	OrderTypeMarket OrderType = iota + 1
	OrderTypeLimit
)

// Title returns "Market" or "Limit".
func (t OrderType) Title() string {
	switch t {
	case OrderTypeMarket:
		return "Market"
	case OrderTypeLimit:
		return "Limit"
	default:
		return ""
	}
}

func (t OrderType) String() string {
	return strings.ToLower(t.Title())
}

// TimeInForce uses the futures venue's wire values.
type TimeInForce string

const (
	GoodTillCancel    TimeInForce = "GoodTillCancel"
	ImmediateOrCancel TimeInForce = "ImmediateOrCancel"
	FillOrKill        TimeInForce = "FillOrKill"
	PostOnly          TimeInForce = "PostOnly"
)

// OrderLeg is one exchange order placed while fulfilling a conversion.
// It is produced by a gateway and never modified afterwards.
type OrderLeg struct {
	Provider  Provider
	Venue     string // "bybit", "ftx", "paper"
	Symbol    string // futures symbol or spot market
	Side      Side
	Size      decimal.Decimal
	OrderID   string
	CreatedAt time.Time
}
