package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Balance is a user's holding of one currency. Pending balances are
// credited but not yet settled.
type Balance struct {
	UserID   string
	Currency Currency
	Amount   decimal.Decimal
	Pending  bool
}

// InterestPayment is one interest payout to a user, in USDS.
type InterestPayment struct {
	UserID string
	Amount decimal.Decimal
	PaidAt time.Time
}
