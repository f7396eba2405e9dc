package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ConversionRequest is a user's request to convert Amount of FromCurrency
// into ToCurrency at QuotedRate. It is built once per trigger.
type ConversionRequest struct {
	ID           string // history record the outcome is written to
	FromCurrency Currency
	ToCurrency   Currency
	Amount       decimal.Decimal
	QuotedRate   decimal.Decimal
}

// Validate checks the request contract. QuotedRate is only used when
// converting into the settlement currency, so it is only required then.
func (r ConversionRequest) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("%w: missing conversion id", ErrInvalidRequest)
	}
	if r.FromCurrency == "" || r.ToCurrency == "" {
		return fmt.Errorf("%w: missing currency", ErrInvalidRequest)
	}
	if !r.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive, got %s", ErrInvalidRequest, r.Amount)
	}
	if r.ToSettlement() && !r.QuotedRate.IsPositive() {
		return fmt.Errorf("%w: rate must be positive, got %s", ErrInvalidRequest, r.QuotedRate)
	}
	return nil
}

// ToSettlement reports whether the conversion deposits into USDS.
func (r ConversionRequest) ToSettlement() bool {
	return r.ToCurrency == USDS
}

// InvolvesStableCoin reports whether either side is a stablecoin.
func (r ConversionRequest) InvolvesStableCoin() bool {
	return IsStableCoin(r.FromCurrency) || IsStableCoin(r.ToCurrency)
}

// ConversionStatus is the status stored on a conversion history record.
type ConversionStatus string

const (
	StatusPending ConversionStatus = "pending"
	StatusRouting ConversionStatus = "routing"
	StatusDone    ConversionStatus = "done"
	StatusSent    ConversionStatus = "sent"
	StatusError   ConversionStatus = "error"
)

// ConversionOutcome is the result of routing one request. Legs holds every
// leg the exchanges accepted, in submission order, even when Status is error.
type ConversionOutcome struct {
	ConversionID string
	Legs         []OrderLeg
	Status       ConversionStatus
	ErrorDetail  string
}

// RouteState tracks a request through the router.
type RouteState int

const (
	StatePending RouteState = iota
	StateFuturesSubmitted
	StateSpotSubmitted
	StateSent
	StateError
)

func (s RouteState) String() string {
	switch s {
	case StatePending:
		return "PENDING"
	case StateFuturesSubmitted:
		return "FUTURES_SUBMITTED"
	case StateSpotSubmitted:
		return "SPOT_SUBMITTED"
	case StateSent:
		return "SENT"
	case StateError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// CanTransition reports whether moving from s to next is allowed.
func (s RouteState) CanTransition(next RouteState) bool {
	switch s {
	case StatePending:
		return next == StateFuturesSubmitted || next == StateError
	case StateFuturesSubmitted:
		return next == StateSpotSubmitted || next == StateSent || next == StateError
	case StateSpotSubmitted:
		return next == StateSent || next == StateError
	default:
		return false
	}
}

// Conversion is a stored conversion history record.
type Conversion struct {
	ID           string
	UserID       string
	FromCurrency Currency
	ToCurrency   Currency
	Amount       decimal.Decimal
	Rate         decimal.Decimal
	Status       ConversionStatus
	UpdatedAt    time.Time
}

// Request builds the routing request for the record.
func (c Conversion) Request() ConversionRequest {
	return ConversionRequest{
		ID:           c.ID,
		FromCurrency: c.FromCurrency,
		ToCurrency:   c.ToCurrency,
		Amount:       c.Amount,
		QuotedRate:   c.Rate,
	}
}

// LegRecord is one entry of a conversion's order sub-records: either a
// placed leg or a failure message.
type LegRecord struct {
	Exchange  string
	OrderID   string
	Symbol    string
	Side      string
	Size      decimal.Decimal
	CreatedAt string
	Error     string
}

// Failed reports whether the record is a failure entry.
func (r LegRecord) Failed() bool {
	return r.Error != ""
}
