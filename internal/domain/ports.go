package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// InstrumentSource lists the futures venue's instruments.
type InstrumentSource interface {
	ListInstruments(ctx context.Context) ([]Instrument, error)
}

// FuturesOrderRequest is a futures order in the venue's wire spelling.
type FuturesOrderRequest struct {
	Symbol        string
	Side          string // "Buy" | "Sell"
	Qty           int64
	OrderType     string // "Market" | "Limit"
	TimeInForce   string
	Price         decimal.Decimal // Limit only
	ClientOrderID string
}

// FuturesOrderResult is the venue's result payload, not yet validated.
type FuturesOrderResult struct {
	OrderID   string
	Symbol    string
	Side      string
	Qty       decimal.Decimal
	CreatedAt string
}

// FuturesOrderResponse carries either a result or the venue's message.
type FuturesOrderResponse struct {
	Result  *FuturesOrderResult
	Message string
}

// FuturesExchange submits futures orders.
type FuturesExchange interface {
	Name() string
	SubmitOrder(ctx context.Context, req FuturesOrderRequest) (*FuturesOrderResponse, error)
}

// SpotOrderRequest is a spot market order; Side is "buy" or "sell".
type SpotOrderRequest struct {
	Market   string
	Side     string
	Size     decimal.Decimal
	ClientID string
}

// SpotOrderResult is the venue's result payload, not yet validated.
type SpotOrderResult struct {
	ID        string
	Market    string
	Side      string
	Size      decimal.Decimal
	CreatedAt string
}

// SpotOrderResponse carries either a result or the venue's error text.
type SpotOrderResponse struct {
	Success bool
	Result  *SpotOrderResult
	Error   string
}

// SpotExchange places spot orders.
type SpotExchange interface {
	Name() string
	PlaceOrder(ctx context.Context, req SpotOrderRequest) (*SpotOrderResponse, error)
}

// MarketPriceSource quotes the current price of a market.
type MarketPriceSource interface {
	MarketPrice(ctx context.Context, market string) (decimal.Decimal, error)
}

// HistoryRecorder persists what happened to a conversion.
type HistoryRecorder interface {
	RecordLegSuccess(ctx context.Context, conversionID string, leg OrderLeg) error
	RecordLegFailure(ctx context.Context, conversionID string, message string) error
	FinalizeStatus(ctx context.Context, conversionID string, status ConversionStatus) error
}

// PriceStore is the append-only price history.
type PriceStore interface {
	AddPrice(ctx context.Context, p PricePoint) error
	// LatestPrice returns false when the pair has no rows.
	LatestPrice(ctx context.Context, pair string) (decimal.Decimal, bool, error)
	LatestPriceTime(ctx context.Context, pair string) (time.Time, bool, error)
	// DeletePricesUpTo removes rows of pair with a timestamp <= cutoff.
	DeletePricesUpTo(ctx context.Context, pair string, cutoff time.Time) (int64, error)
}

// ConversionStore holds conversion history records.
type ConversionStore interface {
	CreateConversion(ctx context.Context, c Conversion) error
	GetConversion(ctx context.Context, id string) (*Conversion, error)
	// ClaimConversion moves a pending conversion to routing in one step.
	// Only one caller can claim a conversion; the rest get ErrConversionClaimed.
	ClaimConversion(ctx context.Context, id string) error
	ListConversions(ctx context.Context) ([]Conversion, error)
	ListLegRecords(ctx context.Context, conversionID string) ([]LegRecord, error)
}

// AccountStore holds balances and interest payouts.
type AccountStore interface {
	AddInterestPayment(ctx context.Context, p InterestPayment) error
	ListInterestPayments(ctx context.Context) ([]InterestPayment, error)
	SetBalance(ctx context.Context, b Balance) error
	ListBalances(ctx context.Context, pending bool) ([]Balance, error)
}

// Store is everything a storage backend provides.
type Store interface {
	HistoryRecorder
	PriceStore
	ConversionStore
	AccountStore
	Close() error
}
