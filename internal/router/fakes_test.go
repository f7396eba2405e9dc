package router

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"convert_go/internal/domain"
)

type fakeResolver struct {
	symbol string
	err    error
	bases  []domain.Currency
}

func (f *fakeResolver) ResolveNextInstrument(_ context.Context, base, _ domain.Currency) (string, error) {
	f.bases = append(f.bases, base)
	if f.err != nil {
		return "", f.err
	}
	return f.symbol, nil
}

type futuresCall struct {
	symbol string
	side   domain.Side
	qty    int64
}

type fakeFutures struct {
	err   error
	calls []futuresCall
}

func (f *fakeFutures) PlaceFuturesOrder(_ context.Context, symbol string, side domain.Side, qty int64, _ domain.OrderType, _ domain.TimeInForce) (domain.OrderLeg, error) {
	f.calls = append(f.calls, futuresCall{symbol, side, qty})
	if f.err != nil {
		return domain.OrderLeg{}, f.err
	}
	return domain.OrderLeg{
		Provider:  domain.ProviderFutures,
		Venue:     "fake",
		Symbol:    symbol,
		Side:      side,
		Size:      decimal.NewFromInt(qty),
		OrderID:   "fut-1",
		CreatedAt: time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC),
	}, nil
}

type spotCall struct {
	market string
	side   domain.Side
	size   decimal.Decimal
}

type fakeSpot struct {
	err   error
	calls []spotCall
}

func (f *fakeSpot) PlaceSpotOrder(_ context.Context, market string, side domain.Side, size decimal.Decimal) (domain.OrderLeg, error) {
	f.calls = append(f.calls, spotCall{market, side, size})
	if f.err != nil {
		return domain.OrderLeg{}, f.err
	}
	return domain.OrderLeg{
		Provider: domain.ProviderSpot,
		Venue:    "fake",
		Symbol:   market,
		Side:     side,
		Size:     size,
		OrderID:  "spot-1",
	}, nil
}

type fakeOracle struct {
	price decimal.Decimal
	err   error
	pairs []string
}

func (f *fakeOracle) LastPrice(_ context.Context, pair string) (decimal.Decimal, error) {
	f.pairs = append(f.pairs, pair)
	return f.price, f.err
}

type fakeHistory struct {
	mu          sync.Mutex
	successes   []domain.OrderLeg
	failures    []string
	statuses    []domain.ConversionStatus
	successErr  error
	failureErr  error
	finalizeErr map[domain.ConversionStatus]error
}

func (f *fakeHistory) RecordLegSuccess(_ context.Context, _ string, leg domain.OrderLeg) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.successErr != nil {
		return f.successErr
	}
	f.successes = append(f.successes, leg)
	return nil
}

func (f *fakeHistory) RecordLegFailure(_ context.Context, _ string, msg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failureErr != nil {
		return f.failureErr
	}
	f.failures = append(f.failures, msg)
	return nil
}

func (f *fakeHistory) FinalizeStatus(_ context.Context, _ string, status domain.ConversionStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.finalizeErr[status]; err != nil {
		return err
	}
	f.statuses = append(f.statuses, status)
	return nil
}

type fakeSource struct {
	instruments []domain.Instrument
	err         error
	calls       int
}

func (f *fakeSource) ListInstruments(context.Context) ([]domain.Instrument, error) {
	f.calls++
	return f.instruments, f.err
}

type fakePriceStore struct {
	price decimal.Decimal
	ok    bool
	err   error
}

func (f *fakePriceStore) AddPrice(context.Context, domain.PricePoint) error { return nil }

func (f *fakePriceStore) LatestPrice(context.Context, string) (decimal.Decimal, bool, error) {
	return f.price, f.ok, f.err
}

func (f *fakePriceStore) LatestPriceTime(context.Context, string) (time.Time, bool, error) {
	return time.Time{}, false, nil
}

func (f *fakePriceStore) DeletePricesUpTo(context.Context, string, time.Time) (int64, error) {
	return 0, nil
}

var errExchangeDown = errors.New("exchange unavailable")
