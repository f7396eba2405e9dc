package router

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"convert_go/internal/domain"
)

func btc(name, alias string, status domain.InstrumentStatus) domain.Instrument {
	return domain.Instrument{Name: name, Alias: alias, BaseCurrency: domain.BTC, QuoteCurrency: domain.USD, Status: status}
}

func newTestResolver(source domain.InstrumentSource, now time.Time) *InstrumentResolver {
	r := NewInstrumentResolver(source, nil)
	r.now = func() time.Time { return now }
	return r
}

func TestResolveNextInstrument(t *testing.T) {
	now := time.Date(2026, time.October, 16, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name        string
		instruments []domain.Instrument
		want        string
	}{
		{
			name: "nearest of two quarterlies",
			instruments: []domain.Instrument{
				btc("BTCUSDH27", "BTCUSD0326", domain.InstrumentTrading), // next year, wrong suffix
				btc("BTCUSDZ26", "BTCUSD1225", domain.InstrumentTrading),
				btc("BTCUSDX26", "BTCUSD1127", domain.InstrumentTrading),
			},
			want: "BTCUSDX26",
		},
		{
			name: "expired contract skipped",
			instruments: []domain.Instrument{
				btc("BTCUSDU26", "BTCUSD0925", domain.InstrumentTrading),
				btc("BTCUSDZ26", "BTCUSD1225", domain.InstrumentTrading),
			},
			want: "BTCUSDZ26",
		},
		{
			name: "expiring today still valid",
			instruments: []domain.Instrument{
				btc("BTCUSDV26", "BTCUSD1016", domain.InstrumentTrading),
				btc("BTCUSDZ26", "BTCUSD1225", domain.InstrumentTrading),
			},
			want: "BTCUSDV26",
		},
		{
			name: "non trading and foreign listings ignored",
			instruments: []domain.Instrument{
				btc("BTCUSDX26", "BTCUSD1127", "Settling"),
				{Name: "ETHUSDX26", Alias: "ETHUSD1127", BaseCurrency: domain.ETH, QuoteCurrency: domain.USD, Status: domain.InstrumentTrading},
				{Name: "BTCUSDT", Alias: "BTCUSDT", BaseCurrency: domain.BTC, QuoteCurrency: domain.USDT, Status: domain.InstrumentTrading},
				btc("BTCUSD", "BTCUSD", domain.InstrumentTrading), // perpetual, no year suffix
				btc("BTCUSDZ26", "BTCUSD1225", domain.InstrumentTrading),
			},
			want: "BTCUSDZ26",
		},
		{
			name: "ties keep input order",
			instruments: []domain.Instrument{
				btc("BTCUSDZ26", "BTCUSD1225", domain.InstrumentTrading),
				btc("BTCUSDZZ26", "BTCUSD1225", domain.InstrumentTrading),
			},
			want: "BTCUSDZ26",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := &fakeSource{instruments: tt.instruments}
			got, err := newTestResolver(source, now).ResolveNextInstrument(context.Background(), domain.BTC, domain.USD)
			if err != nil {
				t.Fatalf("ResolveNextInstrument failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("ResolveNextInstrument() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestResolveNextInstrument_FetchesEveryCall(t *testing.T) {
	source := &fakeSource{instruments: []domain.Instrument{btc("BTCUSDZ26", "BTCUSD1225", domain.InstrumentTrading)}}
	r := newTestResolver(source, time.Date(2026, time.October, 16, 0, 0, 0, 0, time.UTC))

	for i := 0; i < 3; i++ {
		if _, err := r.ResolveNextInstrument(context.Background(), domain.BTC, ""); err != nil {
			t.Fatalf("call %d failed: %v", i, err)
		}
	}
	if source.calls != 3 {
		t.Errorf("ListInstruments calls = %d, want 3", source.calls)
	}
}

func TestResolveNextInstrument_Errors(t *testing.T) {
	now := time.Date(2026, time.December, 26, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		source   *fakeSource
		notFound bool
	}{
		{"empty list", &fakeSource{}, true},
		{"all expired", &fakeSource{instruments: []domain.Instrument{btc("BTCUSDZ26", "BTCUSD1225", domain.InstrumentTrading)}}, true},
		{"fetch failure", &fakeSource{err: errExchangeDown}, false},
		{"malformed alias", &fakeSource{instruments: []domain.Instrument{btc("BTCUSDZ26", "BTCUSDDEC", domain.InstrumentTrading)}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestResolver(tt.source, now).ResolveNextInstrument(context.Background(), domain.BTC, domain.USD)
			var re *domain.ResolutionError
			if !errors.As(err, &re) {
				t.Fatalf("err = %v, want ResolutionError", err)
			}
			if got := errors.Is(err, domain.ErrInstrumentNotFound); got != tt.notFound {
				t.Errorf("errors.Is(ErrInstrumentNotFound) = %v, want %v", got, tt.notFound)
			}
		})
	}
}

func TestPriceOracle_LastPrice(t *testing.T) {
	ctx := context.Background()

	got, err := NewPriceOracle(&fakePriceStore{price: decimal.NewFromInt(61000), ok: true}).LastPrice(ctx, domain.PairBTCUSD)
	if err != nil || !got.Equal(decimal.NewFromInt(61000)) {
		t.Errorf("LastPrice = %s, %v; want 61000", got, err)
	}

	got, err = NewPriceOracle(&fakePriceStore{}).LastPrice(ctx, domain.PairBTCUSD)
	if err != nil || !got.IsZero() {
		t.Errorf("LastPrice without history = %s, %v; want 0", got, err)
	}

	if _, err := NewPriceOracle(&fakePriceStore{err: errExchangeDown}).LastPrice(ctx, domain.PairBTCUSD); err == nil {
		t.Error("expected store error to propagate")
	}
}
