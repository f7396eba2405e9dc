package pricehistory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"

	"convert_go/internal/domain"
)

type fakeQuotes struct {
	prices map[string]decimal.Decimal
	errs   map[string]error
}

func (f *fakeQuotes) MarketPrice(_ context.Context, market string) (decimal.Decimal, error) {
	if err := f.errs[market]; err != nil {
		return decimal.Zero, err
	}
	return f.prices[market], nil
}

type memPrices struct {
	mu   sync.Mutex
	rows []domain.PricePoint
}

func (m *memPrices) AddPrice(_ context.Context, p domain.PricePoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, p)
	return nil
}

func (m *memPrices) LatestPrice(_ context.Context, pair string) (decimal.Decimal, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var (
		best  domain.PricePoint
		found bool
	)
	for _, r := range m.rows {
		if r.CurrencyPair == pair && (!found || r.Timestamp.After(best.Timestamp)) {
			best, found = r, true
		}
	}
	return best.Rate, found, nil
}

func (m *memPrices) LatestPriceTime(_ context.Context, pair string) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var (
		latest time.Time
		found  bool
	)
	for _, r := range m.rows {
		if r.CurrencyPair == pair && (!found || r.Timestamp.After(latest)) {
			latest, found = r.Timestamp, true
		}
	}
	return latest, found, nil
}

func (m *memPrices) DeletePricesUpTo(_ context.Context, pair string, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var (
		kept    []domain.PricePoint
		deleted int64
	)
	for _, r := range m.rows {
		if r.CurrencyPair == pair && !r.Timestamp.After(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, r)
	}
	m.rows = kept
	return deleted, nil
}

func (m *memPrices) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

var fixedNow = time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)

func newTestUpdater(t *testing.T, quotes domain.MarketPriceSource, store domain.PriceStore, markets ...string) *Updater {
	t.Helper()
	u, err := NewUpdater(quotes, store, Config{Markets: markets})
	if err != nil {
		t.Fatalf("NewUpdater: %v", err)
	}
	u.now = func() time.Time { return fixedNow }
	return u
}

func TestNewUpdaterValidation(t *testing.T) {
	store := &memPrices{}
	quotes := &fakeQuotes{}
	if _, err := NewUpdater(nil, store, Config{Markets: []string{"BTC-PERP"}}); err == nil {
		t.Error("expected error for nil price source")
	}
	if _, err := NewUpdater(quotes, store, Config{}); err == nil {
		t.Error("expected error for empty market list")
	}
	u, err := NewUpdater(quotes, store, Config{Markets: []string{"BTC-PERP"}})
	if err != nil {
		t.Fatalf("NewUpdater: %v", err)
	}
	if u.keep != DefaultRetention || u.source != SourceFTX {
		t.Errorf("defaults not applied: keep=%v source=%q", u.keep, u.source)
	}
}

func TestUpdateMarketPrices(t *testing.T) {
	store := &memPrices{}
	quotes := &fakeQuotes{prices: map[string]decimal.Decimal{
		"BTC-PERP": decimal.RequireFromString("27123.5"),
		"ETH-PERP": decimal.RequireFromString("1650.25"),
	}}
	u := newTestUpdater(t, quotes, store, "BTC-PERP", "ETH-PERP")

	n, err := u.UpdateMarketPrices(context.Background())
	if err != nil {
		t.Fatalf("UpdateMarketPrices: %v", err)
	}
	if n != 2 || store.count() != 2 {
		t.Fatalf("recorded %d, stored %d; want 2", n, store.count())
	}

	got := store.rows[0]
	if got.CurrencyPair != "BTC-USD" || got.Market != "BTC-PERP" || got.Source != "FTX" {
		t.Errorf("unexpected row: %+v", got)
	}
	if !got.Rate.Equal(decimal.RequireFromString("27123.5")) || !got.Timestamp.Equal(fixedNow) {
		t.Errorf("unexpected rate/timestamp: %s %v", got.Rate, got.Timestamp)
	}
	if store.rows[1].CurrencyPair != "ETH-USD" {
		t.Errorf("second pair = %q, want ETH-USD", store.rows[1].CurrencyPair)
	}
}

func TestUpdateMarketPricesSkipsNonPositive(t *testing.T) {
	store := &memPrices{}
	quotes := &fakeQuotes{prices: map[string]decimal.Decimal{
		"BTC-PERP": decimal.Zero,
		"ETH-PERP": decimal.NewFromInt(-1),
	}}
	u := newTestUpdater(t, quotes, store, "BTC-PERP", "ETH-PERP")

	n, err := u.UpdateMarketPrices(context.Background())
	if err != nil {
		t.Fatalf("UpdateMarketPrices: %v", err)
	}
	if n != 0 || store.count() != 0 {
		t.Errorf("expected nothing recorded, got %d rows", store.count())
	}
}

func TestUpdateMarketPricesIsolatesFailures(t *testing.T) {
	store := &memPrices{}
	boom := errors.New("venue down")
	quotes := &fakeQuotes{
		prices: map[string]decimal.Decimal{"ETH-PERP": decimal.NewFromInt(1600)},
		errs:   map[string]error{"BTC-PERP": boom},
	}
	reg := prometheus.NewRegistry()
	u, err := NewUpdater(quotes, store, Config{
		Markets: []string{"BTC-PERP", "ETH-PERP"},
		Metrics: NewMetrics(reg),
	})
	if err != nil {
		t.Fatal(err)
	}

	n, err := u.UpdateMarketPrices(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want wrapped %v", err, boom)
	}
	if n != 1 || store.count() != 1 || store.rows[0].Market != "ETH-PERP" {
		t.Errorf("expected only ETH-PERP recorded, got %+v", store.rows)
	}

	if v := testutil.ToFloat64(u.metrics.updates.WithLabelValues("BTC-PERP", resultFailed)); v != 1 {
		t.Errorf("failed counter = %v, want 1", v)
	}
	if v := testutil.ToFloat64(u.metrics.updates.WithLabelValues("ETH-PERP", resultRecorded)); v != 1 {
		t.Errorf("recorded counter = %v, want 1", v)
	}
}

func TestRecordTick(t *testing.T) {
	store := &memPrices{}
	u := newTestUpdater(t, &fakeQuotes{}, store, "BTC-PERP")

	at := fixedNow.Add(-time.Second)
	if err := u.RecordTick(context.Background(), "BTC-PERP", decimal.NewFromInt(27000), at); err != nil {
		t.Fatal(err)
	}
	if err := u.RecordTick(context.Background(), "BTC-PERP", decimal.Zero, at); err != nil {
		t.Fatal(err)
	}
	if err := u.RecordTick(context.Background(), "BTC-PERP", decimal.NewFromInt(27001), time.Time{}); err != nil {
		t.Fatal(err)
	}

	if store.count() != 2 {
		t.Fatalf("stored %d rows, want 2", store.count())
	}
	if !store.rows[0].Timestamp.Equal(at) || !store.rows[1].Timestamp.Equal(fixedNow) {
		t.Errorf("timestamps = %v, %v", store.rows[0].Timestamp, store.rows[1].Timestamp)
	}
}

func TestPurgeOldPrices(t *testing.T) {
	store := &memPrices{}
	latest := fixedNow
	add := func(pair string, at time.Time) {
		store.rows = append(store.rows, domain.PricePoint{CurrencyPair: pair, Rate: decimal.NewFromInt(1), Timestamp: at})
	}
	add("BTC-USD", latest)
	add("BTC-USD", latest.Add(-72*time.Hour))             // exactly at the cutoff
	add("BTC-USD", latest.Add(-72*time.Hour-time.Second)) // older
	add("BTC-USD", latest.Add(-71*time.Hour))             // inside the window
	add("ETH-USD", latest.Add(-240*time.Hour))            // other pair, not targeted

	u := newTestUpdater(t, &fakeQuotes{}, store, "BTC-PERP", "BTC-0326")

	n, err := u.PurgeOldPrices(context.Background())
	if err != nil {
		t.Fatalf("PurgeOldPrices: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted %d, want 2", n)
	}
	if store.count() != 3 {
		t.Errorf("kept %d rows, want 3", store.count())
	}
}

func TestPurgeOldPricesEmptyPair(t *testing.T) {
	store := &memPrices{}
	u := newTestUpdater(t, &fakeQuotes{}, store, "SOL-PERP")

	n, err := u.PurgeOldPrices(context.Background())
	if err != nil || n != 0 {
		t.Errorf("got (%d, %v), want (0, nil)", n, err)
	}
}

func TestPairForMarketTargets(t *testing.T) {
	tests := []struct {
		market string
		want   string
	}{
		{"BTC-PERP", "BTC-USD"},
		{"ETH-PERP", "ETH-USD"},
		{" BTC-PERP ", "BTC-USD"},
	}
	for _, tt := range tests {
		if got := domain.PairForMarket(tt.market); got != tt.want {
			t.Errorf("PairForMarket(%q) = %q, want %q", tt.market, got, tt.want)
		}
	}
}
