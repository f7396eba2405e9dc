package pricehistory

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestSchedulerRunsImmediatelyAndStops(t *testing.T) {
	store := &memPrices{}
	quotes := &fakeQuotes{prices: map[string]decimal.Decimal{"BTC-PERP": decimal.NewFromInt(27000)}}
	u := newTestUpdater(t, quotes, store, "BTC-PERP")

	s := NewScheduler(u, 10*time.Millisecond, time.Hour)
	s.Start(context.Background())

	deadline := time.After(2 * time.Second)
	for store.count() < 2 {
		select {
		case <-deadline:
			s.Stop()
			t.Fatalf("scheduler recorded %d rows, want at least 2", store.count())
		case <-time.After(5 * time.Millisecond):
		}
	}

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
}

type panickingQuotes struct {
	calls atomic.Int32
}

func (p *panickingQuotes) MarketPrice(context.Context, string) (decimal.Decimal, error) {
	p.calls.Add(1)
	panic("quote feed blew up")
}

func TestSchedulerSurvivesPanickingJob(t *testing.T) {
	quotes := &panickingQuotes{}
	u := newTestUpdater(t, quotes, &memPrices{}, "BTC-PERP")

	s := NewScheduler(u, 10*time.Millisecond, 10*time.Millisecond)
	s.Start(context.Background())
	defer s.Stop()

	deadline := time.After(2 * time.Second)
	for quotes.calls.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("update ran %d times after panicking, want the loop to keep ticking", quotes.calls.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestSchedulerStopWithoutStart(t *testing.T) {
	u := newTestUpdater(t, &fakeQuotes{}, &memPrices{}, "BTC-PERP")
	NewScheduler(u, 0, 0).Stop()
}
