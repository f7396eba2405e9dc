package router

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"convert_go/internal/domain"
)

// InstrumentResolver picks the futures contract to trade for a base currency.
// Listings are fetched on every call; expiries roll over, so nothing is cached.
type InstrumentResolver struct {
	source domain.InstrumentSource
	now    func() time.Time
	logger *slog.Logger
}

// NewInstrumentResolver creates a resolver reading listings from source.
func NewInstrumentResolver(source domain.InstrumentSource, logger *slog.Logger) *InstrumentResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &InstrumentResolver{
		source: source,
		now:    time.Now,
		logger: logger,
	}
}

// ResolveNextInstrument returns the name of the soonest-expiring contract for
// base/quote that is trading, carries the current year suffix and has not yet
// expired as of today's UTC date.
func (r *InstrumentResolver) ResolveNextInstrument(ctx context.Context, base, quote domain.Currency) (string, error) {
	if quote == "" {
		quote = domain.USD
	}

	instruments, err := r.source.ListInstruments(ctx)
	if err != nil {
		return "", &domain.ResolutionError{Base: base, Quote: quote, Err: err}
	}

	now := r.now().UTC()
	year := domain.YearToken(now)
	today := domain.MonthDayKey(now)
	prefix := string(base) + string(quote)

	var (
		best    string
		bestKey int
		found   bool
	)
	for _, inst := range instruments {
		if inst.BaseCurrency != base || inst.QuoteCurrency != quote {
			continue
		}
		if inst.Status != domain.InstrumentTrading {
			continue
		}
		if !strings.HasPrefix(inst.Name, prefix) || !strings.HasSuffix(inst.Name, year) {
			continue
		}
		key, err := inst.ExpiryKey()
		if err != nil {
			return "", &domain.ResolutionError{Base: base, Quote: quote, Err: err}
		}
		if key < today {
			continue
		}
		// Strict comparison keeps the first of equal keys.
		if !found || key < bestKey {
			best, bestKey, found = inst.Name, key, true
		}
	}

	if !found {
		return "", &domain.ResolutionError{
			Base:  base,
			Quote: quote,
			Err:   fmt.Errorf("%w among %d listings (year %s, from %04d)", domain.ErrInstrumentNotFound, len(instruments), year, today),
		}
	}

	r.logger.InfoContext(ctx, "Resolved next futures instrument",
		slog.String("base", string(base)),
		slog.String("symbol", best),
		slog.Int("expiry_key", bestKey))
	return best, nil
}
