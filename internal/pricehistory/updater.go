// Package pricehistory keeps the rolling price-history table: it records
// spot prices of the target markets and purges rows past the retention.
package pricehistory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"convert_go/internal/domain"
)

// SourceFTX is the source recorded on every row.
const SourceFTX = "FTX"

// DefaultRetention is how far behind the newest row of a pair rows are kept.
const DefaultRetention = 3 * 24 * time.Hour

// Config configures an Updater.
type Config struct {
	Markets   []string
	Retention time.Duration
	Source    string
	Logger    *slog.Logger
	Metrics   *Metrics
}

// Updater runs the update and purge jobs for a fixed set of target markets.
type Updater struct {
	prices  domain.MarketPriceSource
	store   domain.PriceStore
	markets []string
	keep    time.Duration
	source  string
	logger  *slog.Logger
	metrics *Metrics
	tracer  trace.Tracer
	now     func() time.Time
}

func NewUpdater(prices domain.MarketPriceSource, store domain.PriceStore, cfg Config) (*Updater, error) {
	if prices == nil || store == nil {
		return nil, errors.New("price source and store are required")
	}
	if len(cfg.Markets) == 0 {
		return nil, errors.New("at least one target market is required")
	}
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultRetention
	}
	if cfg.Source == "" {
		cfg.Source = SourceFTX
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Updater{
		prices:  prices,
		store:   store,
		markets: cfg.Markets,
		keep:    cfg.Retention,
		source:  cfg.Source,
		logger:  cfg.Logger.With(slog.String("component", "price-history")),
		metrics: cfg.Metrics,
		tracer:  otel.Tracer("convert_go/pricehistory"),
		now:     time.Now,
	}, nil
}

// UpdateMarketPrices records the current price of every target market.
// Non-positive prices are skipped. A failing market does not stop the
// others; their errors are joined into the result.
func (u *Updater) UpdateMarketPrices(ctx context.Context) (int, error) {
	ctx, span := u.tracer.Start(ctx, "pricehistory.UpdateMarketPrices")
	defer span.End()

	recorded := 0
	var errs []error
	for _, market := range u.markets {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		ok, err := u.updateMarket(ctx, market)
		if err != nil {
			u.logger.ErrorContext(ctx, "Price update failed", slog.String("market", market), slog.Any("error", err))
			u.metrics.observe(market, resultFailed)
			errs = append(errs, fmt.Errorf("%s: %w", market, err))
			continue
		}
		if ok {
			recorded++
			u.metrics.observe(market, resultRecorded)
		} else {
			u.metrics.observe(market, resultSkipped)
		}
	}

	span.SetAttributes(attribute.Int("prices.recorded", recorded))
	err := errors.Join(errs...)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return recorded, err
}

func (u *Updater) updateMarket(ctx context.Context, market string) (bool, error) {
	price, err := u.prices.MarketPrice(ctx, market)
	if err != nil {
		return false, err
	}
	if !price.IsPositive() {
		u.logger.WarnContext(ctx, "Skipping non-positive price", slog.String("market", market), slog.String("price", price.String()))
		return false, nil
	}
	return true, u.record(ctx, market, price, u.now())
}

// RecordTick appends a streamed price for market.
func (u *Updater) RecordTick(ctx context.Context, market string, price decimal.Decimal, at time.Time) error {
	if !price.IsPositive() {
		u.metrics.observe(market, resultSkipped)
		return nil
	}
	if at.IsZero() {
		at = u.now()
	}
	if err := u.record(ctx, market, price, at); err != nil {
		u.metrics.observe(market, resultFailed)
		return err
	}
	u.metrics.observe(market, resultRecorded)
	return nil
}

func (u *Updater) record(ctx context.Context, market string, price decimal.Decimal, at time.Time) error {
	p := domain.PricePoint{
		CurrencyPair: domain.PairForMarket(market),
		Rate:         price,
		Market:       market,
		Source:       u.source,
		Timestamp:    at.UTC(),
	}
	if err := u.store.AddPrice(ctx, p); err != nil {
		return err
	}
	u.logger.DebugContext(ctx, "Price recorded",
		slog.String("pair", p.CurrencyPair),
		slog.String("market", market),
		slog.String("rate", price.String()))
	return nil
}

// PurgeOldPrices deletes, per target pair, every row at or before the
// pair's newest timestamp minus the retention. Pairs without rows are left
// alone. Returns the number of rows deleted.
func (u *Updater) PurgeOldPrices(ctx context.Context) (int64, error) {
	ctx, span := u.tracer.Start(ctx, "pricehistory.PurgeOldPrices")
	defer span.End()

	var (
		total int64
		errs  []error
		seen  = make(map[string]bool)
	)
	for _, market := range u.markets {
		pair := domain.PairForMarket(market)
		if seen[pair] {
			continue
		}
		seen[pair] = true

		n, err := u.purgePair(ctx, pair)
		if err != nil {
			u.logger.ErrorContext(ctx, "Price purge failed", slog.String("pair", pair), slog.Any("error", err))
			errs = append(errs, fmt.Errorf("%s: %w", pair, err))
			continue
		}
		total += n
		u.metrics.purged(pair, n)
	}

	span.SetAttributes(attribute.Int64("prices.purged", total))
	err := errors.Join(errs...)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return total, err
}

func (u *Updater) purgePair(ctx context.Context, pair string) (int64, error) {
	latest, ok, err := u.store.LatestPriceTime(ctx, pair)
	if err != nil || !ok {
		return 0, err
	}
	cutoff := latest.Add(-u.keep)
	n, err := u.store.DeletePricesUpTo(ctx, pair, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		u.logger.InfoContext(ctx, "Purged old prices",
			slog.String("pair", pair),
			slog.Int64("rows", n),
			slog.Time("cutoff", cutoff))
	}
	return n, nil
}
