package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/shopspring/decimal"

	"convert_go/internal/domain"
	"convert_go/internal/execution"
	"convert_go/internal/infra"
	"convert_go/internal/pricehistory"
	"convert_go/internal/router"
	"convert_go/internal/stats"
	"convert_go/internal/storage"
	"convert_go/internal/storage/postgres"
)

// spotMarkets are the spot venue markets the router trades.
var spotMarkets = []string{"BTC/USD", "BTC/USDT"}

// Bootstrap wires configuration, storage, venues and services together.
type Bootstrap struct {
	Config   *infra.Config
	Logger   *slog.Logger
	Store    domain.Store
	Venues   *execution.Venues
	Router   *router.Router
	Updater  *pricehistory.Updater
	Reporter *stats.Reporter
	Archive  *stats.Archive
	Registry *prometheus.Registry
}

func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize loads the configuration at cfgPath (or the resolved default
// when empty) and builds every component.
func (b *Bootstrap) Initialize(ctx context.Context, cfgPath string) error {
	if cfgPath == "" {
		cfgPath = infra.ResolveConfigPath()
	}
	cfg, err := infra.LoadConfig(cfgPath)
	if err != nil {
		return err
	}
	if err := cfg.ApplySecrets(infra.SecretPath(cfg.Trading.Mode)); err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}
	return b.InitializeWith(ctx, cfg, infra.NewLogger(cfg))
}

// InitializeWith builds every component from an already loaded config.
func (b *Bootstrap) InitializeWith(ctx context.Context, cfg *infra.Config, logger *slog.Logger) error {
	b.Config = cfg
	b.Logger = logger
	slog.SetDefault(logger)

	logger.Info("Bootstrapping convert router",
		slog.String("mode", cfg.Trading.Mode),
		slog.String("storage", cfg.Storage.Driver))

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	b.Store = store

	venues, err := execution.NewFactory(cfg, logger).CreateVenues()
	if err != nil {
		store.Close()
		return err
	}
	b.Venues = venues

	if paper, ok := venues.Spot.(*execution.PaperSpot); ok && venues.Mode == execution.ModePaper {
		if err := seedPaperPrices(ctx, paper, store, cfg); err != nil {
			b.Close()
			return err
		}
	}

	b.Registry = prometheus.NewRegistry()
	b.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	b.Router, err = router.NewRouter(router.Dependencies{
		Resolver: router.NewInstrumentResolver(venues.Instruments, logger),
		Futures:  execution.NewFuturesOrderGateway(venues.Futures, logger),
		Spot:     execution.NewSpotOrderGateway(venues.Spot, logger),
		Oracle:   router.NewPriceOracle(store),
		History:  store,
		Metrics:  router.NewMetrics(b.Registry),
		Logger:   logger,
	})
	if err != nil {
		b.Close()
		return err
	}

	b.Updater, err = pricehistory.NewUpdater(venues.Prices, store, pricehistory.Config{
		Markets:   cfg.TargetMarkets(),
		Retention: cfg.Retention(),
		Logger:    logger,
		Metrics:   pricehistory.NewMetrics(b.Registry),
	})
	if err != nil {
		b.Close()
		return err
	}

	b.Reporter = stats.NewReporter(store, store, logger)
	b.Archive = stats.NewArchive(infra.ModeDir("reports", cfg.Trading.Mode))

	logger.Info("Bootstrap complete", slog.String("venues", string(venues.Mode)))
	return nil
}

// Close releases the venues and the store.
func (b *Bootstrap) Close() error {
	if b.Venues != nil {
		b.Venues.Close()
	}
	if b.Store != nil {
		return b.Store.Close()
	}
	return nil
}

func openStore(ctx context.Context, cfg *infra.Config, logger *slog.Logger) (domain.Store, error) {
	switch cfg.Storage.Driver {
	case "postgres":
		return postgres.Open(ctx, cfg.Storage.DatabaseURL, logger)
	case "sqlite":
		path := cfg.Storage.SQLitePath
		if path == "" {
			dataDir := infra.ModeDir("data", cfg.Trading.Mode)
			if err := infra.EnsureDir(dataDir); err != nil {
				return nil, fmt.Errorf("failed to create data dir: %w", err)
			}
			path = filepath.Join(dataDir, "convert.db")
		}
		store, err := storage.NewSQLiteStore(path)
		if err != nil {
			return nil, err
		}
		logger.Info("SQLite store ready (WAL-mode)", slog.String("path", path))
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage driver: %q", cfg.Storage.Driver)
	}
}

// seedPaperPrices quotes every market on the paper spot venue from the
// newest recorded price, falling back to the configured paper price.
func seedPaperPrices(ctx context.Context, paper *execution.PaperSpot, store domain.PriceStore, cfg *infra.Config) error {
	fallback := decimal.Zero
	if cfg.Trading.PaperPrice != "" {
		p, err := decimal.NewFromString(cfg.Trading.PaperPrice)
		if err != nil {
			return fmt.Errorf("invalid paper price: %w", err)
		}
		fallback = p
	}

	pairs := make(map[string]string)
	for _, m := range cfg.TargetMarkets() {
		pairs[m] = domain.PairForMarket(m)
	}
	for _, m := range spotMarkets {
		pairs[m] = domain.PairBTCUSD
	}

	var errs []error
	for market, pair := range pairs {
		price, ok, err := store.LatestPrice(ctx, pair)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !ok || !price.IsPositive() {
			if !strings.HasPrefix(pair, string(domain.BTC)+"-") || !fallback.IsPositive() {
				continue
			}
			price = fallback
		}
		paper.UpdatePrice(market, price)
	}
	return errors.Join(errs...)
}
