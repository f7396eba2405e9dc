package execution

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"convert_go/internal/domain"
	"convert_go/internal/infra"
	"convert_go/internal/infra/bybit"
	"convert_go/internal/infra/ftx"
)

// Mode represents the trading execution mode
type Mode string

const (
	ModePaper Mode = "PAPER"
	ModeDemo  Mode = "DEMO"
	ModeReal  Mode = "REAL"
)

// ErrRealMoneyNotConfirmed guards REAL mode.
var ErrRealMoneyNotConfirmed = errors.New("SAFETY_GUARD: real trading requires CONFIRM_REAL_MONEY=true")

// Venues bundles the exchange-facing ports for one mode.
type Venues struct {
	Mode        Mode
	Instruments domain.InstrumentSource
	Futures     domain.FuturesExchange
	Spot        domain.SpotExchange
	Prices      domain.MarketPriceSource
	close       []func()
}

// Close wipes exchange credentials held by the clients.
func (v *Venues) Close() {
	for _, fn := range v.close {
		fn()
	}
}

// Factory creates venues based on the configured mode.
type Factory struct {
	config *infra.Config
	logger *slog.Logger
	getenv func(string) string
}

func NewFactory(cfg *infra.Config, logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{config: cfg, logger: logger, getenv: os.Getenv}
}

// CreateVenues returns paper venues, the futures testnet with a paper spot
// venue (DEMO) or mainnet clients (REAL, only with CONFIRM_REAL_MONEY=true).
func (f *Factory) CreateVenues() (*Venues, error) {
	mode := Mode(strings.ToUpper(f.config.Trading.Mode))
	f.logger.Info("Initializing execution venues", slog.String("mode", string(mode)))

	switch mode {
	case ModePaper:
		futures := NewPaperFutures()
		spot := NewPaperSpot()
		return &Venues{Mode: mode, Instruments: futures, Futures: futures, Spot: spot, Prices: spot}, nil

	case ModeDemo:
		// The spot venue has no testnet: DEMO fills spot legs on paper at
		// the venue's public quotes.
		f.logger.Info("Connecting to futures testnet, spot legs on paper")
		v := f.liveVenues(mode, true)
		v.Spot = NewQuotedPaperSpot(v.Prices)
		return v, nil

	case ModeReal:
		if f.getenv("CONFIRM_REAL_MONEY") != "true" {
			f.logger.Error(ErrRealMoneyNotConfirmed.Error())
			return nil, ErrRealMoneyNotConfirmed
		}
		f.logger.Warn("Connecting to exchange MAINNETS with real money")
		return f.liveVenues(mode, f.config.Exchanges.Bybit.Testnet), nil

	default:
		return nil, fmt.Errorf("unknown execution mode: %s", mode)
	}
}

func (f *Factory) liveVenues(mode Mode, testnet bool) *Venues {
	cfg := f.config
	ua := infra.UserAgent(cfg.App.Version)

	futures := bybit.NewClient(bybit.ClientConfig{
		BaseURL:      cfg.Exchanges.Bybit.RestURL,
		Testnet:      testnet,
		APIKey:       cfg.Exchanges.Bybit.APIKey,
		APISecret:    cfg.Exchanges.Bybit.APISecret,
		RecvWindowMS: cfg.Exchanges.Bybit.RecvWindowMS,
		UserAgent:    ua,
		Logger:       f.logger,
	})
	spot := ftx.NewClient(ftx.ClientConfig{
		BaseURL:    cfg.Exchanges.FTX.RestURL,
		APIKey:     cfg.Exchanges.FTX.APIKey,
		APISecret:  cfg.Exchanges.FTX.APISecret,
		SubAccount: cfg.Exchanges.FTX.SubAccount,
		UserAgent:  ua,
		Logger:     f.logger,
	})

	return &Venues{
		Mode:        mode,
		Instruments: futures,
		Futures:     futures,
		Spot:        spot,
		Prices:      spot,
		close:       []func(){futures.Close, spot.Close},
	}
}
