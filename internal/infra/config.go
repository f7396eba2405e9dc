package infra

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// UserAgent identifies this service to the exchanges.
func UserAgent(version string) string {
	if version == "" {
		version = "dev"
	}
	return fmt.Sprintf("%s/%s (%s; %s)", AppName, version, runtime.GOOS, runtime.GOARCH)
}

// Config holds every setting of the application. LoadConfig reads the YAML
// file first, then the environment overrides the tagged fields.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Trading struct {
		Mode string `yaml:"mode" env:"TRADING_MODE"`
		// PaperPrice seeds the paper spot venue when no price history exists.
		PaperPrice string `yaml:"paper_price"`
	} `yaml:"trading"`

	Exchanges struct {
		Bybit struct {
			RestURL      string `yaml:"rest_url"`
			Testnet      bool   `yaml:"testnet" env:"CONVERT_BYBIT_TESTNET"`
			APIKey       string `yaml:"api_key" env:"CONVERT_BYBIT_API_KEY"`
			APISecret    string `yaml:"api_secret" env:"CONVERT_BYBIT_API_SECRET"`
			RecvWindowMS int64  `yaml:"recv_window_ms"`
		} `yaml:"bybit"`
		FTX struct {
			RestURL    string `yaml:"rest_url"`
			WSURL      string `yaml:"ws_url"`
			APIKey     string `yaml:"api_key" env:"CONVERT_FTX_API_KEY"`
			APISecret  string `yaml:"api_secret" env:"CONVERT_FTX_API_SECRET"`
			SubAccount string `yaml:"sub_account" env:"CONVERT_FTX_SUB_ACCOUNT"`
		} `yaml:"ftx"`
	} `yaml:"exchanges"`

	Storage struct {
		Driver      string `yaml:"driver" env:"CONVERT_STORAGE_DRIVER"`
		SQLitePath  string `yaml:"sqlite_path"`
		DatabaseURL string `yaml:"database_url" env:"CONVERT_DATABASE_URL"`
	} `yaml:"storage"`

	Prices struct {
		TargetMarkets     string `yaml:"target_markets" env:"TARGET_MARKETS"`
		UpdateIntervalSec int    `yaml:"update_interval_sec"`
		PurgeIntervalSec  int    `yaml:"purge_interval_sec"`
		RetentionDays     int    `yaml:"retention_days"`
		Stream            bool   `yaml:"stream"`
	} `yaml:"prices"`

	Metrics struct {
		Addr string `yaml:"addr" env:"CONVERT_METRICS_ADDR"`
	} `yaml:"metrics"`

	Logging struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
	} `yaml:"logging"`
}

// LoadConfig reads and parses the configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := overrideWithEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns the settings used for keys the file leaves out.
func DefaultConfig() *Config {
	var cfg Config
	cfg.App.Name = AppName
	cfg.Trading.Mode = "PAPER"
	cfg.Trading.PaperPrice = "30000"
	cfg.Exchanges.Bybit.RestURL = "https://api.bybit.com"
	cfg.Exchanges.Bybit.RecvWindowMS = 5000
	cfg.Exchanges.FTX.RestURL = "https://ftx.com"
	cfg.Exchanges.FTX.WSURL = "wss://ftx.com/ws/"
	cfg.Storage.Driver = "sqlite"
	cfg.Prices.TargetMarkets = "BTC-PERP"
	cfg.Prices.UpdateIntervalSec = 60
	cfg.Prices.PurgeIntervalSec = 3600
	cfg.Prices.RetentionDays = 3
	cfg.Metrics.Addr = ":9100"
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "text"
	return &cfg
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	switch strings.ToUpper(c.Trading.Mode) {
	case "PAPER", "DEMO", "REAL":
	default:
		return fmt.Errorf("unknown trading mode: %q", c.Trading.Mode)
	}

	if c.Trading.PaperPrice != "" {
		if p, err := decimal.NewFromString(c.Trading.PaperPrice); err != nil || !p.IsPositive() {
			return fmt.Errorf("invalid paper price: %q", c.Trading.PaperPrice)
		}
	}

	if !strings.HasPrefix(c.Exchanges.Bybit.RestURL, "http://") && !strings.HasPrefix(c.Exchanges.Bybit.RestURL, "https://") {
		return fmt.Errorf("invalid Bybit REST URL: %s", c.Exchanges.Bybit.RestURL)
	}
	if !strings.HasPrefix(c.Exchanges.FTX.RestURL, "http://") && !strings.HasPrefix(c.Exchanges.FTX.RestURL, "https://") {
		return fmt.Errorf("invalid FTX REST URL: %s", c.Exchanges.FTX.RestURL)
	}
	if c.Prices.Stream && !strings.HasPrefix(c.Exchanges.FTX.WSURL, "ws://") && !strings.HasPrefix(c.Exchanges.FTX.WSURL, "wss://") {
		return fmt.Errorf("invalid FTX WS URL: %s", c.Exchanges.FTX.WSURL)
	}

	switch c.Storage.Driver {
	case "sqlite":
	case "postgres":
		if c.Storage.DatabaseURL == "" {
			return fmt.Errorf("storage.database_url is required for postgres")
		}
	default:
		return fmt.Errorf("unknown storage driver: %q", c.Storage.Driver)
	}

	if len(c.TargetMarkets()) == 0 {
		return fmt.Errorf("at least one target market is required")
	}
	if c.Prices.UpdateIntervalSec <= 0 || c.Prices.PurgeIntervalSec <= 0 {
		return fmt.Errorf("price job intervals must be positive")
	}
	if c.Prices.RetentionDays <= 0 {
		return fmt.Errorf("price retention must be positive")
	}

	return nil
}

// TargetMarkets splits the "|"-separated market list, dropping blanks.
func (c *Config) TargetMarkets() []string {
	var out []string
	for _, m := range strings.Split(c.Prices.TargetMarkets, "|") {
		if m = strings.TrimSpace(m); m != "" {
			out = append(out, m)
		}
	}
	return out
}

func (c *Config) Retention() time.Duration {
	return time.Duration(c.Prices.RetentionDays) * 24 * time.Hour
}

// overrideWithEnv applies environment variables on top of the file.
// Environment always wins over the config file.
func overrideWithEnv(cfg *Config) error {
	if cfg.Exchanges.Bybit.APISecret != "" || cfg.Exchanges.FTX.APISecret != "" {
		slog.Warn("API secrets found in config file; prefer CONVERT_BYBIT_API_SECRET and CONVERT_FTX_API_SECRET")
	}
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}
	return nil
}
