package infra

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// SecretConfig matches the structure of secrets/demo.yaml and secrets/real.yaml.
type SecretConfig struct {
	Exchanges struct {
		Bybit struct {
			APIKey    string `yaml:"api_key"`
			APISecret string `yaml:"api_secret"`
		} `yaml:"bybit"`
		FTX struct {
			APIKey     string `yaml:"api_key"`
			APISecret  string `yaml:"api_secret"`
			SubAccount string `yaml:"sub_account"`
		} `yaml:"ftx"`
	} `yaml:"exchanges"`
}

// LoadSecretConfig loads API keys from a separate yaml file.
func LoadSecretConfig(path string) (*SecretConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret config: %w", err)
	}

	var cfg SecretConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse secret config: %w", err)
	}

	return &cfg, nil
}

// SecretPath returns secrets/<mode>.yaml next to the config directory.
func SecretPath(mode string) string {
	return filepath.Join("secrets", strings.ToLower(mode)+".yaml")
}

// ApplySecrets fills keys still empty after env overrides from the mode's
// secrets file. A missing file is not an error.
func (c *Config) ApplySecrets(path string) error {
	s, err := LoadSecretConfig(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	fill(&c.Exchanges.Bybit.APIKey, s.Exchanges.Bybit.APIKey)
	fill(&c.Exchanges.Bybit.APISecret, s.Exchanges.Bybit.APISecret)
	fill(&c.Exchanges.FTX.APIKey, s.Exchanges.FTX.APIKey)
	fill(&c.Exchanges.FTX.APISecret, s.Exchanges.FTX.APISecret)
	fill(&c.Exchanges.FTX.SubAccount, s.Exchanges.FTX.SubAccount)
	return nil
}

func fill(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}
