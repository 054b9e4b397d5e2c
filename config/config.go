// Package config loads bot configuration from a YAML file with defaults.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config is the resolved bot configuration.
type Config struct {
	DefaultLeverage int
	DefaultRisk     decimal.Decimal
	MaxLeverage     int
	MaxRisk         decimal.Decimal
	Testnet         bool
	WalDir          string
	ListenAddr      string
	PollTimeout     time.Duration
}

// ConfigTmp mirrors the YAML layout. Numeric values are strings to keep
// decimal precision intact through the YAML round trip.
type ConfigTmp struct {
	DefaultLeverage int           `yaml:"default_leverage,omitempty"`
	DefaultRiskStr  string        `yaml:"default_risk,omitempty"`
	MaxLeverage     int           `yaml:"max_leverage,omitempty"`
	MaxRiskStr      string        `yaml:"max_risk,omitempty"`
	Testnet         bool          `yaml:"testnet,omitempty"`
	WalDir          string        `yaml:"wal_dir,omitempty"`
	ListenAddr      string        `yaml:"listen_addr,omitempty"`
	PollTimeout     time.Duration `yaml:"poll_timeout,omitempty"`
}

// Default returns the configuration used when no file is provided.
func Default() *Config {
	return &Config{
		DefaultLeverage: 10,
		DefaultRisk:     decimal.NewFromFloat(5.0),
		MaxLeverage:     50,
		MaxRisk:         decimal.NewFromFloat(10.0),
		WalDir:          "./wal",
		ListenAddr:      "localhost:8088",
		PollTimeout:     30 * time.Second,
	}
}

// Load reads a YAML config file, falling back to defaults for omitted fields.
// An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	f, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var tmp ConfigTmp
	if err := yaml.Unmarshal(f, &tmp); err != nil {
		return nil, err
	}

	if tmp.DefaultLeverage != 0 {
		cfg.DefaultLeverage = tmp.DefaultLeverage
	}
	if tmp.MaxLeverage != 0 {
		cfg.MaxLeverage = tmp.MaxLeverage
	}
	if tmp.DefaultRiskStr != "" {
		risk, err := decimal.NewFromString(tmp.DefaultRiskStr)
		if err != nil {
			return nil, fmt.Errorf("incorrect 'default_risk' param in yaml config (must be a decimal), error: %w", err)
		}
		cfg.DefaultRisk = risk
	}
	if tmp.MaxRiskStr != "" {
		risk, err := decimal.NewFromString(tmp.MaxRiskStr)
		if err != nil {
			return nil, fmt.Errorf("incorrect 'max_risk' param in yaml config (must be a decimal), error: %w", err)
		}
		cfg.MaxRisk = risk
	}
	if tmp.WalDir != "" {
		cfg.WalDir = tmp.WalDir
	}
	if tmp.ListenAddr != "" {
		cfg.ListenAddr = tmp.ListenAddr
	}
	if tmp.PollTimeout != 0 {
		cfg.PollTimeout = tmp.PollTimeout
	}
	cfg.Testnet = tmp.Testnet

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.DefaultLeverage <= 0 {
		return fmt.Errorf("invalid 'default_leverage': %d", c.DefaultLeverage)
	}
	if c.DefaultLeverage > c.MaxLeverage {
		return fmt.Errorf("'default_leverage' %d exceeds 'max_leverage' %d", c.DefaultLeverage, c.MaxLeverage)
	}
	if !c.DefaultRisk.IsPositive() {
		return fmt.Errorf("invalid 'default_risk': %s", c.DefaultRisk)
	}
	if c.DefaultRisk.GreaterThan(c.MaxRisk) {
		return fmt.Errorf("'default_risk' %s exceeds 'max_risk' %s", c.DefaultRisk, c.MaxRisk)
	}
	return nil
}
