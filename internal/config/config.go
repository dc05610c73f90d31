// Package config loads the runtime configuration from a TOML file. A missing
// file yields the defaults; broker credentials never live here, only in the
// environment.
package config

import (
	"fmt"
	"os"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds everything tunable about a run except credentials.
type Config struct {
	StatePath string          `toml:"state_path"`
	LogLevel  string          `toml:"log_level"`
	Broker    BrokerConfig    `toml:"broker"`
	Journal   JournalConfig   `toml:"journal"`
	Bootstrap BootstrapConfig `toml:"bootstrap"`
}

type BrokerConfig struct {
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type JournalConfig struct {
	// DSN enables the Postgres run journal; empty disables it.
	DSN string `toml:"dsn"`
}

// BootstrapConfig applies only when the state file does not exist yet and a
// first-run state is seeded from the live account.
type BootstrapConfig struct {
	TargetInvestmentEquityRatio float64 `toml:"target_investment_equity_ratio"`
	HorizonDays                 int     `toml:"horizon_days"`
}

func Default() Config {
	return Config{
		StatePath: "state.json",
		LogLevel:  "info",
		Broker: BrokerConfig{
			BaseURL:        "https://paper-api.alpaca.markets",
			TimeoutSeconds: 30,
		},
		Bootstrap: BootstrapConfig{
			TargetInvestmentEquityRatio: 1.0,
			HorizonDays:                 365,
		},
	}
}

// Load reads the file at path over the defaults. A missing file is fine;
// a malformed one is not.
func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.StatePath == "" {
		return Config{}, fmt.Errorf("config %s: state_path must not be empty", path)
	}
	if cfg.Bootstrap.HorizonDays < 1 {
		return Config{}, fmt.Errorf("config %s: bootstrap.horizon_days must be at least 1", path)
	}
	if cfg.Bootstrap.TargetInvestmentEquityRatio <= 0 {
		return Config{}, fmt.Errorf("config %s: bootstrap.target_investment_equity_ratio must be > 0", path)
	}
	return cfg, nil
}
