package config

import (
	"fmt"
	"time"
)

type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	Reeval  ReevalConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port int
	// Token guards the mutating and export HTTP routes. Empty disables auth.
	Token string
}

type StorageConfig struct {
	DataDir    string
	MaxHistory int
}

type ReevalConfig struct {
	// Interval between re-evaluation passes, as a time.ParseDuration string.
	Interval string
	Workers  int
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4600,
		},
		Storage: StorageConfig{
			DataDir:    defaultDataDir(),
			MaxHistory: 5000,
		},
		Reeval: ReevalConfig{
			Interval: "24h",
			Workers:  4,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the JSON file backend at
// $XDG_CONFIG_HOME/adrpulse/config.json, then applies ADRPULSE_* environment
// overrides on top.
func Load() (Config, error) {
	return loadWith(newPlatformBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.Storage.MaxHistory <= 0 {
		return Config{}, fmt.Errorf("storage.max_history must be positive, got %d", cfg.Storage.MaxHistory)
	}
	if _, err := time.ParseDuration(cfg.Reeval.Interval); err != nil {
		return Config{}, fmt.Errorf("invalid reeval.interval %q: %w", cfg.Reeval.Interval, err)
	}

	return cfg, nil
}

// ReevalInterval returns the parsed re-evaluation interval. Load guarantees
// it parses.
func (c Config) ReevalInterval() time.Duration {
	d, err := time.ParseDuration(c.Reeval.Interval)
	if err != nil {
		return 24 * time.Hour
	}
	return d
}
