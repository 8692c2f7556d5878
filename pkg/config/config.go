// Package config loads the synchronization and ticking tuning shared by the
// binaries.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// SyncConfig tunes how session views stay fresh and how the ticking owner
// runs.
type SyncConfig struct {
	PollInterval     time.Duration `env:"FACILITATOR_POLL_INTERVAL" envDefault:"1s"`
	TickInterval     time.Duration `env:"FACILITATOR_TICK_INTERVAL" envDefault:"1s"`
	WatchDebounce    time.Duration `env:"FACILITATOR_WATCH_DEBOUNCE" envDefault:"100ms"`
	LeaseTTL         time.Duration `env:"FACILITATOR_LEASE_TTL" envDefault:"3s"`
	JoinCodeAttempts int           `env:"FACILITATOR_JOIN_CODE_ATTEMPTS" envDefault:"10"`
}

// Load reads a .env file when present, then parses the environment.
func Load() (*SyncConfig, error) {
	_ = godotenv.Load()

	return Parse()
}

// Parse reads SyncConfig from the environment only.
func Parse() (*SyncConfig, error) {
	var cfg SyncConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *SyncConfig) validate() error {
	switch {
	case c.PollInterval <= 0:
		return fmt.Errorf("FACILITATOR_POLL_INTERVAL must be positive, got %s", c.PollInterval)
	case c.TickInterval <= 0:
		return fmt.Errorf("FACILITATOR_TICK_INTERVAL must be positive, got %s", c.TickInterval)
	case c.WatchDebounce < 0:
		return fmt.Errorf("FACILITATOR_WATCH_DEBOUNCE must not be negative, got %s", c.WatchDebounce)
	case c.LeaseTTL <= c.TickInterval:
		return fmt.Errorf("FACILITATOR_LEASE_TTL (%s) must exceed the tick interval (%s)", c.LeaseTTL, c.TickInterval)
	case c.JoinCodeAttempts < 1:
		return fmt.Errorf("FACILITATOR_JOIN_CODE_ATTEMPTS must be at least 1, got %d", c.JoinCodeAttempts)
	}

	return nil
}
