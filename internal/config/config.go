// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New() builds a Config with defaults; Load layers file and env on top.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"runtime"
	"strings"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// StartingBudget is the allowance every new user starts with.
	StartingBudget int64 `koanf:"starting_budget"`

	// RosterSize caps the number of players on a team.
	RosterSize int `koanf:"roster_size"`

	// ValueFloor is the price of a player with no measurable performance.
	ValueFloor int64 `koanf:"value_floor"`

	// ValueStep is the rounding granularity for player values.
	ValueStep int64 `koanf:"value_step"`

	// LockValues keeps a player's first stored value for good.
	LockValues bool `koanf:"lock_values"`

	// ValueOverrides pins the value of specific players by name.
	ValueOverrides map[string]int64 `koanf:"value_overrides"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// ImportFile is an optional seed CSV loaded at startup.
	ImportFile string `koanf:"import_file"`

	// ImportWorkers sets the number of import workers.
	ImportWorkers int `koanf:"import_workers"`

	// ImportQueueSize bounds the in-memory import queue.
	ImportQueueSize int `koanf:"import_queue_size"`

	// IdempotencyCacheSize bounds the remembered Idempotency-Key values.
	IdempotencyCacheSize int `koanf:"idempotency_cache_size"`

	// LedgerMaxAttempts bounds optimistic retries of a roster mutation.
	LedgerMaxAttempts int `koanf:"ledger_max_attempts"`

	// DatabaseURL selects the Postgres store; empty keeps everything in memory.
	DatabaseURL string `koanf:"database_url"`

	// RedisURL enables cross-replica team-update fan-out.
	RedisURL string `koanf:"redis_url"`

	// AdminToken guards administrative routes; empty disables them.
	AdminToken string `koanf:"admin_token"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		LogFormat:            "text",
		Addr:                 ":9080",
		StartingBudget:       9_000_000,
		RosterSize:           11,
		ValueFloor:           100_000,
		ValueStep:            50_000,
		LockValues:           true,
		ValueOverrides:       map[string]int64{},
		MaxLeaderboardLimit:  100,
		ImportWorkers:        runtime.NumCPU(),
		ImportQueueSize:      10_000,
		IdempotencyCacheSize: 50_000,
		LedgerMaxAttempts:    5,
	}
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.StartingBudget <= 0:
		return fmt.Errorf("%w: starting_budget must be positive", ErrInvalidConfig)
	case c.RosterSize < 1:
		return fmt.Errorf("%w: roster_size must be at least 1", ErrInvalidConfig)
	case c.ValueStep <= 0:
		return fmt.Errorf("%w: value_step must be positive", ErrInvalidConfig)
	case c.ValueFloor <= 0 || c.ValueFloor%c.ValueStep != 0:
		return fmt.Errorf("%w: value_floor must be a positive multiple of value_step", ErrInvalidConfig)
	case c.MaxLeaderboardLimit < 1:
		return fmt.Errorf("%w: max_leaderboard_limit must be at least 1", ErrInvalidConfig)
	case c.LedgerMaxAttempts < 1:
		return fmt.Errorf("%w: ledger_max_attempts must be at least 1", ErrInvalidConfig)
	}
	for name, amount := range c.ValueOverrides {
		if amount <= 0 || amount%c.ValueStep != 0 {
			return fmt.Errorf("%w: value override for %q must be a positive multiple of %d", ErrInvalidConfig, name, c.ValueStep)
		}
	}
	return nil
}
