// Package config loads runtime settings from the environment.
package config

import (
	"context"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config is the process configuration. Every knob has a sensible
// default so a bare `server` invocation works for local development.
type Config struct {
	ListenAddr string `env:"PUNCHCLOCK_LISTEN_ADDR, default=0.0.0.0:8080"`
	DBPath     string `env:"PUNCHCLOCK_DB_PATH, default=punchclock.db"`

	// DirectoryFile points at a JSON directory snapshot. Empty means the
	// server starts with an empty directory.
	DirectoryFile string `env:"PUNCHCLOCK_DIRECTORY_FILE"`

	DirectoryTTL   time.Duration `env:"PUNCHCLOCK_DIRECTORY_TTL, default=5m"`
	ResultCacheTTL time.Duration `env:"PUNCHCLOCK_RESULT_TTL, default=30s"`

	OvertimeMultiplier  float64 `env:"PUNCHCLOCK_OVERTIME_MULTIPLIER, default=1.5"`
	WeeklyOvertimeHours float64 `env:"PUNCHCLOCK_WEEKLY_OVERTIME_HOURS, default=40"`

	ShiftGuardEnabled   bool          `env:"PUNCHCLOCK_SHIFT_GUARD_ENABLED, default=true"`
	ShiftGuardThreshold float64       `env:"PUNCHCLOCK_SHIFT_GUARD_HOURS, default=15"`
	ShiftGuardInterval  time.Duration `env:"PUNCHCLOCK_SHIFT_GUARD_INTERVAL, default=1h"`
}

// Load reads the configuration from the environment.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
