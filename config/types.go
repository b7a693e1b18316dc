package config

import (
	"fmt"
	"time"

	"taskmill/journal"
	"taskmill/scheduler"
	logx "taskmill/pkg/logx"
)

// Config is the on-disk configuration schema (YAML or JSON).
//
// All durations are Go duration strings (e.g. "100ms", "10s", "1m").
type Config struct {
	Logging   LoggingConfig   `json:"logging"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Journal   *JournalConfig  `json:"journal,omitempty"`
}

type LoggingConfig struct {
	Level   string        `json:"level"`
	Console bool          `json:"console"`
	File    LoggingFile   `json:"file"`
	Mirror  LoggingMirror `json:"mirror"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type LoggingMirror struct {
	Enabled    bool   `json:"enabled"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// SchedulerConfig controls dependency polling and cron evaluation.
type SchedulerConfig struct {
	// PollInterval is the dependency re-check cadence. Defaults to "100ms".
	PollInterval string `json:"poll_interval,omitempty"`

	// Trigger timezone for cron schedules (IANA name).
	Timezone string `json:"timezone,omitempty"`
}

// JournalConfig controls the optional run-history store.
//
// Example:
//
//	"journal": { "driver": "sqlite", "path": "./taskmill.db", "max_rows": 10000 }
type JournalConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
	MaxRows     int    `json:"max_rows,omitempty"`
	RingSize    int    `json:"ring_size,omitempty"`
}

// SchedulerSettings maps the file schema onto scheduler.Config.
func (c *Config) SchedulerSettings() (scheduler.Config, error) {
	poll, err := ParseDurationOrDefault("scheduler.poll_interval", c.Scheduler.PollInterval, 100*time.Millisecond)
	if err != nil {
		return scheduler.Config{}, err
	}
	return scheduler.Config{PollInterval: poll, Timezone: c.Scheduler.Timezone}, nil
}

// JournalSettings maps the file schema onto journal.Config.
// A nil journal section disables persistence.
func (c *Config) JournalSettings() (journal.Config, error) {
	if c.Journal == nil {
		return journal.Config{}, nil
	}
	busy, err := ParseDurationField("journal.busy_timeout", c.Journal.BusyTimeout)
	if err != nil {
		return journal.Config{}, err
	}
	return journal.Config{
		Driver:      c.Journal.Driver,
		Path:        c.Journal.Path,
		BusyTimeout: busy,
		MaxRows:     c.Journal.MaxRows,
		RingSize:    c.Journal.RingSize,
	}, nil
}

// LoggingSettings maps the file schema onto logx.Config.
func (c *Config) LoggingSettings() logx.Config {
	return logx.Config{
		Level:   c.Logging.Level,
		Console: c.Logging.Console,
		File: logx.FileConfig{
			Enabled: c.Logging.File.Enabled,
			Path:    c.Logging.File.Path,
		},
		Mirror: logx.MirrorConfig{
			Enabled:    c.Logging.Mirror.Enabled,
			MinLevel:   c.Logging.Mirror.MinLevel,
			RatePerSec: c.Logging.Mirror.RatePerSec,
		},
	}
}

// Validate checks everything that can fail without side effects, so Watch
// can reject a bad file before committing it.
func (c *Config) Validate() error {
	if _, err := c.SchedulerSettings(); err != nil {
		return err
	}
	if _, err := c.JournalSettings(); err != nil {
		return err
	}
	if c.Journal != nil {
		switch c.Journal.Driver {
		case "", "none", "file", "sqlite", "sqlite3":
		default:
			return fmt.Errorf("journal.driver: unknown driver %q", c.Journal.Driver)
		}
	}
	return nil
}
