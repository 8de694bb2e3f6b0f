// Package config is the cupbot application config: the shared core sections
// plus database, tournament, verification and session settings.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/cupbot/core/config"
	coredatabase "github.com/m3rciful/cupbot/core/database"
)

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// DatabaseConfig selects the store implementation.
type DatabaseConfig struct {
	Driver              string `yaml:"driver" envconfig:"DB_DRIVER"`
	coredatabase.Config `yaml:",inline"`
}

// TournamentConfig holds the texts and the channel every participant must follow.
type TournamentConfig struct {
	Name string `yaml:"name" envconfig:"TOURNAMENT_NAME"`
	// Channel is an @username or a numeric chat id.
	Channel    string `yaml:"channel" envconfig:"TOURNAMENT_CHANNEL"`
	ChannelURL string `yaml:"channel_url" envconfig:"TOURNAMENT_CHANNEL_URL"`
	Info       string `yaml:"info"`
	FAQ        string `yaml:"faq"`
	// Timezone renders registration dates in the admin panel; empty means UTC.
	Timezone string `yaml:"timezone" envconfig:"TOURNAMENT_TIMEZONE"`

	loc *time.Location
}

// Location returns the resolved Timezone.
func (t TournamentConfig) Location() *time.Location {
	if t.loc == nil {
		return time.UTC
	}
	return t.loc
}

// VerificationConfig bounds roster lookups.
type VerificationConfig struct {
	TimeoutMS   int `yaml:"timeout_ms" envconfig:"VERIFY_TIMEOUT_MS"`
	Parallelism int `yaml:"parallelism" envconfig:"VERIFY_PARALLELISM"`
}

// Timeout returns the per-lookup timeout.
func (v VerificationConfig) Timeout() time.Duration {
	return time.Duration(v.TimeoutMS) * time.Millisecond
}

// SessionConfig controls conversation expiry.
type SessionConfig struct {
	IdleTTLMinutes int `yaml:"idle_ttl_minutes" envconfig:"SESSION_IDLE_TTL_MINUTES"`
}

// IdleTTL returns how long an untouched conversation survives.
func (s SessionConfig) IdleTTL() time.Duration {
	return time.Duration(s.IdleTTLMinutes) * time.Minute
}

// AppConfig is the full configuration file.
type AppConfig struct {
	coreconfig.Config `yaml:",inline"`

	Database     DatabaseConfig     `yaml:"database"`
	Tournament   TournamentConfig   `yaml:"tournament"`
	Verification VerificationConfig `yaml:"verification"`
	Session      SessionConfig      `yaml:"session"`
}

// CoreConfig implements cmd.ConfigCarrier.
func (c *AppConfig) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

const (
	defaultVerifyTimeoutMS = 5000
	defaultParallelism     = 4
	defaultIdleTTLMinutes  = 60
)

// Load reads the YAML file, applies env overrides and normalizes the result.
func Load(path string) (*AppConfig, error) {
	var cfg AppConfig
	if err := coreconfig.ReadFile(path, &cfg); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates the application sections and fills defaults.
func Normalize(cfg *AppConfig) error {
	if cfg == nil {
		return errors.New("nil config")
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return err
	}

	driver := strings.ToLower(strings.TrimSpace(cfg.Database.Driver))
	switch driver {
	case "", DriverPostgres:
		driver = DriverPostgres
		db := cfg.Database.Config
		if strings.TrimSpace(db.URL) == "" && (db.Host == "" || db.Name == "" || db.User == "") {
			return errors.New("database.url or database.host, database.name and database.user are required for the postgres driver")
		}
		if db.MaxConnections < 0 {
			return errors.New("database.max_connections must be >= 0")
		}
		if cfg.Database.Port == "" {
			cfg.Database.Port = "5432"
		}
	case DriverMemory:
	default:
		return fmt.Errorf("invalid database.driver %q; allowed: postgres, memory", cfg.Database.Driver)
	}
	cfg.Database.Driver = driver

	t := &cfg.Tournament
	t.Name = strings.TrimSpace(t.Name)
	t.Channel = strings.TrimSpace(t.Channel)
	if t.Channel == "" {
		return errors.New("tournament.channel is required")
	}
	if !strings.HasPrefix(t.Channel, "@") && !isChatID(t.Channel) {
		t.Channel = "@" + t.Channel
	}
	if t.ChannelURL == "" && strings.HasPrefix(t.Channel, "@") {
		t.ChannelURL = "https://t.me/" + strings.TrimPrefix(t.Channel, "@")
	}

	if tz := strings.TrimSpace(t.Timezone); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return fmt.Errorf("invalid tournament.timezone %q: %w", t.Timezone, err)
		}
		t.loc = loc
	}

	if cfg.Verification.TimeoutMS < 0 || cfg.Verification.Parallelism < 0 {
		return errors.New("verification settings must be >= 0")
	}
	if cfg.Verification.TimeoutMS == 0 {
		cfg.Verification.TimeoutMS = defaultVerifyTimeoutMS
	}
	if cfg.Verification.Parallelism == 0 {
		cfg.Verification.Parallelism = defaultParallelism
	}

	if cfg.Session.IdleTTLMinutes < 0 {
		return errors.New("session.idle_ttl_minutes must be >= 0")
	}
	if cfg.Session.IdleTTLMinutes == 0 {
		cfg.Session.IdleTTLMinutes = defaultIdleTTLMinutes
	}
	return nil
}

func isChatID(s string) bool {
	s = strings.TrimPrefix(s, "-")
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
