package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() AppConfig {
	var c AppConfig
	c.Telegram.Token = "123:abc"
	c.Database.Driver = DriverMemory
	c.Tournament.Channel = "cup_news"
	return c
}

func TestNormalize(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*AppConfig)
		wantErr string
		check   func(*testing.T, *AppConfig)
	}{
		{
			name: "defaults",
			check: func(t *testing.T, c *AppConfig) {
				if c.Tournament.Channel != "@cup_news" || c.Tournament.ChannelURL != "https://t.me/cup_news" {
					t.Fatalf("channel = %q url = %q", c.Tournament.Channel, c.Tournament.ChannelURL)
				}
				if c.Verification.Timeout() != 5*time.Second || c.Verification.Parallelism != defaultParallelism {
					t.Fatalf("verification = %+v", c.Verification)
				}
				if c.Session.IdleTTL() != time.Hour {
					t.Fatalf("idle ttl = %s", c.Session.IdleTTL())
				}
			},
		},
		{
			name:   "numeric channel kept",
			mutate: func(c *AppConfig) { c.Tournament.Channel = "-1001234" },
			check: func(t *testing.T, c *AppConfig) {
				if c.Tournament.Channel != "-1001234" || c.Tournament.ChannelURL != "" {
					t.Fatalf("channel = %q url = %q", c.Tournament.Channel, c.Tournament.ChannelURL)
				}
			},
		},
		{
			name: "postgres default port",
			mutate: func(c *AppConfig) {
				c.Database.Driver = ""
				c.Database.Host, c.Database.Name, c.Database.User = "db", "cup", "cup"
			},
			check: func(t *testing.T, c *AppConfig) {
				if c.Database.Driver != DriverPostgres || c.Database.Port != "5432" {
					t.Fatalf("database = %+v", c.Database)
				}
			},
		},
		{name: "postgres without host", mutate: func(c *AppConfig) { c.Database.Driver = "postgres" }, wantErr: "database.url"},
		{name: "unknown driver", mutate: func(c *AppConfig) { c.Database.Driver = "sqlite" }, wantErr: "database.driver"},
		{name: "missing channel", mutate: func(c *AppConfig) { c.Tournament.Channel = " " }, wantErr: "tournament.channel"},
		{
			name:   "timezone",
			mutate: func(c *AppConfig) { c.Tournament.Timezone = "UTC" },
			check: func(t *testing.T, c *AppConfig) {
				if c.Tournament.Location() != time.UTC {
					t.Fatalf("location = %v", c.Tournament.Location())
				}
			},
		},
		{name: "bad timezone", mutate: func(c *AppConfig) { c.Tournament.Timezone = "Mars/Olympus" }, wantErr: "timezone"},
		{name: "negative ttl", mutate: func(c *AppConfig) { c.Session.IdleTTLMinutes = -1 }, wantErr: "idle_ttl"},
		{name: "core validation", mutate: func(c *AppConfig) { c.Telegram.Token = "" }, wantErr: "token"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			if tc.mutate != nil {
				tc.mutate(&cfg)
			}
			err := Normalize(&cfg)
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.check != nil {
				tc.check(t, &cfg)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
telegram:
  token: "from-file"
  admin_id: 42
database:
  driver: memory
tournament:
  name: Spring Cup
  channel: "@spring_cup"
  info: "Весенний кубок"
verification:
  parallelism: 2
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("BOT_TOKEN", "from-env")
	t.Setenv("SESSION_IDLE_TTL_MINUTES", "15")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.CoreConfig().Telegram.Token != "from-env" || cfg.Telegram.AdminID != 42 {
		t.Fatalf("telegram = %+v", cfg.Telegram)
	}
	if cfg.Tournament.Name != "Spring Cup" || cfg.Verification.Parallelism != 2 || cfg.Session.IdleTTLMinutes != 15 {
		t.Fatalf("app sections = %+v %+v %+v", cfg.Tournament, cfg.Verification, cfg.Session)
	}
}
