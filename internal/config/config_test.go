package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

// unset clears k for the duration of the test so cleanenv falls back to its default.
func unset(t *testing.T, k string) {
	t.Helper()
	t.Setenv(k, "")
	os.Unsetenv(k)
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which requires Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatalf("restore Chdir: %v", err)
		}
	})
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	for _, k := range []string{
		"HTTP_ADDR", "HTTP_READ_TIMEOUT", "HTTP_WRITE_TIMEOUT", "HTTP_IDLE_TIMEOUT",
		"DATABASE_URL", "SQLITE_PATH", "LOG_FORMAT", "LOG_LEVEL", "CLOSING_SWEEP_SCHEDULE",
		"AMQP_URL", "AMQP_EXCHANGE", "JWT_HS256_SECRET", "JWT_ISSUER", "JWT_AUDIENCE", "DEV_SEED",
	} {
		unset(t, k)
	}
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("DEFAULT_CURRENCY", "brl")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.ReadTimeout != 5*time.Second || cfg.HTTP.IdleTimeout != 60*time.Second {
		t.Errorf("timeouts = %+v", cfg.HTTP)
	}
	if cfg.DefaultCurrency != "BRL" {
		t.Errorf("currency = %q", cfg.DefaultCurrency)
	}
	if cfg.Events.AMQPExchange != "groupledger.events" {
		t.Errorf("exchange = %q", cfg.Events.AMQPExchange)
	}
	if cfg.Store() != "memory" {
		t.Errorf("store = %q, want memory", cfg.Store())
	}
}

func valid() Config {
	return Config{
		HTTP:                 HTTPConfig{Addr: ":8080", ReadTimeout: time.Second, WriteTimeout: time.Second, IdleTimeout: time.Second},
		Log:                  LogConfig{Level: "info", Format: "json"},
		Events:               EventsConfig{AMQPExchange: "x"},
		ClosingSweepSchedule: "0 6 * * *",
		Timezone:             "UTC",
		DefaultCurrency:      "BRL",
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"ok", func(*Config) {}, ""},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "LOG_FORMAT"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "LOG_LEVEL"},
		{"bad currency", func(c *Config) { c.DefaultCurrency = "NOPE" }, "DEFAULT_CURRENCY"},
		{"bad timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }, "TIMEZONE"},
		{"bad schedule", func(c *Config) { c.ClosingSweepSchedule = "every day" }, "CLOSING_SWEEP_SCHEDULE"},
		{"empty schedule disables", func(c *Config) { c.ClosingSweepSchedule = "" }, ""},
		{"issuer without secret", func(c *Config) { c.Auth.JWTIssuer = "me" }, "JWT_HS256_SECRET"},
		{"zero timeout", func(c *Config) { c.HTTP.WriteTimeout = 0 }, "HTTP_WRITE_TIMEOUT"},
		{"seed on postgres", func(c *Config) { c.DevSeed = true; c.Database.URL = "postgres://x" }, "DEV_SEED"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := valid()
			tc.mutate(&c)
			err := c.Validate()
			if tc.want == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("got %v, want mention of %s", err, tc.want)
			}
		})
	}
}

func TestValidateAggregates(t *testing.T) {
	c := valid()
	c.Log.Format = "xml"
	c.DefaultCurrency = "NOPE"
	err := c.Validate()
	if err == nil || !strings.Contains(err.Error(), "LOG_FORMAT") || !strings.Contains(err.Error(), "DEFAULT_CURRENCY") {
		t.Errorf("expected both problems, got %v", err)
	}
}

func TestStoreSelection(t *testing.T) {
	c := valid()
	c.Database.SQLitePath = "/tmp/x.db"
	if c.Store() != "sqlite" {
		t.Errorf("store = %s, want sqlite", c.Store())
	}
	c.Database.URL = "postgres://x"
	if c.Store() != "postgres" {
		t.Errorf("store = %s, want postgres", c.Store())
	}
}
