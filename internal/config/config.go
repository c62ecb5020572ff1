// Package config loads service configuration from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/govalues/money"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

type Config struct {
	HTTP     HTTPConfig
	Log      LogConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Events   EventsConfig

	ClosingSweepSchedule string `env:"CLOSING_SWEEP_SCHEDULE" env-default:"0 6 * * *"`
	Timezone             string `env:"TIMEZONE" env-default:"America/Sao_Paulo"`
	DefaultCurrency      string `env:"DEFAULT_CURRENCY" env-default:"BRL"`
	DevSeed              bool   `env:"DEV_SEED" env-default:"false"`
}

type HTTPConfig struct {
	Addr         string        `env:"HTTP_ADDR" env-default:":8080"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" env-default:"5s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" env-default:"10s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL" env-default:"info"`
	Format string `env:"LOG_FORMAT" env-default:"json"`
}

type DatabaseConfig struct {
	// URL selects the postgres store. SQLitePath selects sqlite when URL is empty.
	URL        string `env:"DATABASE_URL"`
	SQLitePath string `env:"SQLITE_PATH"`
}

type AuthConfig struct {
	JWTSecret   string `env:"JWT_HS256_SECRET"`
	JWTIssuer   string `env:"JWT_ISSUER"`
	JWTAudience string `env:"JWT_AUDIENCE"`
}

type EventsConfig struct {
	AMQPURL      string `env:"AMQP_URL"`
	AMQPExchange string `env:"AMQP_EXCHANGE" env-default:"groupledger.events"`
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}
	cfg.DefaultCurrency = strings.ToUpper(strings.TrimSpace(cfg.DefaultCurrency))
	cfg.Log.Format = strings.ToLower(cfg.Log.Format)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Store names the storage backend the configuration selects.
func (c *Config) Store() string {
	switch {
	case c.Database.URL != "":
		return "postgres"
	case c.Database.SQLitePath != "":
		return "sqlite"
	default:
		return "memory"
	}
}

// Location returns the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var problems []error
	if c.HTTP.Addr == "" {
		problems = append(problems, errors.New("HTTP_ADDR must not be empty"))
	}
	for name, d := range map[string]time.Duration{
		"HTTP_READ_TIMEOUT":  c.HTTP.ReadTimeout,
		"HTTP_WRITE_TIMEOUT": c.HTTP.WriteTimeout,
		"HTTP_IDLE_TIMEOUT":  c.HTTP.IdleTimeout,
	} {
		if d <= 0 {
			problems = append(problems, fmt.Errorf("%s must be positive, got %s", name, d))
		}
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		problems = append(problems, fmt.Errorf("invalid LOG_LEVEL %q", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text", "tint":
	default:
		problems = append(problems, fmt.Errorf("invalid LOG_FORMAT %q: must be json, text or tint", c.Log.Format))
	}
	if _, err := money.ParseCurr(c.DefaultCurrency); err != nil {
		problems = append(problems, fmt.Errorf("invalid DEFAULT_CURRENCY %q", c.DefaultCurrency))
	}
	if _, err := c.Location(); err != nil {
		problems = append(problems, fmt.Errorf("invalid TIMEZONE %q: %v", c.Timezone, err))
	}
	if c.ClosingSweepSchedule != "" {
		if _, err := cron.ParseStandard(c.ClosingSweepSchedule); err != nil {
			problems = append(problems, fmt.Errorf("invalid CLOSING_SWEEP_SCHEDULE %q: %v", c.ClosingSweepSchedule, err))
		}
	}
	if (c.Auth.JWTIssuer != "" || c.Auth.JWTAudience != "") && c.Auth.JWTSecret == "" {
		problems = append(problems, errors.New("JWT_ISSUER and JWT_AUDIENCE require JWT_HS256_SECRET"))
	}
	if c.Events.AMQPURL != "" && c.Events.AMQPExchange == "" {
		problems = append(problems, errors.New("AMQP_EXCHANGE must not be empty when AMQP_URL is set"))
	}
	if c.DevSeed && c.Store() == "postgres" {
		problems = append(problems, errors.New("DEV_SEED is only supported on the memory and sqlite stores"))
	}
	return errors.Join(problems...)
}
