// Package config loads fstours-api settings from defaults, an optional YAML
// file and FSTOURS_* environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "FSTOURS_"
	// PathEnvVar names the config file when no path is passed to Load.
	PathEnvVar = "FSTOURS_CONFIG"
	// DefaultPath is used when it exists and nothing else names a file.
	DefaultPath = "config.yaml"
)

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Auth     AuthConfig     `koanf:"auth"`
	Legs     LegsConfig     `koanf:"legs"`
	Events   EventsConfig   `koanf:"events"`
	SimBrief SimBriefConfig `koanf:"simbrief"`
	Logging  LoggingConfig  `koanf:"logging"`
}

type ServerConfig struct {
	Port            int           `koanf:"port"`
	RequestTimeout  time.Duration `koanf:"request_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	// RateLimit is the number of mutating requests allowed per IP per minute.
	// Zero disables limiting.
	RateLimit int `koanf:"rate_limit"`
}

type DatabaseConfig struct {
	Driver     string `koanf:"driver"` // sqlite or postgres.
	SQLitePath string `koanf:"sqlite_path"`
	PGHost     string `koanf:"pg_host"`
	PGPort     int    `koanf:"pg_port"`
	PGDatabase string `koanf:"pg_database"`
	PGUser     string `koanf:"pg_user"`
	PGPassword string `koanf:"pg_password"`
}

type AuthConfig struct {
	// Token is the shared secret expected in "Authorization: Bearer".
	Token string `koanf:"token"`
}

type LegsConfig struct {
	// RequireTour rejects leg writes that reference a missing tour.
	RequireTour bool `koanf:"require_tour"`
}

type EventsConfig struct {
	NATSURL            string `koanf:"nats_url"`
	NATSPrefix         string `koanf:"nats_prefix"`
	ClickHouseHost     string `koanf:"clickhouse_host"`
	ClickHousePort     int    `koanf:"clickhouse_port"`
	ClickHouseDatabase string `koanf:"clickhouse_database"`
	ClickHouseUser     string `koanf:"clickhouse_user"`
	ClickHousePassword string `koanf:"clickhouse_password"`
}

type SimBriefConfig struct {
	BaseURL  string        `koanf:"base_url"`
	Username string        `koanf:"username"`
	Timeout  time.Duration `koanf:"timeout"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimit:       60,
		},
		Database: DatabaseConfig{
			Driver:     "sqlite",
			SQLitePath: "./fstours.db",
			PGHost:     "localhost",
			PGPort:     5432,
			PGDatabase: "fstours",
			PGUser:     "fstours",
		},
		Events: EventsConfig{
			NATSPrefix:         "fstours",
			ClickHousePort:     9000,
			ClickHouseDatabase: "fstours",
			ClickHouseUser:     "default",
		},
		SimBrief: SimBriefConfig{
			BaseURL: "https://www.simbrief.com",
			Timeout: 15 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration. path may be empty, in which case
// FSTOURS_CONFIG and then ./config.yaml are tried.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path = findFile(path); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func findFile(path string) string {
	if path != "" {
		return path
	}
	if p := os.Getenv(PathEnvVar); p != "" {
		return p
	}
	if _, err := os.Stat(DefaultPath); err == nil {
		return DefaultPath
	}
	return ""
}

// envKey maps FSTOURS_DATABASE_PG_HOST to database.pg_host: the first
// underscore after the prefix separates section from key.
func envKey(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	if key == "config" {
		return ""
	}
	return strings.Replace(key, "_", ".", 1)
}

// Validate checks the loaded configuration for values the server cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Server.RequestTimeout <= 0 {
		errs = append(errs, errors.New("server.request_timeout must be positive"))
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, errors.New("server.rate_limit must not be negative"))
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.SQLitePath == "" {
			errs = append(errs, errors.New("database.sqlite_path is required for sqlite"))
		}
	case "postgres":
		if c.Database.PGHost == "" || c.Database.PGDatabase == "" {
			errs = append(errs, errors.New("database.pg_host and database.pg_database are required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("database.driver %q must be sqlite or postgres", c.Database.Driver))
	}

	if c.SimBrief.Timeout <= 0 {
		errs = append(errs, errors.New("simbrief.timeout must be positive"))
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q must be json or console", c.Logging.Format))
	}

	return errors.Join(errs...)
}
