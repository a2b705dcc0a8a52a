// Package storage persists tours, legs and the airport and aircraft
// reference tables in SQLite or PostgreSQL, and appends change history to
// ClickHouse.
package storage

import (
	"context"
	"fmt"

	"fstours/internal/tours"
)

// Record types shared with the tours package.
type (
	Tour    = tours.Tour
	Leg     = tours.Leg
	LegView = tours.LegView
)

// Backend is a record store that can also resolve reference lookups and
// bulk-load reference data.
type Backend interface {
	tours.Store
	tours.Resolver

	ReplaceAirports(ctx context.Context, airports []tours.Airport) error
	ReplaceAircraftTypes(ctx context.Context, types []tours.AircraftType) error
	Ping(ctx context.Context) error
	Close() error
}

// Config selects and configures the record store.
type Config struct {
	Driver     string // sqlite or postgres.
	SQLitePath string
	Postgres   PostgresConfig
}

// DefaultConfig returns a configuration with local development settings.
func DefaultConfig() Config {
	return Config{
		Driver:     "sqlite",
		SQLitePath: "./fstours.db",
		Postgres: PostgresConfig{
			Host:     "localhost",
			Port:     5432,
			Database: "fstours",
			User:     "fstours",
			Password: "fstours",
		},
	}
}

// Open opens the configured backend and makes sure its schema exists.
func Open(ctx context.Context, cfg Config) (Backend, error) {
	switch cfg.Driver {
	case "", "sqlite":
		db, err := OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("sqlite: %w", err)
		}
		return db, nil
	case "postgres":
		pg, err := OpenPostgres(ctx, cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		if err := pg.CreateSchema(ctx); err != nil {
			pg.Close()
			return nil, fmt.Errorf("postgres schema: %w", err)
		}
		return pg, nil
	default:
		return nil, fmt.Errorf("unknown driver %q", cfg.Driver)
	}
}
