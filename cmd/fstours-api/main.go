// Package main provides fstours-api, the REST server for flight tours and
// their legs.
//
// Usage:
//
//	fstours-api [options]
//
// Options:
//
//	-config FILE            YAML config file (default: $FSTOURS_CONFIG or ./config.yaml)
//	-import-airports FILE   Replace the airport reference table from CSV and exit
//	-import-aircraft FILE   Replace the aircraft reference table from CSV and exit
//
// Every setting can be overridden with FSTOURS_<SECTION>_<KEY>, for example
// FSTOURS_DATABASE_DRIVER=postgres or FSTOURS_AUTH_TOKEN=secret.
//
// API Endpoints:
//
//	GET    /health
//	GET    /tours, /tours/{id}, /tours/{id}/legs, /tours/{id}/history
//	POST   /tours              (token)
//	PUT    /tours/{id}         (token)
//	DELETE /tours/{id}         (token)
//	GET    /legs, /legs/{id}, /legs/{id}/history
//	POST   /legs               (token)
//	PUT    /legs/{id}          (token)
//	DELETE /legs/{id}          (token)
//
// Authentication:
//
//	Mutating requests must send "Authorization: Bearer <auth.token>". With no
//	token configured the API is read-only.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"fstours/internal/api"
	"fstours/internal/auth"
	"fstours/internal/config"
	"fstours/internal/events"
	"fstours/internal/logging"
	"fstours/internal/storage"
	"fstours/internal/tours"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	importAirports := flag.String("import-airports", "", "CSV file to load into the airports table, then exit")
	importAircraft := flag.String("import-aircraft", "", "CSV file to load into the aircraft table, then exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := storage.Open(ctx, storage.Config{
		Driver:     cfg.Database.Driver,
		SQLitePath: cfg.Database.SQLitePath,
		Postgres: storage.PostgresConfig{
			Host:     cfg.Database.PGHost,
			Port:     cfg.Database.PGPort,
			Database: cfg.Database.PGDatabase,
			User:     cfg.Database.PGUser,
			Password: cfg.Database.PGPassword,
		},
	})
	if err != nil {
		logging.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("failed to open database")
	}
	defer func() { _ = db.Close() }()

	if *importAirports != "" || *importAircraft != "" {
		if err := importReferenceData(ctx, db, *importAirports, *importAircraft); err != nil {
			logging.Error().Err(err).Msg("reference data import failed")
			_ = db.Close()
			os.Exit(1)
		}
		return
	}

	publishers, history, closeEvents := openEventSinks(ctx, cfg.Events)
	defer closeEvents()

	svc := tours.NewService(db, db,
		tours.WithPublisher(publishers),
		tours.WithRequireTour(cfg.Legs.RequireTour),
	)

	var checker auth.Checker
	if cfg.Auth.Token != "" {
		checker = auth.StaticToken(cfg.Auth.Token)
	} else {
		logging.Warn().Msg("auth.token is not set, API is read-only")
	}

	opts := []api.Option{api.WithPinger(db)}
	if history != nil {
		opts = append(opts, api.WithHistory(history))
	}

	server := api.NewServer(svc, checker, api.Config{
		Port:            cfg.Server.Port,
		RequestTimeout:  cfg.Server.RequestTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		RateLimit:       cfg.Server.RateLimit,
	}, opts...)

	if err := server.Run(ctx); err != nil {
		logging.Error().Err(err).Msg("server error")
		os.Exit(1)
	}
}

func importReferenceData(ctx context.Context, db storage.Backend, airports, aircraft string) error {
	if airports != "" {
		n, err := storage.ImportAirportsFile(ctx, db, airports)
		if err != nil {
			return err
		}
		logging.Info().Int("rows", n).Str("file", airports).Msg("imported airports")
	}
	if aircraft != "" {
		n, err := storage.ImportAircraftFile(ctx, db, aircraft)
		if err != nil {
			return err
		}
		logging.Info().Int("rows", n).Str("file", aircraft).Msg("imported aircraft types")
	}
	return nil
}

// openEventSinks connects the configured change-event sinks. A sink that
// cannot be reached is logged and skipped; the API runs without it.
func openEventSinks(ctx context.Context, cfg config.EventsConfig) (events.Publisher, api.HistoryReader, func()) {
	var (
		fanout  events.Fanout
		history api.HistoryReader
		closers []func()
	)

	if cfg.NATSURL != "" {
		nc, err := events.ConnectNATS(cfg.NATSURL, cfg.NATSPrefix)
		if err != nil {
			logging.Warn().Err(err).Str("url", cfg.NATSURL).Msg("NATS events disabled")
		} else {
			fanout = append(fanout, nc)
			closers = append(closers, func() { _ = nc.Close() })
			logging.Info().Str("url", cfg.NATSURL).Str("prefix", cfg.NATSPrefix).Msg("publishing events to NATS")
		}
	}

	if cfg.ClickHouseHost != "" {
		ch, err := storage.OpenClickHouse(ctx, storage.ClickHouseConfig{
			Host:     cfg.ClickHouseHost,
			Port:     cfg.ClickHousePort,
			Database: cfg.ClickHouseDatabase,
			User:     cfg.ClickHouseUser,
			Password: cfg.ClickHousePassword,
		})
		if err == nil {
			err = ch.CreateSchema(ctx)
			if err != nil {
				_ = ch.Close()
			}
		}
		if err != nil {
			logging.Warn().Err(err).Str("host", cfg.ClickHouseHost).Msg("ClickHouse history disabled")
		} else {
			fanout = append(fanout, ch)
			history = ch
			closers = append(closers, func() { _ = ch.Close() })
			logging.Info().Str("host", cfg.ClickHouseHost).Msg("recording history in ClickHouse")
		}
	}

	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}
	if len(fanout) == 0 {
		return events.Nop{}, history, closeAll
	}
	return fanout, history, closeAll
}
