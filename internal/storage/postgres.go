package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"fstours/internal/tours"
)

// SQLSTATE codes translated into tours errors.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// DSN returns the connection URL for the settings.
func (c PostgresConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + strconv.Itoa(c.Port),
		Path:     "/" + c.Database,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// PostgresDB wraps a PostgreSQL connection pool holding tours, legs and
// reference data.
type PostgresDB struct {
	pool *pgxpool.Pool
}

// OpenPostgres opens a connection pool to PostgreSQL.
func OpenPostgres(ctx context.Context, cfg PostgresConfig) (*PostgresDB, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	// Test the connection.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresDB{pool: pool}, nil
}

// Close closes the PostgreSQL connection pool. The error is always nil; it
// satisfies Backend.
func (d *PostgresDB) Close() error {
	d.pool.Close()
	return nil
}

// Ping checks the server is reachable.
func (d *PostgresDB) Ping(ctx context.Context) error {
	return d.pool.Ping(ctx)
}

// CreateSchema creates the PostgreSQL tables. Unlike SQLite, the tour_id
// foreign key is enforced here.
func (d *PostgresDB) CreateSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS tours (
		tour_id           TEXT PRIMARY KEY,
		tour_description  TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tour_legs (
		id           BIGSERIAL PRIMARY KEY,
		tour_id      TEXT NOT NULL REFERENCES tours(tour_id),
		origin       TEXT NOT NULL,
		destination  TEXT NOT NULL,
		aircraft     TEXT,
		route        TEXT,
		comments     TEXT,
		flight_date  DATE,
		link1        TEXT,
		link2        TEXT,
		link3        TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_tour_legs_tour ON tour_legs(tour_id);

	-- Reference data. Codes are not unique; seq keeps first-row-wins lookups stable.
	CREATE TABLE IF NOT EXISTS airports (
		seq        BIGSERIAL PRIMARY KEY,
		icao_code  TEXT NOT NULL,
		latitude   DOUBLE PRECISION,
		longitude  DOUBLE PRECISION,
		name       TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_airports_icao ON airports(icao_code);

	CREATE TABLE IF NOT EXISTS aircraft_types (
		seq        BIGSERIAL PRIMARY KEY,
		icao_code  TEXT NOT NULL,
		model      TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_aircraft_types_icao ON aircraft_types(icao_code);
	`

	if _, err := d.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// ListTours returns all tours ordered by id.
func (d *PostgresDB) ListTours(ctx context.Context) ([]Tour, error) {
	rows, err := d.pool.Query(ctx, `SELECT tour_id, tour_description FROM tours ORDER BY tour_id`)
	if err != nil {
		return nil, fmt.Errorf("list tours: %w", err)
	}
	defer rows.Close()

	var out []Tour
	for rows.Next() {
		var t Tour
		if err := rows.Scan(&t.ID, &t.Description); err != nil {
			return nil, fmt.Errorf("scan tour: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetTour returns one tour, or nil if it does not exist.
func (d *PostgresDB) GetTour(ctx context.Context, id string) (*Tour, error) {
	var t Tour
	err := d.pool.QueryRow(ctx,
		`SELECT tour_id, tour_description FROM tours WHERE tour_id = $1`, id,
	).Scan(&t.ID, &t.Description)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get tour: %w", err)
	}
	return &t, nil
}

// InsertTour inserts a tour. A duplicate id is a Conflict.
func (d *PostgresDB) InsertTour(ctx context.Context, t Tour) error {
	_, err := d.pool.Exec(ctx,
		`INSERT INTO tours (tour_id, tour_description) VALUES ($1, $2)`, t.ID, t.Description)
	if pgCode(err) == pgUniqueViolation {
		return tours.Conflict(tours.MsgTourExists)
	}
	if err != nil {
		return fmt.Errorf("insert tour: %w", err)
	}
	return nil
}

// UpdateTour replaces a tour description.
func (d *PostgresDB) UpdateTour(ctx context.Context, t Tour) error {
	if _, err := d.pool.Exec(ctx,
		`UPDATE tours SET tour_description = $1 WHERE tour_id = $2`, t.Description, t.ID); err != nil {
		return fmt.Errorf("update tour: %w", err)
	}
	return nil
}

// DeleteTour deletes a tour. Legs still referencing it make this a Conflict.
func (d *PostgresDB) DeleteTour(ctx context.Context, id string) error {
	_, err := d.pool.Exec(ctx, `DELETE FROM tours WHERE tour_id = $1`, id)
	if pgCode(err) == pgForeignKeyViolation {
		return tours.Conflict(tours.MsgTourHasLegs)
	}
	if err != nil {
		return fmt.Errorf("delete tour: %w", err)
	}
	return nil
}

// TourHasLegs reports whether any leg references the tour.
func (d *PostgresDB) TourHasLegs(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := d.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM tour_legs WHERE tour_id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("count legs: %w", err)
	}
	return exists, nil
}

const pgLegSelect = `
	SELECT l.id, l.tour_id, l.origin, l.destination, l.aircraft, l.route, l.comments,
		l.flight_date::text, l.link1, l.link2, l.link3, t.tour_description
	FROM tour_legs l
	LEFT JOIN tours t ON t.tour_id = l.tour_id`

// ListLegs returns legs joined with their tour description.
func (d *PostgresDB) ListLegs(ctx context.Context, q tours.LegQuery) ([]LegView, error) {
	query := pgLegSelect + ` ORDER BY l.id`
	var args []any
	if q.TourID != "" {
		query = pgLegSelect + `
	WHERE l.tour_id = $1
	ORDER BY l.flight_date NULLS LAST, l.id`
		args = append(args, q.TourID)
	}

	rows, err := d.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list legs: %w", err)
	}
	defer rows.Close()

	var out []LegView
	for rows.Next() {
		v, err := scanLeg(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

// GetLeg returns one leg, or nil if it does not exist.
func (d *PostgresDB) GetLeg(ctx context.Context, id int64) (*LegView, error) {
	v, err := scanLeg(d.pool.QueryRow(ctx, pgLegSelect+` WHERE l.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return v, err
}

// InsertLeg inserts a leg and returns its id. A missing tour is NotFound.
func (d *PostgresDB) InsertLeg(ctx context.Context, l Leg) (int64, error) {
	var id int64
	err := d.pool.QueryRow(ctx, `
		INSERT INTO tour_legs (tour_id, origin, destination, aircraft, route, comments,
			flight_date, link1, link2, link3)
		VALUES ($1, $2, $3, $4, $5, $6, $7::text::date, $8, $9, $10)
		RETURNING id`,
		l.TourID, l.Origin, l.Destination, l.Aircraft, l.Route, l.Comments,
		l.FlightDate, l.Link1, l.Link2, l.Link3,
	).Scan(&id)
	if pgCode(err) == pgForeignKeyViolation {
		return 0, tours.NotFound(tours.MsgTourNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("insert leg: %w", err)
	}
	return id, nil
}

// UpdateLeg replaces every stored field of a leg.
func (d *PostgresDB) UpdateLeg(ctx context.Context, l Leg) error {
	_, err := d.pool.Exec(ctx, `
		UPDATE tour_legs SET tour_id = $1, origin = $2, destination = $3, aircraft = $4,
			route = $5, comments = $6, flight_date = $7::text::date, link1 = $8, link2 = $9, link3 = $10
		WHERE id = $11`,
		l.TourID, l.Origin, l.Destination, l.Aircraft, l.Route, l.Comments,
		l.FlightDate, l.Link1, l.Link2, l.Link3, l.ID)
	if pgCode(err) == pgForeignKeyViolation {
		return tours.NotFound(tours.MsgTourNotFound)
	}
	if err != nil {
		return fmt.Errorf("update leg: %w", err)
	}
	return nil
}

// DeleteLeg deletes a leg.
func (d *PostgresDB) DeleteLeg(ctx context.Context, id int64) error {
	if _, err := d.pool.Exec(ctx, `DELETE FROM tour_legs WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete leg: %w", err)
	}
	return nil
}

// Airport returns the first airport row for the code, or nil.
func (d *PostgresDB) Airport(ctx context.Context, icaoCode string) (*tours.Airport, error) {
	code := tours.NormalizeCode(icaoCode)
	if code == "" {
		return nil, nil
	}
	var a tours.Airport
	err := d.pool.QueryRow(ctx, `
		SELECT icao_code, latitude, longitude, name FROM airports
		WHERE icao_code = $1 ORDER BY seq LIMIT 1`, code,
	).Scan(&a.ICAOCode, &a.Latitude, &a.Longitude, &a.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup airport: %w", err)
	}
	return &a, nil
}

// AircraftType returns the first aircraft type row for the code, or nil.
func (d *PostgresDB) AircraftType(ctx context.Context, icaoCode string) (*tours.AircraftType, error) {
	code := tours.NormalizeCode(icaoCode)
	if code == "" {
		return nil, nil
	}
	var t tours.AircraftType
	err := d.pool.QueryRow(ctx, `
		SELECT icao_code, model FROM aircraft_types
		WHERE icao_code = $1 ORDER BY seq LIMIT 1`, code,
	).Scan(&t.ICAOCode, &t.Model)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup aircraft type: %w", err)
	}
	return &t, nil
}

// ReplaceAirports swaps the airport table contents using COPY.
func (d *PostgresDB) ReplaceAirports(ctx context.Context, airports []tours.Airport) error {
	return d.replace(ctx, "airports", []string{"icao_code", "latitude", "longitude", "name"},
		pgx.CopyFromSlice(len(airports), func(i int) ([]any, error) {
			a := airports[i]
			return []any{tours.NormalizeCode(a.ICAOCode), a.Latitude, a.Longitude, a.Name}, nil
		}))
}

// ReplaceAircraftTypes swaps the aircraft type table contents using COPY.
func (d *PostgresDB) ReplaceAircraftTypes(ctx context.Context, types []tours.AircraftType) error {
	return d.replace(ctx, "aircraft_types", []string{"icao_code", "model"},
		pgx.CopyFromSlice(len(types), func(i int) ([]any, error) {
			t := types[i]
			return []any{tours.NormalizeCode(t.ICAOCode), t.Model}, nil
		}))
}

func (d *PostgresDB) replace(ctx context.Context, table string, cols []string, src pgx.CopyFromSource) error {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM `+table); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{table}, cols, src); err != nil {
		return fmt.Errorf("copy %s: %w", table, err)
	}
	return tx.Commit(ctx)
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
