package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"

	"fstours/internal/tours"
)

// DB wraps a SQLite database holding tours, legs and reference data.
type DB struct {
	db *sql.DB
}

// OpenSQLite opens or creates a SQLite database at the given path.
func OpenSQLite(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// One connection serializes writers; callers must not hold rows open
	// while issuing another query.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	if err := createSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping checks the database is reachable.
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// createSchema creates the tables and indices. Foreign keys are declared but
// not enforced (SQLite default), so a leg may name a tour that does not exist.
func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS tours (
		tour_id TEXT PRIMARY KEY,
		tour_description TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tour_legs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tour_id TEXT NOT NULL REFERENCES tours(tour_id),
		origin TEXT NOT NULL,
		destination TEXT NOT NULL,
		aircraft TEXT,
		route TEXT,
		comments TEXT,
		flight_date TEXT,
		link1 TEXT,
		link2 TEXT,
		link3 TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_tour_legs_tour ON tour_legs(tour_id);

	-- Reference data. Codes are not unique; lookups take the first row.
	CREATE TABLE IF NOT EXISTS airports (
		icao_code TEXT NOT NULL,
		latitude REAL,
		longitude REAL,
		name TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_airports_icao ON airports(icao_code);

	CREATE TABLE IF NOT EXISTS aircraft_types (
		icao_code TEXT NOT NULL,
		model TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_aircraft_types_icao ON aircraft_types(icao_code);
	`

	_, err := db.Exec(schema)
	return err
}

// ListTours returns all tours ordered by id.
func (d *DB) ListTours(ctx context.Context) ([]Tour, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT tour_id, tour_description FROM tours ORDER BY tour_id`)
	if err != nil {
		return nil, fmt.Errorf("list tours: %w", err)
	}
	defer func() { _ = rows.Close() }()

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
func (d *DB) GetTour(ctx context.Context, id string) (*Tour, error) {
	var t Tour
	err := d.db.QueryRowContext(ctx,
		`SELECT tour_id, tour_description FROM tours WHERE tour_id = ?`, id,
	).Scan(&t.ID, &t.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get tour: %w", err)
	}
	return &t, nil
}

// InsertTour inserts a tour. A duplicate id is a Conflict.
func (d *DB) InsertTour(ctx context.Context, t Tour) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO tours (tour_id, tour_description) VALUES (?, ?)`, t.ID, t.Description)
	if isSQLiteConstraint(err) {
		return tours.Conflict(tours.MsgTourExists)
	}
	if err != nil {
		return fmt.Errorf("insert tour: %w", err)
	}
	return nil
}

// UpdateTour replaces a tour description.
func (d *DB) UpdateTour(ctx context.Context, t Tour) error {
	if _, err := d.db.ExecContext(ctx,
		`UPDATE tours SET tour_description = ? WHERE tour_id = ?`, t.Description, t.ID); err != nil {
		return fmt.Errorf("update tour: %w", err)
	}
	return nil
}

// DeleteTour deletes a tour.
func (d *DB) DeleteTour(ctx context.Context, id string) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM tours WHERE tour_id = ?`, id); err != nil {
		return fmt.Errorf("delete tour: %w", err)
	}
	return nil
}

// TourHasLegs reports whether any leg references the tour.
func (d *DB) TourHasLegs(ctx context.Context, id string) (bool, error) {
	var n int
	err := d.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tour_legs WHERE tour_id = ?`, id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("count legs: %w", err)
	}
	return n > 0, nil
}

const sqliteLegSelect = `
	SELECT l.id, l.tour_id, l.origin, l.destination, l.aircraft, l.route, l.comments,
		l.flight_date, l.link1, l.link2, l.link3, t.tour_description
	FROM tour_legs l
	LEFT JOIN tours t ON t.tour_id = l.tour_id`

// ListLegs returns legs joined with their tour description.
func (d *DB) ListLegs(ctx context.Context, q tours.LegQuery) ([]LegView, error) {
	query := sqliteLegSelect + ` ORDER BY l.id`
	var args []any
	if q.TourID != "" {
		query = sqliteLegSelect + `
	WHERE l.tour_id = ?
	ORDER BY l.flight_date IS NULL, l.flight_date, l.id`
		args = append(args, q.TourID)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list legs: %w", err)
	}
	defer func() { _ = rows.Close() }()

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
func (d *DB) GetLeg(ctx context.Context, id int64) (*LegView, error) {
	v, err := scanLeg(d.db.QueryRowContext(ctx, sqliteLegSelect+` WHERE l.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return v, err
}

// InsertLeg inserts a leg and returns its id.
func (d *DB) InsertLeg(ctx context.Context, l Leg) (int64, error) {
	res, err := d.db.ExecContext(ctx, `
		INSERT INTO tour_legs (tour_id, origin, destination, aircraft, route, comments,
			flight_date, link1, link2, link3)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.TourID, l.Origin, l.Destination, l.Aircraft, l.Route, l.Comments,
		l.FlightDate, l.Link1, l.Link2, l.Link3)
	if err != nil {
		return 0, fmt.Errorf("insert leg: %w", err)
	}
	return res.LastInsertId()
}

// UpdateLeg replaces every stored field of a leg.
func (d *DB) UpdateLeg(ctx context.Context, l Leg) error {
	_, err := d.db.ExecContext(ctx, `
		UPDATE tour_legs SET tour_id = ?, origin = ?, destination = ?, aircraft = ?, route = ?,
			comments = ?, flight_date = ?, link1 = ?, link2 = ?, link3 = ?
		WHERE id = ?`,
		l.TourID, l.Origin, l.Destination, l.Aircraft, l.Route, l.Comments,
		l.FlightDate, l.Link1, l.Link2, l.Link3, l.ID)
	if err != nil {
		return fmt.Errorf("update leg: %w", err)
	}
	return nil
}

// DeleteLeg deletes a leg.
func (d *DB) DeleteLeg(ctx context.Context, id int64) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM tour_legs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete leg: %w", err)
	}
	return nil
}

// Airport returns the first airport row for the code, or nil.
func (d *DB) Airport(ctx context.Context, icaoCode string) (*tours.Airport, error) {
	code := tours.NormalizeCode(icaoCode)
	if code == "" {
		return nil, nil
	}
	var a tours.Airport
	err := d.db.QueryRowContext(ctx, `
		SELECT icao_code, latitude, longitude, name FROM airports
		WHERE icao_code = ? ORDER BY rowid LIMIT 1`, code,
	).Scan(&a.ICAOCode, &a.Latitude, &a.Longitude, &a.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup airport: %w", err)
	}
	return &a, nil
}

// AircraftType returns the first aircraft type row for the code, or nil.
func (d *DB) AircraftType(ctx context.Context, icaoCode string) (*tours.AircraftType, error) {
	code := tours.NormalizeCode(icaoCode)
	if code == "" {
		return nil, nil
	}
	var t tours.AircraftType
	err := d.db.QueryRowContext(ctx, `
		SELECT icao_code, model FROM aircraft_types
		WHERE icao_code = ? ORDER BY rowid LIMIT 1`, code,
	).Scan(&t.ICAOCode, &t.Model)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup aircraft type: %w", err)
	}
	return &t, nil
}

// ReplaceAirports swaps the airport table contents in one transaction.
func (d *DB) ReplaceAirports(ctx context.Context, airports []tours.Airport) error {
	return d.replace(ctx, "airports",
		`INSERT INTO airports (icao_code, latitude, longitude, name) VALUES (?, ?, ?, ?)`,
		len(airports), func(i int) []any {
			a := airports[i]
			return []any{tours.NormalizeCode(a.ICAOCode), a.Latitude, a.Longitude, a.Name}
		})
}

// ReplaceAircraftTypes swaps the aircraft type table contents in one transaction.
func (d *DB) ReplaceAircraftTypes(ctx context.Context, types []tours.AircraftType) error {
	return d.replace(ctx, "aircraft_types",
		`INSERT INTO aircraft_types (icao_code, model) VALUES (?, ?)`,
		len(types), func(i int) []any {
			t := types[i]
			return []any{tours.NormalizeCode(t.ICAOCode), t.Model}
		})
}

func (d *DB) replace(ctx context.Context, table, insert string, n int, row func(int) []any) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}

	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("prepare %s insert: %w", table, err)
	}
	defer func() { _ = stmt.Close() }()

	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, row(i)...); err != nil {
			return fmt.Errorf("insert %s row %d: %w", table, i+1, err)
		}
	}

	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLeg(r rowScanner) (*LegView, error) {
	var v LegView
	err := r.Scan(&v.ID, &v.TourID, &v.Origin, &v.Destination, &v.Aircraft, &v.Route,
		&v.Comments, &v.FlightDate, &v.Link1, &v.Link2, &v.Link3, &v.TourDescription)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan leg: %w", err)
	}
	return &v, nil
}

func isSQLiteConstraint(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code()&0xff == sqlitelib.SQLITE_CONSTRAINT
}
