package storage

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"fstours/internal/tours"
)

// ReadAirportsCSV reads airport reference rows. The first row is a header
// naming at least icao_code; latitude, longitude and name are optional
// columns. Empty cells become NULL.
func ReadAirportsCSV(r io.Reader) ([]tours.Airport, error) {
	var out []tours.Airport
	err := readCSV(r, []string{"icao_code"}, func(line int, get func(string) *string) error {
		a := tours.Airport{Name: get("name")}
		a.ICAOCode = *get("icao_code")

		var err error
		if a.Latitude, err = parseFloat(get("latitude")); err != nil {
			return fmt.Errorf("line %d: latitude: %w", line, err)
		}
		if a.Longitude, err = parseFloat(get("longitude")); err != nil {
			return fmt.Errorf("line %d: longitude: %w", line, err)
		}
		out = append(out, a)
		return nil
	})
	return out, err
}

// ReadAircraftCSV reads aircraft type reference rows with columns
// icao_code and model.
func ReadAircraftCSV(r io.Reader) ([]tours.AircraftType, error) {
	var out []tours.AircraftType
	err := readCSV(r, []string{"icao_code"}, func(_ int, get func(string) *string) error {
		out = append(out, tours.AircraftType{ICAOCode: *get("icao_code"), Model: get("model")})
		return nil
	})
	return out, err
}

// ImportAirportsFile loads a CSV file into the backend's airport table.
func ImportAirportsFile(ctx context.Context, b Backend, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.Close() }()

	airports, err := ReadAirportsCSV(f)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	return len(airports), b.ReplaceAirports(ctx, airports)
}

// ImportAircraftFile loads a CSV file into the backend's aircraft type table.
func ImportAircraftFile(ctx context.Context, b Backend, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.Close() }()

	types, err := ReadAircraftCSV(f)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	return len(types), b.ReplaceAircraftTypes(ctx, types)
}

// readCSV maps each data row by header name. Rows whose required columns are
// blank are skipped.
func readCSV(r io.Reader, required []string, row func(line int, get func(string) *string) error) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return fmt.Errorf("missing column %q", name)
		}
	}

	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		line++
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}

		get := func(name string) *string {
			i, ok := cols[name]
			if !ok || i >= len(rec) {
				return nil
			}
			v := strings.TrimSpace(rec[i])
			if v == "" {
				return nil
			}
			return &v
		}

		skip := false
		for _, name := range required {
			if get(name) == nil {
				skip = true
				break
			}
		}
		if skip {
			continue
		}

		if err := row(line, get); err != nil {
			return err
		}
	}
}

func parseFloat(s *string) (*float64, error) {
	if s == nil {
		return nil, nil
	}
	f, err := strconv.ParseFloat(*s, 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}
