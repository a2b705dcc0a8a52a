package tours

import (
	"context"
	"strings"
)

// Resolver looks up reference entries by ICAO code. Implementations return
// nil, nil when no entry matches or the code is empty. When several entries
// share a code the first in iteration order wins.
type Resolver interface {
	Airport(ctx context.Context, icaoCode string) (*Airport, error)
	AircraftType(ctx context.Context, icaoCode string) (*AircraftType, error)
}

// StaticResolver resolves against in-memory reference slices.
type StaticResolver struct {
	Airports      []Airport
	AircraftTypes []AircraftType
}

// Airport returns the first airport whose code matches icaoCode.
func (s *StaticResolver) Airport(_ context.Context, icaoCode string) (*Airport, error) {
	code := NormalizeCode(icaoCode)
	if code == "" {
		return nil, nil
	}
	for i := range s.Airports {
		if NormalizeCode(s.Airports[i].ICAOCode) == code {
			a := s.Airports[i]
			return &a, nil
		}
	}
	return nil, nil
}

// AircraftType returns the first aircraft type whose code matches icaoCode.
func (s *StaticResolver) AircraftType(_ context.Context, icaoCode string) (*AircraftType, error) {
	code := NormalizeCode(icaoCode)
	if code == "" {
		return nil, nil
	}
	for i := range s.AircraftTypes {
		if NormalizeCode(s.AircraftTypes[i].ICAOCode) == code {
			t := s.AircraftTypes[i]
			return &t, nil
		}
	}
	return nil, nil
}

// NormalizeCode trims and uppercases an ICAO code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
