// Package tours holds the tour and leg domain: records, reference lookups,
// leg enrichment, sequencing and the request-level service operations.
package tours

import (
	"github.com/goccy/go-json"
)

// Tour is a named sequence of flight legs.
type Tour struct {
	ID          string `json:"tour_id"`
	Description string `json:"tour_description"`
}

// Leg is one stored flight segment belonging to a tour.
type Leg struct {
	ID          int64   `json:"id"`
	TourID      string  `json:"tour_id"`
	Origin      string  `json:"origin"`
	Destination string  `json:"destination"`
	Aircraft    *string `json:"aircraft"`
	Route       *string `json:"route"`
	Comments    *string `json:"comments"`
	FlightDate  *string `json:"flight_date"` // YYYY-MM-DD.
	Link1       *string `json:"link1"`
	Link2       *string `json:"link2"`
	Link3       *string `json:"link3"`
}

// LegView is a leg row joined with the description of its tour.
// TourDescription is nil when the referenced tour does not exist.
type LegView struct {
	Leg
	TourDescription *string `json:"tour_description"`
}

// Coords is a [latitude, longitude] pair.
type Coords [2]float64

// NullableString marshals as JSON null when Valid is false. It is used for
// derived keys that must be present-but-null rather than omitted.
type NullableString struct {
	String string
	Valid  bool
}

// MarshalJSON implements json.Marshaler.
func (n NullableString) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.String)
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *NullableString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*n = NullableString{}
		return nil
	}
	if err := json.Unmarshal(data, &n.String); err != nil {
		return err
	}
	n.Valid = true
	return nil
}

func nullable(s *string) *NullableString {
	if s == nil {
		return &NullableString{}
	}
	return &NullableString{String: *s, Valid: true}
}

// EnrichedLeg is a read-only projection of a leg with display data resolved
// from the airport and aircraft reference tables. It is never persisted.
type EnrichedLeg struct {
	LegView

	OriginCoords      *Coords         `json:"origin_coords,omitempty"`
	OriginName        *NullableString `json:"origin_name,omitempty"`
	DestinationCoords *Coords         `json:"destination_coords,omitempty"`
	DestinationName   *NullableString `json:"destination_name,omitempty"`
	AircraftModel     *string         `json:"aircraft_model,omitempty"`

	// Sequence is the 1-based position within a tour listing; zero elsewhere.
	Sequence int `json:"sequence,omitempty"`
}

// Airport is an airport reference entry.
type Airport struct {
	ICAOCode  string
	Latitude  *float64
	Longitude *float64
	Name      *string
}

// AircraftType is an aircraft reference entry.
type AircraftType struct {
	ICAOCode string
	Model    *string
}
