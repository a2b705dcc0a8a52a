package tours

import (
	"context"
	"errors"
	"testing"

	"github.com/goccy/go-json"
)

func ptr[T any](v T) *T { return &v }

func testResolver() *StaticResolver {
	return &StaticResolver{
		Airports: []Airport{
			{ICAOCode: "KSEA", Latitude: ptr(47.449), Longitude: ptr(-122.309), Name: ptr("Seattle-Tacoma Intl")},
			{ICAOCode: "KSEA", Latitude: ptr(1.0), Longitude: ptr(1.0), Name: ptr("Duplicate")},
			{ICAOCode: "KPDX", Latitude: ptr(45.589), Longitude: ptr(-122.597)},
			{ICAOCode: "ZZZZ", Name: ptr("No Coordinates")},
		},
		AircraftTypes: []AircraftType{
			{ICAOCode: "B738", Model: ptr("Boeing 737-800")},
			{ICAOCode: "B738", Model: ptr("Duplicate")},
			{ICAOCode: "XXXX"},
		},
	}
}

func testLeg(origin, dest string, aircraft *string) EnrichedLeg {
	return EnrichedLeg{LegView: LegView{Leg: Leg{
		ID: 1, TourID: "T1", Origin: origin, Destination: dest, Aircraft: aircraft,
	}}}
}

func TestEnrichOne(t *testing.T) {
	e := NewEnricher(testResolver())
	ctx := context.Background()

	t.Run("full match uses first entry", func(t *testing.T) {
		leg := testLeg("KSEA", "KPDX", ptr("B738"))
		got := e.One(ctx, &leg)

		if got.OriginCoords == nil || *got.OriginCoords != (Coords{47.449, -122.309}) {
			t.Errorf("OriginCoords = %v", got.OriginCoords)
		}
		if got.OriginName == nil || !got.OriginName.Valid || got.OriginName.String != "Seattle-Tacoma Intl" {
			t.Errorf("OriginName = %+v", got.OriginName)
		}
		if got.DestinationCoords == nil || *got.DestinationCoords != (Coords{45.589, -122.597}) {
			t.Errorf("DestinationCoords = %v", got.DestinationCoords)
		}
		if got.DestinationName == nil || got.DestinationName.Valid {
			t.Errorf("DestinationName = %+v, want present null", got.DestinationName)
		}
		if got.AircraftModel == nil || *got.AircraftModel != "Boeing 737-800" {
			t.Errorf("AircraftModel = %v", got.AircraftModel)
		}
	})

	t.Run("unknown codes add nothing", func(t *testing.T) {
		leg := testLeg("QQQQ", "WWWW", ptr("A999"))
		got := e.One(ctx, &leg)
		if got.OriginCoords != nil || got.OriginName != nil || got.DestinationCoords != nil ||
			got.DestinationName != nil || got.AircraftModel != nil {
			t.Errorf("unexpected derived fields: %+v", got)
		}
	})

	t.Run("missing coordinates omit coords but keep name", func(t *testing.T) {
		leg := testLeg("ZZZZ", "QQQQ", nil)
		got := e.One(ctx, &leg)
		if got.OriginCoords != nil {
			t.Errorf("OriginCoords = %v, want nil", got.OriginCoords)
		}
		if got.OriginName == nil || got.OriginName.String != "No Coordinates" {
			t.Errorf("OriginName = %+v", got.OriginName)
		}
	})

	t.Run("null model omits aircraft_model", func(t *testing.T) {
		leg := testLeg("QQQQ", "QQQQ", ptr("XXXX"))
		if got := e.One(ctx, &leg); got.AircraftModel != nil {
			t.Errorf("AircraftModel = %v, want nil", *got.AircraftModel)
		}
	})

	t.Run("nil leg", func(t *testing.T) {
		if got := e.One(ctx, nil); got != nil {
			t.Errorf("One(nil) = %v", got)
		}
	})
}

func TestEnrichIdempotent(t *testing.T) {
	e := NewEnricher(testResolver())
	ctx := context.Background()

	leg := testLeg("KSEA", "KPDX", ptr("B738"))
	once, err := json.Marshal(e.One(ctx, &leg))
	if err != nil {
		t.Fatal(err)
	}
	twice, err := json.Marshal(e.One(ctx, &leg))
	if err != nil {
		t.Fatal(err)
	}
	if string(once) != string(twice) {
		t.Errorf("enrich not idempotent:\n%s\n%s", once, twice)
	}
}

func TestEnrichAll(t *testing.T) {
	e := NewEnricher(testResolver())
	ctx := context.Background()

	if got := e.All(ctx, nil); got != nil {
		t.Errorf("All(nil) = %v, want nil", got)
	}
	if got := e.All(ctx, []EnrichedLeg{}); got == nil || len(got) != 0 {
		t.Errorf("All(empty) = %v, want empty non-nil", got)
	}

	legs := []EnrichedLeg{
		testLeg("KSEA", "QQQQ", nil),
		testLeg("QQQQ", "KPDX", nil),
	}
	got := e.All(ctx, legs)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].OriginCoords == nil || got[0].DestinationCoords != nil {
		t.Errorf("leg 0 = %+v", got[0])
	}
	if got[1].OriginCoords != nil || got[1].DestinationCoords == nil {
		t.Errorf("leg 1 = %+v", got[1])
	}
}

type failingResolver struct{}

func (failingResolver) Airport(context.Context, string) (*Airport, error) {
	return nil, errors.New("db down")
}

func (failingResolver) AircraftType(context.Context, string) (*AircraftType, error) {
	return nil, errors.New("db down")
}

func TestEnrichLookupErrorsAreSwallowed(t *testing.T) {
	e := NewEnricher(failingResolver{})
	leg := testLeg("KSEA", "KPDX", ptr("B738"))
	got := e.One(context.Background(), &leg)
	if got.OriginCoords != nil || got.OriginName != nil || got.AircraftModel != nil {
		t.Errorf("expected no derived fields, got %+v", got)
	}
	if got.Origin != "KSEA" {
		t.Errorf("stored fields changed: %+v", got.Leg)
	}
}

func TestEnrichedLegJSON(t *testing.T) {
	e := NewEnricher(testResolver())
	leg := testLeg("KPDX", "QQQQ", nil)
	data, err := json.Marshal(e.One(context.Background(), &leg))
	if err != nil {
		t.Fatal(err)
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	if v, ok := m["origin_name"]; !ok || v != nil {
		t.Errorf("origin_name = %v (present %v), want present null", v, ok)
	}
	for _, k := range []string{"destination_coords", "destination_name", "aircraft_model", "sequence"} {
		if _, ok := m[k]; ok {
			t.Errorf("%s should be omitted", k)
		}
	}
	if v, ok := m["aircraft"]; !ok || v != nil {
		t.Errorf("aircraft = %v, want present null", v)
	}
}
