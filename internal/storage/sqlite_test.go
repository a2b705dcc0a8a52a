package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"fstours/internal/tours"
)

func stringPtr(s string) *string  { return &s }
func floatPtr(f float64) *float64 { return &f }

func openTestSQLite(t *testing.T) *DB {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "tours.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSQLiteTours(t *testing.T) {
	db := openTestSQLite(t)
	ctx := context.Background()

	if got, err := db.GetTour(ctx, "T1"); err != nil || got != nil {
		t.Fatalf("GetTour on empty db = %v, %v", got, err)
	}

	if err := db.InsertTour(ctx, Tour{ID: "T1", Description: "West coast"}); err != nil {
		t.Fatal(err)
	}
	err := db.InsertTour(ctx, Tour{ID: "T1", Description: "dup"})
	if !errors.Is(err, tours.ErrConflict) {
		t.Fatalf("duplicate insert: err = %v, want conflict", err)
	}

	if err := db.UpdateTour(ctx, Tour{ID: "T1", Description: "Pacific NW"}); err != nil {
		t.Fatal(err)
	}
	got, err := db.GetTour(ctx, "T1")
	if err != nil || got == nil || got.Description != "Pacific NW" {
		t.Fatalf("GetTour = %+v, %v", got, err)
	}

	list, err := db.ListTours(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListTours = %v, %v", list, err)
	}

	if err := db.DeleteTour(ctx, "T1"); err != nil {
		t.Fatal(err)
	}
	if got, _ := db.GetTour(ctx, "T1"); got != nil {
		t.Errorf("tour still present: %+v", got)
	}
}

func TestSQLiteLegs(t *testing.T) {
	db := openTestSQLite(t)
	ctx := context.Background()

	if err := db.InsertTour(ctx, Tour{ID: "T1", Description: "West coast"}); err != nil {
		t.Fatal(err)
	}

	insert := func(l Leg) int64 {
		t.Helper()
		id, err := db.InsertLeg(ctx, l)
		if err != nil {
			t.Fatal(err)
		}
		return id
	}

	undated := insert(Leg{TourID: "T1", Origin: "KSEA", Destination: "KPDX"})
	late := insert(Leg{TourID: "T1", Origin: "KPDX", Destination: "KSFO", FlightDate: stringPtr("2024-06-03")})
	early := insert(Leg{TourID: "T1", Origin: "KSFO", Destination: "KLAX", FlightDate: stringPtr("2024-06-01"), Aircraft: stringPtr("B738")})
	orphan := insert(Leg{TourID: "GHOST", Origin: "KLAX", Destination: "KSAN"})

	has, err := db.TourHasLegs(ctx, "T1")
	if err != nil || !has {
		t.Fatalf("TourHasLegs = %v, %v", has, err)
	}

	legs, err := db.ListLegs(ctx, tours.LegQuery{TourID: "T1"})
	if err != nil {
		t.Fatal(err)
	}
	wantIDs := []int64{early, late, undated}
	if len(legs) != len(wantIDs) {
		t.Fatalf("tour legs = %d, want %d", len(legs), len(wantIDs))
	}
	for i, l := range legs {
		if l.ID != wantIDs[i] {
			t.Errorf("legs[%d].ID = %d, want %d", i, l.ID, wantIDs[i])
		}
	}

	all, err := db.ListLegs(ctx, tours.LegQuery{})
	if err != nil || len(all) != 4 || all[0].ID != undated || all[3].ID != orphan {
		t.Fatalf("ListLegs(all) = %+v, %v", all, err)
	}
	if all[3].TourDescription != nil {
		t.Errorf("orphan TourDescription = %v, want nil", *all[3].TourDescription)
	}

	got, err := db.GetLeg(ctx, early)
	if err != nil || got == nil {
		t.Fatalf("GetLeg = %v, %v", got, err)
	}
	if got.Aircraft == nil || *got.Aircraft != "B738" || got.Route != nil {
		t.Errorf("GetLeg optional fields = aircraft %v route %v", got.Aircraft, got.Route)
	}
	if got.TourDescription == nil || *got.TourDescription != "West coast" {
		t.Errorf("TourDescription = %v", got.TourDescription)
	}

	got.Comments = stringPtr("scenic")
	got.Aircraft = nil
	if err := db.UpdateLeg(ctx, got.Leg); err != nil {
		t.Fatal(err)
	}
	updated, _ := db.GetLeg(ctx, early)
	if updated.Aircraft != nil || updated.Comments == nil || *updated.Comments != "scenic" {
		t.Errorf("updated leg = %+v", updated.Leg)
	}

	if err := db.DeleteLeg(ctx, early); err != nil {
		t.Fatal(err)
	}
	if got, err := db.GetLeg(ctx, early); err != nil || got != nil {
		t.Errorf("GetLeg after delete = %v, %v", got, err)
	}
}

func TestSQLiteResolver(t *testing.T) {
	db := openTestSQLite(t)
	ctx := context.Background()

	err := db.ReplaceAirports(ctx, []tours.Airport{
		{ICAOCode: "ksea", Latitude: floatPtr(47.449), Longitude: floatPtr(-122.309), Name: stringPtr("Seattle-Tacoma Intl")},
		{ICAOCode: "KSEA", Latitude: floatPtr(0), Longitude: floatPtr(0), Name: stringPtr("Second")},
		{ICAOCode: "KPDX"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := db.ReplaceAircraftTypes(ctx, []tours.AircraftType{{ICAOCode: "B738", Model: stringPtr("Boeing 737-800")}}); err != nil {
		t.Fatal(err)
	}

	a, err := db.Airport(ctx, "ksea")
	if err != nil || a == nil {
		t.Fatalf("Airport = %v, %v", a, err)
	}
	if a.Name == nil || *a.Name != "Seattle-Tacoma Intl" {
		t.Errorf("first row not returned: %+v", a)
	}

	pdx, err := db.Airport(ctx, "KPDX")
	if err != nil || pdx == nil || pdx.Latitude != nil || pdx.Name != nil {
		t.Errorf("KPDX = %+v, %v", pdx, err)
	}

	if a, err := db.Airport(ctx, "ZZZZ"); err != nil || a != nil {
		t.Errorf("unknown airport = %v, %v", a, err)
	}
	if a, err := db.Airport(ctx, ""); err != nil || a != nil {
		t.Errorf("empty code = %v, %v", a, err)
	}

	typ, err := db.AircraftType(ctx, "b738")
	if err != nil || typ == nil || *typ.Model != "Boeing 737-800" {
		t.Errorf("AircraftType = %+v, %v", typ, err)
	}

	// Replacing clears the previous rows.
	if err := db.ReplaceAirports(ctx, nil); err != nil {
		t.Fatal(err)
	}
	if a, _ := db.Airport(ctx, "KSEA"); a != nil {
		t.Errorf("airport survived replace: %+v", a)
	}
}

func TestSQLiteServiceIntegration(t *testing.T) {
	db := openTestSQLite(t)
	ctx := context.Background()
	svc := tours.NewService(db, db)

	if _, err := svc.CreateTour(ctx, tours.TourInput{ID: "T1", Description: "West coast"}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CreateLeg(ctx, tours.LegInput{TourID: "T1", Origin: "ksea", Destination: "kpdx"}); err != nil {
		t.Fatal(err)
	}
	if err := svc.DeleteTour(ctx, "T1"); !errors.Is(err, tours.ErrConflict) {
		t.Errorf("DeleteTour with legs: err = %v", err)
	}
	legs, err := svc.ListTourLegs(ctx, "T1")
	if err != nil || len(legs) != 1 || legs[0].Origin != "KSEA" || legs[0].Sequence != 1 {
		t.Errorf("ListTourLegs = %+v, %v", legs, err)
	}
}
