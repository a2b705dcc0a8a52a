package simbrief

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

const fullPlan = `{
  "params": {"request_id": "123456"},
  "origin": {"icao_code": "KSEA"},
  "destination": {"icao_code": "KSFO"},
  "aircraft": {"icao_code": "B738"},
  "general": {"route": "HAROB6 ERAVE Q1 ETCHY", "route_distance": "612", "initial_altitude": 35000},
  "files": {"directory": "https://www.simbrief.com/ofp/flightplans/", "pdf": {"link": "KSEAKSFO_PDF.pdf"}}
}`

func newTestServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/api/xml.fetcher.php" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.URL.Query().Get("json") != "1" {
			t.Errorf("json param = %q", r.URL.Query().Get("json"))
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestFetchLatest(t *testing.T) {
	var gotUser string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = r.URL.Query().Get("username")
		_, _ = w.Write([]byte(fullPlan))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	d, err := c.FetchLatest(context.Background(), " pilot one ")
	if err != nil {
		t.Fatalf("FetchLatest: %v", err)
	}
	if gotUser != "pilot one" {
		t.Errorf("username = %q", gotUser)
	}

	want := LegDraft{
		Origin:      "KSEA",
		Destination: "KSFO",
		Aircraft:    "B738",
		Route:       "HAROB6 ERAVE Q1 ETCHY",
		Comments:    "612 nm, FL350",
		Link:        "https://www.simbrief.com/ofp/flightplans/KSEAKSFO_PDF.pdf",
	}
	if *d != want {
		t.Errorf("draft = %+v, want %+v", *d, want)
	}
}

func TestFetchLatestSparsePlan(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		wantComments string
		wantLink     string
		wantAircraft string
	}{
		{
			name:         "no request id drops link",
			body:         `{"origin":{"icao_code":"EGLL"},"destination":{"icao_code":"LFPG"},"general":{"route_distance":"188"},"files":{"directory":"x/","pdf":{"link":"y.pdf"}}}`,
			wantComments: "188 nm",
		},
		{
			name:         "altitude only",
			body:         `{"origin":{"icao_code":"EGLL"},"destination":{"icao_code":"LFPG"},"general":{"initial_altitude":"24049"}}`,
			wantComments: "FL240",
		},
		{
			name: "empty objects for scalars",
			body: `{"origin":{"icao_code":"EGLL"},"destination":{"icao_code":"LFPG"},"aircraft":{"icao_code":{}},"general":{"route":{},"route_distance":{}}}`,
		},
		{
			name:         "numeric request id keeps link",
			body:         `{"params":{"request_id":42},"origin":{"icao_code":"EGLL"},"destination":{"icao_code":"LFPG"},"aircraft":{"icao_code":"A20N"},"files":{"directory":"d/","pdf":{"link":"p.pdf"}}}`,
			wantLink:     "d/p.pdf",
			wantAircraft: "A20N",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, http.StatusOK, tt.body)
			d, err := New(srv.URL, time.Second).FetchLatest(context.Background(), "pilot")
			if err != nil {
				t.Fatalf("FetchLatest: %v", err)
			}
			if d.Origin != "EGLL" || d.Destination != "LFPG" {
				t.Errorf("airports = %s-%s", d.Origin, d.Destination)
			}
			if d.Comments != tt.wantComments {
				t.Errorf("comments = %q, want %q", d.Comments, tt.wantComments)
			}
			if d.Link != tt.wantLink {
				t.Errorf("link = %q, want %q", d.Link, tt.wantLink)
			}
			if d.Aircraft != tt.wantAircraft {
				t.Errorf("aircraft = %q, want %q", d.Aircraft, tt.wantAircraft)
			}
		})
	}
}

func TestFetchLatestErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"no origin", http.StatusOK, `{"destination":{"icao_code":"KSFO"}}`, ErrNoFlightPlan},
		{"no destination", http.StatusOK, `{"origin":{"icao_code":"KSEA"}}`, ErrNoFlightPlan},
		{"upstream error", http.StatusBadRequest, `{"fetch":{"status":"Error"}}`, ErrFetchFailed},
		{"server error", http.StatusInternalServerError, ``, ErrFetchFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, tt.status, tt.body)
			_, err := New(srv.URL, time.Second).FetchLatest(context.Background(), "pilot")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if !strings.HasPrefix(err.Error(), "simbrief import failed: ") {
				t.Errorf("err = %q, want import prefix", err.Error())
			}
		})
	}
}

func TestFetchLatestEmptyUsername(t *testing.T) {
	srv, hits := newTestServer(t, http.StatusOK, fullPlan)
	_, err := New(srv.URL, time.Second).FetchLatest(context.Background(), "  ")
	if err == nil {
		t.Fatal("expected error")
	}
	if hits.Load() != 0 {
		t.Errorf("server hit %d times", hits.Load())
	}
}

func TestCircuitBreakerOpens(t *testing.T) {
	srv, hits := newTestServer(t, http.StatusBadGateway, "")
	c := New(srv.URL, time.Second)

	for i := 0; i < 3; i++ {
		if _, err := c.FetchLatest(context.Background(), "pilot"); !errors.Is(err, ErrFetchFailed) {
			t.Fatalf("call %d: err = %v", i, err)
		}
	}
	if _, err := c.FetchLatest(context.Background(), "pilot"); err == nil || errors.Is(err, ErrFetchFailed) {
		t.Fatalf("expected open breaker, got %v", err)
	}
	if hits.Load() != 3 {
		t.Errorf("hits = %d, want 3", hits.Load())
	}
}

func TestMissingPlanDoesNotTrip(t *testing.T) {
	srv, hits := newTestServer(t, http.StatusOK, `{}`)
	c := New(srv.URL, time.Second)

	for i := 0; i < 5; i++ {
		if _, err := c.FetchLatest(context.Background(), "pilot"); !errors.Is(err, ErrNoFlightPlan) {
			t.Fatalf("call %d: err = %v", i, err)
		}
	}
	if hits.Load() != 5 {
		t.Errorf("hits = %d, want 5", hits.Load())
	}
}

func TestLegDraftLegInput(t *testing.T) {
	d := LegDraft{Origin: "KSEA", Destination: "KSFO", Comments: "612 nm", Link: "https://x/y.pdf"}
	in := d.LegInput("T1")

	if in.TourID != "T1" || in.Origin != "KSEA" || in.Destination != "KSFO" {
		t.Errorf("input = %+v", in)
	}
	if in.Aircraft != nil || in.Route != nil {
		t.Errorf("blank fields should be nil: aircraft=%v route=%v", in.Aircraft, in.Route)
	}
	if in.Comments == nil || *in.Comments != "612 nm" {
		t.Errorf("comments = %v", in.Comments)
	}
	if in.Link1 == nil || *in.Link1 != "https://x/y.pdf" {
		t.Errorf("link1 = %v", in.Link1)
	}
	if in.Link2 != nil || in.Link3 != nil {
		t.Error("link2 and link3 should be nil")
	}
}
