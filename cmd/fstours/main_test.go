package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"fstours/internal/api"
	"fstours/internal/auth"
	"fstours/internal/storage"
	"fstours/internal/tours"
)

const testToken = "s3cret"

func newTestAPI(t *testing.T) string {
	t.Helper()
	t.Setenv("FSTOURS_TOKEN", "")
	db, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "cli.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	srv := httptest.NewServer(api.NewServer(tours.NewService(db, db), auth.StaticToken(testToken), api.Config{}).Router())
	t.Cleanup(srv.Close)
	return srv.URL
}

func run(t *testing.T, addr string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--addr", addr, "--token", testToken}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, addr string, args ...string) string {
	t.Helper()
	out, err := run(t, addr, args...)
	if err != nil {
		t.Fatalf("fstours %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func TestToursAndLegsCommands(t *testing.T) {
	addr := newTestAPI(t)

	mustRun(t, addr, "tours", "create", "T1", "-d", "Cascades")
	out := mustRun(t, addr, "tours", "list")
	if !strings.Contains(out, "T1") || !strings.Contains(out, "Cascades") {
		t.Errorf("tours list = %q", out)
	}

	mustRun(t, addr, "legs", "create", "--tour", "T1", "--origin", "kpdx", "--destination", "ksea", "--date", "2024-05-02")
	mustRun(t, addr, "legs", "create", "--tour", "T1", "--origin", "KSEA", "--destination", "KPDX", "--date", "2024-05-01", "--aircraft", "b738")

	out = mustRun(t, addr, "-o", "json", "legs", "list", "--tour", "T1")
	var legs []tours.EnrichedLeg
	if err := json.Unmarshal([]byte(out), &legs); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(legs) != 2 || legs[0].Origin != "KSEA" || legs[0].Sequence != 1 {
		t.Fatalf("legs = %+v", legs)
	}
	if legs[0].Aircraft == nil || *legs[0].Aircraft != "B738" {
		t.Errorf("aircraft = %v", legs[0].Aircraft)
	}

	// Partial update keeps the fields that were not given.
	id := legs[0].ID
	mustRun(t, addr, "legs", "update", itoa(id), "--comments", "scenic")
	out = mustRun(t, addr, "-o", "json", "legs", "get", itoa(id))
	var leg tours.EnrichedLeg
	if err := json.Unmarshal([]byte(out), &leg); err != nil {
		t.Fatal(err)
	}
	if leg.Comments == nil || *leg.Comments != "scenic" || leg.Aircraft == nil || leg.FlightDate == nil {
		t.Errorf("leg after update = %+v", leg)
	}

	if _, err := run(t, addr, "tours", "delete", "T1"); err == nil {
		t.Error("expected conflict deleting tour with legs")
	}

	out = mustRun(t, addr, "tours", "get", "T1")
	if !strings.Contains(out, "KSEA-KPDX") {
		t.Errorf("tours get = %q", out)
	}
}

func TestLegsRequiredFlags(t *testing.T) {
	addr := newTestAPI(t)
	if _, err := run(t, addr, "legs", "create", "--tour", "T1"); err == nil {
		t.Error("expected missing flag error")
	}
	if _, err := run(t, addr, "legs", "get", "abc"); err == nil {
		t.Error("expected invalid id error")
	}
}

func TestLoginCommand(t *testing.T) {
	addr := newTestAPI(t)

	if _, err := run(t, addr, "login", "wrong"); err == nil {
		t.Error("expected wrong token to fail")
	}
	out := mustRun(t, addr, "login")
	if !strings.Contains(out, "Token accepted") {
		t.Errorf("login = %q", out)
	}
}

func TestSimBriefImportCommand(t *testing.T) {
	addr := newTestAPI(t)
	mustRun(t, addr, "tours", "create", "T1", "-d", "Cascades")

	sb := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"params":{"request_id":"1"},"origin":{"icao_code":"KSEA"},"destination":{"icao_code":"KBOI"},` +
			`"general":{"route_distance":"344","initial_altitude":"36000"},"files":{"directory":"https://x/","pdf":{"link":"ofp.pdf"}}}`))
	}))
	defer sb.Close()

	out := mustRun(t, addr, "simbrief", "import", "--tour", "T1", "--username", "pilot", "--simbrief-url", sb.URL, "--dry-run")
	if !strings.Contains(out, "344 nm, FL360") {
		t.Errorf("dry run = %q", out)
	}
	if got := mustRun(t, addr, "-o", "json", "legs", "list"); strings.TrimSpace(got) != "[]" {
		t.Errorf("dry run created a leg: %q", got)
	}

	out = mustRun(t, addr, "simbrief", "import", "--tour", "T1", "--username", "pilot", "--simbrief-url", sb.URL)
	if !strings.Contains(out, "Imported KSEA-KBOI") {
		t.Errorf("import = %q", out)
	}

	out = mustRun(t, addr, "export", "kml", "--tour", "T1")
	if !strings.Contains(out, "<kml") {
		t.Errorf("kml = %q", out)
	}
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }
