package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordLookup(t *testing.T) {
	before := testutil.ToFloat64(LookupsTotal.WithLabelValues("airport", "hit"))
	RecordLookup("airport", "hit")
	RecordLookup("airport", "hit")
	after := testutil.ToFloat64(LookupsTotal.WithLabelValues("airport", "hit"))
	if after-before != 2 {
		t.Errorf("lookup counter moved by %v, want 2", after-before)
	}
}

func TestRecordEventPublish(t *testing.T) {
	before := testutil.ToFloat64(EventsPublishedTotal.WithLabelValues("nats", "failure"))
	RecordEventPublish("nats", false)
	after := testutil.ToFloat64(EventsPublishedTotal.WithLabelValues("nats", "failure"))
	if after-before != 1 {
		t.Errorf("publish counter moved by %v, want 1", after-before)
	}
}

func TestRecordHTTPRequestUnmatchedRoute(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "unmatched", "404"))
	RecordHTTPRequest("GET", "", 404, 5*time.Millisecond)
	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "unmatched", "404"))
	if after-before != 1 {
		t.Errorf("request counter moved by %v, want 1", after-before)
	}
}
