// Package metrics registers the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fstours_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fstours_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Reference lookups made while enriching legs.
	LookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fstours_reference_lookups_total",
			Help: "Total number of airport and aircraft reference lookups",
		},
		[]string{"kind", "result"}, // result: hit, miss, error
	)

	// Change events.
	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fstours_events_published_total",
			Help: "Total number of change events published per sink",
		},
		[]string{"sink", "result"},
	)

	// Outbound SimBrief calls.
	SimBriefRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fstours_simbrief_requests_total",
			Help: "Total number of SimBrief OFP fetches",
		},
		[]string{"result"},
	)
)

// RecordHTTPRequest records one served request.
func RecordHTTPRequest(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// RecordLookup records one reference lookup outcome.
func RecordLookup(kind, result string) {
	LookupsTotal.WithLabelValues(kind, result).Inc()
}

// RecordEventPublish records one publish attempt to a sink.
func RecordEventPublish(sink string, ok bool) {
	EventsPublishedTotal.WithLabelValues(sink, outcome(ok)).Inc()
}

// RecordSimBriefRequest records one SimBrief fetch.
func RecordSimBriefRequest(result string) {
	SimBriefRequestsTotal.WithLabelValues(result).Inc()
}

func outcome(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
