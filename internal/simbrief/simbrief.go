// Package simbrief fetches the latest SimBrief operational flight plan for a
// pilot and turns it into a leg draft.
package simbrief

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"fstours/internal/logging"
	"fstours/internal/metrics"
	"fstours/internal/tours"
)

// DefaultBaseURL is the public SimBrief host.
const DefaultBaseURL = "https://www.simbrief.com"

var (
	// ErrFetchFailed is returned for transport errors and non-2xx responses.
	ErrFetchFailed = errors.New("failed to fetch SimBrief data")
	// ErrNoFlightPlan is returned when the response has no origin or destination.
	ErrNoFlightPlan = errors.New("no valid flight plan found for this username")
)

// LegDraft is a leg prefilled from a flight plan.
type LegDraft struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	Aircraft    string `json:"aircraft"`
	Route       string `json:"route"`
	Comments    string `json:"comments"`
	Link        string `json:"link"` // OFP PDF, empty when the plan has no request id.
}

// LegInput converts the draft into a leg create body for tourID. The PDF
// link goes into link1.
func (d LegDraft) LegInput(tourID string) tours.LegInput {
	opt := func(s string) *string {
		if s == "" {
			return nil
		}
		return &s
	}
	return tours.LegInput{
		TourID:      tourID,
		Origin:      d.Origin,
		Destination: d.Destination,
		Aircraft:    opt(d.Aircraft),
		Route:       opt(d.Route),
		Comments:    opt(d.Comments),
		Link1:       opt(d.Link),
	}
}

// Client talks to the SimBrief fetcher API. A circuit breaker stops calls
// after repeated upstream failures.
type Client struct {
	baseURL string
	http    *http.Client
	cb      *gobreaker.CircuitBreaker[*LegDraft]
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a client for baseURL, or DefaultBaseURL when empty.
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}

	c.cb = gobreaker.NewCircuitBreaker[*LegDraft](gobreaker.Settings{
		Name:        "simbrief",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		// A pilot without a plan is a valid answer, not an upstream fault.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNoFlightPlan)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	})
	return c
}

// FetchLatest returns a draft built from the pilot's most recent flight plan.
// Every error is wrapped as "simbrief import failed: ...".
func (c *Client) FetchLatest(ctx context.Context, username string) (*LegDraft, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, errors.New("simbrief import failed: username is required")
	}

	draft, err := c.cb.Execute(func() (*LegDraft, error) {
		return c.fetch(ctx, username)
	})
	switch {
	case err == nil:
		metrics.RecordSimBriefRequest("success")
		return draft, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.RecordSimBriefRequest("rejected")
	default:
		metrics.RecordSimBriefRequest("error")
	}
	return nil, fmt.Errorf("simbrief import failed: %w", err)
}

func (c *Client) fetch(ctx context.Context, username string) (*LegDraft, error) {
	q := url.Values{}
	q.Set("username", username)
	q.Set("json", "1")
	endpoint := c.baseURL + "/api/xml.fetcher.php?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, ErrFetchFailed
	}

	var plan ofp
	if err := json.NewDecoder(resp.Body).Decode(&plan); err != nil {
		return nil, fmt.Errorf("decode flight plan: %w", err)
	}
	return plan.draft()
}

// ofp is the subset of the SimBrief OFP JSON we read. SimBrief converts its
// XML to JSON, so scalars arrive as strings, numbers or empty objects.
type ofp struct {
	Origin      *airport `json:"origin"`
	Destination *airport `json:"destination"`
	Aircraft    struct {
		ICAOCode flexString `json:"icao_code"`
	} `json:"aircraft"`
	General struct {
		Route           flexString `json:"route"`
		RouteDistance   flexString `json:"route_distance"`
		InitialAltitude flexString `json:"initial_altitude"`
	} `json:"general"`
	Params struct {
		RequestID flexString `json:"request_id"`
	} `json:"params"`
	Files struct {
		Directory flexString `json:"directory"`
		PDF       struct {
			Link flexString `json:"link"`
		} `json:"pdf"`
	} `json:"files"`
}

type airport struct {
	ICAOCode flexString `json:"icao_code"`
}

func (p *ofp) draft() (*LegDraft, error) {
	if p.Origin == nil || p.Destination == nil {
		return nil, ErrNoFlightPlan
	}

	var parts []string
	if d := string(p.General.RouteDistance); d != "" {
		parts = append(parts, d+" nm")
	}
	if alt, err := strconv.ParseFloat(string(p.General.InitialAltitude), 64); err == nil && alt != 0 {
		parts = append(parts, fmt.Sprintf("FL%d", int(math.Floor(alt/100+0.5))))
	}

	d := &LegDraft{
		Origin:      string(p.Origin.ICAOCode),
		Destination: string(p.Destination.ICAOCode),
		Aircraft:    string(p.Aircraft.ICAOCode),
		Route:       string(p.General.Route),
		Comments:    strings.Join(parts, ", "),
	}
	if p.Params.RequestID != "" {
		d.Link = string(p.Files.Directory) + string(p.Files.PDF.Link)
	}
	return d, nil
}

// flexString accepts a JSON string or number; anything else decodes as "".
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if len(data) == 0 {
		*f = ""
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(strings.TrimSpace(s))
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		*f = flexString(data)
	default:
		*f = ""
	}
	return nil
}
