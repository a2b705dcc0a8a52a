// Package client is a Go client for the fstours HTTP API.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"fstours/internal/logging"
	"fstours/internal/tours"
)

// ProbeTourID is the tour Authenticate creates and removes to test a token.
const ProbeTourID = "__test__"

// ErrInvalidToken is returned by Authenticate when the server rejects the token.
var ErrInvalidToken = errors.New("invalid password")

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.Status)
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Status
	}
	return 0
}

// Client calls the API at a base URL. The token is sent on every request
// when set; reads do not need it.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithToken sets the bearer token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a client for the API at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns the configured bearer token.
func (c *Client) Token() string { return c.token }

// Tours.

// ListTours returns every tour.
func (c *Client) ListTours(ctx context.Context) ([]tours.Tour, error) {
	var out []tours.Tour
	err := c.do(ctx, http.MethodGet, "/tours", nil, &out, "Failed to fetch tours")
	return out, err
}

// GetTour returns one tour.
func (c *Client) GetTour(ctx context.Context, id string) (*tours.Tour, error) {
	var out tours.Tour
	if err := c.do(ctx, http.MethodGet, "/tours/"+url.PathEscape(id), nil, &out, "Failed to fetch tour"); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateTour creates a tour.
func (c *Client) CreateTour(ctx context.Context, in tours.TourInput) error {
	return c.do(ctx, http.MethodPost, "/tours", in, nil, "Failed to create tour")
}

// UpdateTour replaces a tour's description.
func (c *Client) UpdateTour(ctx context.Context, id, description string) error {
	body := tours.TourUpdate{Description: description}
	return c.do(ctx, http.MethodPut, "/tours/"+url.PathEscape(id), body, nil, "Failed to update tour")
}

// DeleteTour deletes a tour that has no legs.
func (c *Client) DeleteTour(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/tours/"+url.PathEscape(id), nil, nil, "Failed to delete tour")
}

// Legs.

// ListLegs returns every leg, enriched.
func (c *Client) ListLegs(ctx context.Context) ([]tours.EnrichedLeg, error) {
	var out []tours.EnrichedLeg
	err := c.do(ctx, http.MethodGet, "/legs", nil, &out, "Failed to fetch legs")
	return out, err
}

// ListTourLegs returns a tour's legs in flight order with sequence numbers.
func (c *Client) ListTourLegs(ctx context.Context, tourID string) ([]tours.EnrichedLeg, error) {
	var out []tours.EnrichedLeg
	err := c.do(ctx, http.MethodGet, "/tours/"+url.PathEscape(tourID)+"/legs", nil, &out,
		"Failed to fetch legs for tour "+tourID)
	return out, err
}

// GetLeg returns one enriched leg.
func (c *Client) GetLeg(ctx context.Context, id int64) (*tours.EnrichedLeg, error) {
	var out tours.EnrichedLeg
	if err := c.do(ctx, http.MethodGet, legPath(id), nil, &out, "Failed to fetch leg"); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateLeg creates a leg and returns its id.
func (c *Client) CreateLeg(ctx context.Context, in tours.LegInput) (int64, error) {
	var out struct {
		ID int64 `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/legs", in, &out, "Failed to add leg"); err != nil {
		return 0, err
	}
	return out.ID, nil
}

// UpdateLeg replaces a leg.
func (c *Client) UpdateLeg(ctx context.Context, id int64, in tours.LegInput) error {
	return c.do(ctx, http.MethodPut, legPath(id), in, nil, "Failed to update leg")
}

// DeleteLeg deletes a leg.
func (c *Client) DeleteLeg(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, legPath(id), nil, nil, "Failed to delete leg")
}

// Authenticate checks token by creating and then deleting the probe tour.
// Only a 401 rejects the token; a 409 from a leftover probe still proves
// the token was accepted, and a failed cleanup is only logged.
func (c *Client) Authenticate(ctx context.Context, token string) error {
	probe := &Client{baseURL: c.baseURL, token: token, http: c.http}

	err := probe.CreateTour(ctx, tours.TourInput{ID: ProbeTourID, Description: "Test"})
	switch StatusOf(err) {
	case 0:
		if err != nil {
			return err
		}
		if derr := probe.DeleteTour(ctx, ProbeTourID); derr != nil {
			logging.Ctx(ctx).Warn().Err(derr).Str("tour_id", ProbeTourID).Msg("remove probe tour failed")
		}
	case http.StatusUnauthorized:
		return ErrInvalidToken
	}

	c.token = token
	return nil
}

func legPath(id int64) string {
	return "/legs/" + strconv.FormatInt(id, 10)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any, fallback string) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", fallback, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Message: errorMessage(resp.Body, fallback)}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// errorMessage reads the server's message or error field, falling back
// when the body is not JSON or carries neither.
func errorMessage(r io.Reader, fallback string) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(r, 64<<10)).Decode(&body); err != nil {
		return fallback
	}
	switch {
	case body.Message != "":
		return body.Message
	case body.Error != "":
		return body.Error
	}
	return fallback
}
