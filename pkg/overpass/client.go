// Package overpass finds named points of interest around a coordinate using
// the OpenStreetMap Overpass API.
package overpass

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"rutasonora/models"
)

const DefaultEndpoint = "https://overpass-api.de/api/interpreter"

// ErrEmptyResult is returned when the query succeeded but matched nothing.
var ErrEmptyResult = errors.New("overpass: no features found")

// NetworkError reports an unreachable service, a non-2xx status or an
// undecodable body.
type NetworkError struct {
	Op     string
	Status int
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("overpass %s: HTTP %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("overpass %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

type Config struct {
	Endpoint   string
	UserAgent  string
	Timeout    time.Duration
	Categories []Category
}

type Client struct {
	httpClient *http.Client
	endpoint   string
	userAgent  string
	categories []Category
}

func NewClient(cfg Config) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "RutaSonora/1.0"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if len(cfg.Categories) == 0 {
		cfg.Categories = DefaultCategories()
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		endpoint:   cfg.Endpoint,
		userAgent:  cfg.UserAgent,
		categories: cfg.Categories,
	}
}

func (c *Client) Categories() []Category { return c.categories }

// Find issues exactly one query for every category within radiusMeters of
// coord. Features lacking a position are dropped silently.
func (c *Client) Find(ctx context.Context, coord models.Coordinates, radiusMeters int) ([]RawFeature, error) {
	query := BuildQuery(coord, radiusMeters, c.categories)
	reqURL := c.endpoint + "?data=" + url.QueryEscape(query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &NetworkError{Op: "build request", Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	log.Printf("[overpass] GET around=%d coord=%s categories=%d", radiusMeters, coord, len(c.categories))
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: "query", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &NetworkError{Op: "query", Status: resp.StatusCode, Err: errors.New(resp.Status)}
	}

	var body response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &NetworkError{Op: "decode", Status: resp.StatusCode, Err: err}
	}
	log.Printf("[overpass] response status=%d duration=%dms elements=%d",
		resp.StatusCode, time.Since(start).Milliseconds(), len(body.Elements))

	if len(body.Elements) == 0 {
		return nil, ErrEmptyResult
	}
	return toFeatures(body.Elements, c.categories), nil
}
