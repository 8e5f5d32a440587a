package wikipedia

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"rutasonora/models"
)

const (
	DefaultAPIURL  = "https://es.wikipedia.org/w/api.php"
	DefaultRESTURL = "https://es.wikipedia.org/api/rest_v1"

	DefaultRadiusMeters = 10000
	DefaultLimit        = 50
	DefaultConcurrency  = 8
)

// APIError is returned for any non-2xx answer from Wikipedia.
type APIError struct {
	URL    string
	Status int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("wikipedia: %s returned HTTP %d", e.URL, e.Status)
}

type Config struct {
	APIURL      string
	RESTURL     string
	UserAgent   string
	Timeout     time.Duration
	Concurrency int
}

type Client struct {
	httpClient  *http.Client
	apiURL      string
	restURL     string
	userAgent   string
	concurrency int
}

func NewClient(cfg Config) *Client {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.RESTURL == "" {
		cfg.RESTURL = DefaultRESTURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "RutaSonora/1.0"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	return &Client{
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		apiURL:      cfg.APIURL,
		restURL:     cfg.RESTURL,
		userAgent:   cfg.UserAgent,
		concurrency: cfg.Concurrency,
	}
}

// GeoSearch lists article titles geotagged within radiusMeters of coord, in
// the order Wikipedia returns them.
func (c *Client) GeoSearch(ctx context.Context, coord models.Coordinates, radiusMeters, limit int) ([]string, error) {
	if radiusMeters <= 0 {
		radiusMeters = DefaultRadiusMeters
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	q := url.Values{}
	q.Set("action", "query")
	q.Set("list", "geosearch")
	q.Set("gscoord", coord.LatString()+"|"+coord.LonString())
	q.Set("gsradius", strconv.Itoa(radiusMeters))
	q.Set("gslimit", strconv.Itoa(limit))
	q.Set("format", "json")

	var resp GeoSearchResponse
	if err := c.getJSON(ctx, c.apiURL+"?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	titles := make([]string, 0, len(resp.Query.GeoSearch))
	for _, p := range resp.Query.GeoSearch {
		titles = append(titles, p.Title)
	}
	return titles, nil
}

// Summary fetches the REST page summary for title. A response without a
// title keeps the requested one.
func (c *Client) Summary(ctx context.Context, title string) (SummaryItem, error) {
	reqURL := c.restURL + "/page/summary/" + url.PathEscape(title)

	var resp SummaryResponse
	if err := c.getJSON(ctx, reqURL, &resp); err != nil {
		return SummaryItem{}, err
	}
	item := SummaryItem{Title: resp.Title, Extract: resp.Extract}
	if item.Title == "" {
		item.Title = title
	}
	if resp.Thumbnail != nil {
		item.Thumbnail = resp.Thumbnail.Source
	}
	return item, nil
}

func (c *Client) getJSON(ctx context.Context, reqURL string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("wikipedia: build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("wikipedia: request %s: %w", reqURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Printf("[wikipedia] %s -> HTTP %d", reqURL, resp.StatusCode)
		return &APIError{URL: reqURL, Status: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("wikipedia: decode %s: %w", reqURL, err)
	}
	return nil
}
