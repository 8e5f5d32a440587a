// Package location resolves free-text place names to coordinates through a
// Nominatim geocoder.
package location

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"rutasonora/models"
)

const DefaultBaseURL = "https://nominatim.openstreetmap.org"

// ErrNoResults is returned when the geocoder knows no place for the query.
var ErrNoResults = errors.New("location: no results")

// NominatimResponse is shaped for the search API response
type NominatimResponse []struct {
	PlaceID     int64   `json:"place_id"`
	OsmType     string  `json:"osm_type"`
	OsmID       int64   `json:"osm_id"`
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
	Class       string  `json:"class"`
	Type        string  `json:"type"`
	Importance  float64 `json:"importance"`
	Name        string  `json:"name"`
	DisplayName string  `json:"display_name"`
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	language   string
}

func NewClient(baseURL, userAgent string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if userAgent == "" {
		userAgent = "RutaSonora/1.0"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		userAgent:  userAgent,
		language:   "es",
	}
}

// Geocode looks up a place name and returns the best match.
func (c *Client) Geocode(ctx context.Context, query string) (models.Location, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", "1")
	params.Set("accept-language", c.language)

	u := fmt.Sprintf("%s/search?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return models.Location{}, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.Location{}, fmt.Errorf("location: search %q: %w", query, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Location{}, fmt.Errorf("location: unexpected status: %s", resp.Status)
	}

	var results NominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return models.Location{}, fmt.Errorf("location: decode: %w", err)
	}
	if len(results) == 0 {
		return models.Location{}, fmt.Errorf("%w for %s", ErrNoResults, query)
	}

	first := results[0]
	lat, err := strconv.ParseFloat(first.Lat, 64)
	if err != nil {
		return models.Location{}, fmt.Errorf("location: bad latitude %q: %w", first.Lat, err)
	}
	lon, err := strconv.ParseFloat(first.Lon, 64)
	if err != nil {
		return models.Location{}, fmt.Errorf("location: bad longitude %q: %w", first.Lon, err)
	}

	name := first.Name
	if name == "" {
		name = first.DisplayName
	}
	return models.Location{
		Name:        name,
		Coordinates: models.Coordinates{Lat: lat, Lon: lon},
		Source:      "nominatim",
	}, nil
}
