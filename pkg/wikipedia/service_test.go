package wikipedia

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"rutasonora/models"
)

type rewriteRoundTripper struct{ base *url.URL }

func (r rewriteRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	// clone the request to avoid mutating the original
	c := new(http.Request)
	*c = *req
	// rewrite scheme and host to point to the test server, keep path and query
	u := *req.URL
	c.URL = &u
	c.URL.Scheme = r.base.Scheme
	c.URL.Host = r.base.Host
	c.Host = r.base.Host
	return http.DefaultTransport.RoundTrip(c)
}

// newTestClient keeps the production URLs and reroutes them to serverURL.
func newTestClient(serverURL string) *Client {
	u, _ := url.Parse(serverURL)
	c := NewClient(Config{UserAgent: "test-agent", Concurrency: 2})
	c.httpClient = &http.Client{Transport: rewriteRoundTripper{base: u}}
	return c
}

func TestClient_GeoSearch(t *testing.T) {
	var gotQuery url.Values
	mux := http.NewServeMux()
	mux.HandleFunc("/w/api.php", func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		if ua := r.Header.Get("User-Agent"); ua != "test-agent" {
			t.Errorf("User-Agent = %q", ua)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(GeoSearchResponse{Query: GeoSearchQuery{GeoSearch: []GeoPage{
			{PageID: 1, Title: "Plaza Mayor (Madrid)"},
			{PageID: 2, Title: "Puerta del Sol"},
		}}})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(server.URL)
	tests := []struct {
		name       string
		radius     int
		limit      int
		wantRadius string
		wantLimit  string
	}{
		{name: "defaults", wantRadius: "10000", wantLimit: "50"},
		{name: "explicit", radius: 500, limit: 5, wantRadius: "500", wantLimit: "5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := client.GeoSearch(context.Background(), models.Coordinates{Lat: 40.4153, Lon: -3.6845}, tt.radius, tt.limit)
			if err != nil {
				t.Fatalf("GeoSearch error: %v", err)
			}
			want := []string{"Plaza Mayor (Madrid)", "Puerta del Sol"}
			if strings.Join(got, ",") != strings.Join(want, ",") {
				t.Errorf("titles = %v, want %v", got, want)
			}
			if gotQuery.Get("list") != "geosearch" || gotQuery.Get("action") != "query" {
				t.Errorf("unexpected query: %v", gotQuery)
			}
			if gotQuery.Get("gscoord") != "40.4153|-3.6845" {
				t.Errorf("gscoord = %q", gotQuery.Get("gscoord"))
			}
			if gotQuery.Get("gsradius") != tt.wantRadius || gotQuery.Get("gslimit") != tt.wantLimit {
				t.Errorf("radius/limit = %s/%s", gotQuery.Get("gsradius"), gotQuery.Get("gslimit"))
			}
		})
	}
}

func TestClient_GeoSearch_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).GeoSearch(context.Background(), models.Coordinates{}, 0, 0)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusServiceUnavailable {
		t.Fatalf("err = %v, want *APIError 503", err)
	}
}

func TestClient_Summary(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/rest_v1/page/summary/", func(w http.ResponseWriter, r *http.Request) {
		title := strings.TrimPrefix(r.URL.Path, "/api/rest_v1/page/summary/")
		w.Header().Set("Content-Type", "application/json")
		switch title {
		case "Palacio Real":
			_, _ = w.Write([]byte(`{"title":"Palacio Real de Madrid","extract":"Residencia oficial.","thumbnail":{"source":"https://img/palacio.jpg"}}`))
		case "Sin datos":
			_, _ = w.Write([]byte(`{}`))
		default:
			t.Errorf("unexpected title: %q", title)
			w.WriteHeader(http.StatusNotFound)
		}
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(server.URL)
	tests := []struct {
		name  string
		title string
		want  SummaryItem
	}{
		{name: "full summary", title: "Palacio Real", want: SummaryItem{Title: "Palacio Real de Madrid", Extract: "Residencia oficial.", Thumbnail: "https://img/palacio.jpg"}},
		{name: "missing fields fall back", title: "Sin datos", want: SummaryItem{Title: "Sin datos"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := client.Summary(context.Background(), tt.title)
			if err != nil {
				t.Fatalf("Summary error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v want %+v", got, tt.want)
			}
		})
	}
}

func TestClient_FetchAll_PlaceholderOnFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/rest_v1/page/summary/", func(w http.ResponseWriter, r *http.Request) {
		title := strings.TrimPrefix(r.URL.Path, "/api/rest_v1/page/summary/")
		if title == "Roto" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(SummaryResponse{Title: title, Extract: "texto " + title})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	titles := []string{"A", "Roto", "B", "C"}
	got := newTestClient(server.URL).FetchAll(context.Background(), titles)
	if len(got) != len(titles) {
		t.Fatalf("len = %d, want %d", len(got), len(titles))
	}
	for i, title := range titles {
		if got[i].Title != title {
			t.Errorf("idx %d: title %q want %q", i, got[i].Title, title)
		}
	}
	if !got[1].Failed() {
		t.Errorf("expected placeholder at idx 1, got %+v", got[1])
	}
	var apiErr *APIError
	if !errors.As(got[1].Err, &apiErr) {
		t.Errorf("placeholder err = %v, want *APIError", got[1].Err)
	}
	if got[0].Extract != "texto A" || got[0].Failed() {
		t.Errorf("idx 0 = %+v", got[0])
	}
}
