package overpass

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	goverpass "github.com/serjvanilla/go-overpass"

	"rutasonora/models"
)

// ErrNotFound is returned by Lookup when the element does not exist.
var ErrNotFound = errors.New("overpass: element not found")

// Lookup resolves single elements by identity. It goes through go-overpass,
// which bounds parallel requests against the endpoint.
type Lookup struct {
	client     *goverpass.Client
	categories []Category
}

func NewLookup(cfg Config) *Lookup {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if len(cfg.Categories) == 0 {
		cfg.Categories = DefaultCategories()
	}
	httpClient := &http.Client{Timeout: cfg.Timeout}
	client := goverpass.NewWithSettings(cfg.Endpoint, 2, httpClient)
	return &Lookup{client: &client, categories: cfg.Categories}
}

func lookupQuery(ref FeatureRef) string {
	return fmt.Sprintf("[out:json][timeout:%d];%s(%d);out tags bb;", queryTimeoutSeconds, ref.Kind, ref.ID)
}

// Feature fetches the tags of one element and derives its name. Ways report
// the middle of their bounding box as position; relations carry no position.
func (l *Lookup) Feature(ctx context.Context, ref FeatureRef) (*RawFeature, error) {
	type outcome struct {
		res goverpass.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := l.client.Query(lookupQuery(ref))
		done <- outcome{res: res, err: err}
	}()

	var out outcome
	select {
	case <-ctx.Done():
		return nil, &NetworkError{Op: "lookup", Err: ctx.Err()}
	case out = <-done:
	}
	if out.err != nil {
		return nil, &NetworkError{Op: "lookup", Err: out.err}
	}

	f := RawFeature{Kind: ref.Kind, ID: ref.ID}
	switch ref.Kind {
	case KindNode:
		n, ok := out.res.Nodes[ref.ID]
		if !ok || n == nil {
			return nil, ErrNotFound
		}
		f.Tags = n.Tags
		f.Position = &models.Coordinates{Lat: n.Lat, Lon: n.Lon}
	case KindWay:
		w, ok := out.res.Ways[ref.ID]
		if !ok || w == nil {
			return nil, ErrNotFound
		}
		f.Tags = w.Tags
		if w.Bounds != nil {
			f.Position = &models.Coordinates{
				Lat: (w.Bounds.Min.Lat + w.Bounds.Max.Lat) / 2,
				Lon: (w.Bounds.Min.Lon + w.Bounds.Max.Lon) / 2,
			}
		}
	case KindRelation:
		r, ok := out.res.Relations[ref.ID]
		if !ok || r == nil {
			return nil, ErrNotFound
		}
		f.Tags = r.Tags
	default:
		return nil, fmt.Errorf("overpass: unknown kind %q", ref.Kind)
	}

	f.Name = PlaceName(f.Tags, l.categories)
	if cat, ok := matchCategory(f.Tags, l.categories); ok {
		f.Category = cat.Key + "=" + cat.Value
	}
	return &f, nil
}
