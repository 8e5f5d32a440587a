// Package places owns the state of one map view: where it is centred, the
// user's marker, the markers of nearby places and what selecting each of
// them does.
package places

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"rutasonora/internal/navigation"
	"rutasonora/models"
	"rutasonora/pkg/overpass"
)

const (
	DefaultRadiusMeters = 1500
	InitialZoom         = 6
	UserZoom            = 15
	UserMarkerLabel     = "¡Estás aquí!"
	DetailsLabel        = "Ver detalles"

	NoticeNoPlaces    = "No se encontraron lugares emblemáticos cerca."
	NoticeSearchError = "Error al buscar lugares emblemáticos cercanos."
)

// SpainCenter is where a fresh map is centred.
var SpainCenter = models.Coordinates{Lat: 40.0, Lon: -3.7}

var (
	ErrSessionClosed  = errors.New("places: map session closed")
	ErrUnknownFeature = errors.New("places: unknown feature")
)

// Finder is implemented by *overpass.Client.
type Finder interface {
	Find(ctx context.Context, coord models.Coordinates, radiusMeters int) ([]overpass.RawFeature, error)
}

type Options struct {
	RadiusMeters int
}

type View struct {
	Center models.Coordinates `json:"center"`
	Zoom   int                `json:"zoom"`
}

type Marker struct {
	Position models.Coordinates `json:"position"`
	Label    string             `json:"label"`
}

// Result summarises one Locate call.
type Result struct {
	View   View   `json:"view"`
	Places int    `json:"places"`
	Notice string `json:"notice,omitempty"`
}

type Session struct {
	finder Finder
	radius int

	mu       sync.Mutex
	closed   bool
	gen      uint64
	view     View
	user     *Marker
	features []overpass.RawFeature
	intents  map[overpass.FeatureRef]navigation.Intent
}

func Open(finder Finder, opts Options) *Session {
	if opts.RadiusMeters <= 0 {
		opts.RadiusMeters = DefaultRadiusMeters
	}
	return &Session{
		finder:  finder,
		radius:  opts.RadiusMeters,
		view:    View{Center: SpainCenter, Zoom: InitialZoom},
		intents: make(map[overpass.FeatureRef]navigation.Intent),
	}
}

// Locate centres the map on coord, moves the user marker there and replaces
// the place markers with what the finder returns around it. An empty result
// is reported as a notice, not an error.
func (s *Session) Locate(ctx context.Context, coord models.Coordinates) (Result, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Result{}, ErrSessionClosed
	}
	s.gen++
	gen := s.gen
	s.view = View{Center: coord, Zoom: UserZoom}
	if s.user == nil {
		s.user = &Marker{Label: UserMarkerLabel}
	}
	s.user.Position = coord
	s.features = nil
	s.intents = make(map[overpass.FeatureRef]navigation.Intent)
	view := s.view
	s.mu.Unlock()

	features, err := s.finder.Find(ctx, coord, s.radius)
	if errors.Is(err, overpass.ErrEmptyResult) {
		return Result{View: view, Notice: NoticeNoPlaces}, nil
	}
	if err != nil {
		log.Printf("[places] search around %s failed: %v", coord, err)
		return Result{View: view, Notice: NoticeSearchError}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Result{}, ErrSessionClosed
	}
	if s.gen != gen {
		// A newer Locate took over the map.
		return Result{View: view}, nil
	}
	s.features = features
	for _, f := range features {
		s.intents[f.Ref()] = navigation.NewIntent(navigation.ToMonument(f.Name), "")
	}
	return Result{View: view, Places: len(features)}, nil
}

func (s *Session) View() (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return View{}, ErrSessionClosed
	}
	return s.view, nil
}

// UserMarker returns the user's marker, or nil before the first Locate.
func (s *Session) UserMarker() (*Marker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	if s.user == nil {
		return nil, nil
	}
	m := *s.user
	return &m, nil
}

// Layer renders the user marker and the place markers as GeoJSON.
func (s *Session) Layer() (*geojson.FeatureCollection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}

	fc := geojson.NewFeatureCollection()
	if s.user != nil {
		f := geojson.NewFeature(point(s.user.Position))
		f.Properties["role"] = "user"
		f.Properties["label"] = s.user.Label
		fc.Append(f)
	}
	for _, pf := range s.features {
		if pf.Position == nil {
			continue
		}
		ref := pf.Ref()
		f := geojson.NewFeature(point(*pf.Position))
		f.ID = ref.String()
		f.Properties["role"] = "place"
		f.Properties["kind"] = string(ref.Kind)
		f.Properties["osm_id"] = ref.ID
		f.Properties["name"] = pf.Name
		f.Properties["action"] = DetailsLabel
		if pf.Category != "" {
			f.Properties["category"] = pf.Category
		}
		if in, ok := s.intents[ref]; ok {
			f.Properties["path"] = in.Path
		}
		fc.Append(f)
	}
	return fc, nil
}

// Intent returns what selecting the feature ref does.
func (s *Session) Intent(ref overpass.FeatureRef) (navigation.Intent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return navigation.Intent{}, ErrSessionClosed
	}
	in, ok := s.intents[ref]
	if !ok {
		return navigation.Intent{}, ErrUnknownFeature
	}
	return in, nil
}

// Close releases the view, the markers and the intent table together.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.user = nil
	s.features = nil
	s.intents = nil
}

func point(c models.Coordinates) orb.Point {
	return orb.Point{c.Lon, c.Lat}
}
