package api

import (
	"errors"
	"log"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/paulmach/orb/geojson"

	"rutasonora/internal/navigation"
	"rutasonora/internal/places"
	"rutasonora/pkg/overpass"
)

const maxMapSessions = 1024

// mapSessions keeps the latest map of each client so a later feature
// selection resolves against the markers that client was shown. When full,
// the least recently used session is closed.
type mapSessions struct {
	finder places.Finder
	radius int
	limit  int

	mu       sync.Mutex
	sessions map[string]*mapEntry
	tick     uint64
}

type mapEntry struct {
	session  *places.Session
	lastUsed uint64
}

func newMapSessions(finder places.Finder, radius int) *mapSessions {
	return &mapSessions{finder: finder, radius: radius, limit: maxMapSessions, sessions: make(map[string]*mapEntry)}
}

// touch must be called with mu held.
func (m *mapSessions) touch(e *mapEntry) {
	m.tick++
	e.lastUsed = m.tick
}

func (m *mapSessions) get(key string) (*places.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[key]
	if !ok {
		return nil, false
	}
	m.touch(e)
	return e.session, true
}

func (m *mapSessions) open(key string) *places.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.sessions[key]; ok {
		m.touch(e)
		return e.session
	}
	if len(m.sessions) >= m.limit {
		m.evictOldest()
	}
	e := &mapEntry{session: places.Open(m.finder, places.Options{RadiusMeters: m.radius})}
	m.touch(e)
	m.sessions[key] = e
	return e.session
}

// evictOldest must be called with mu held.
func (m *mapSessions) evictOldest() {
	var (
		oldestKey string
		oldest    *mapEntry
	)
	for k, e := range m.sessions {
		if oldest == nil || e.lastUsed < oldest.lastUsed {
			oldestKey, oldest = k, e
		}
	}
	if oldest == nil {
		return
	}
	oldest.session.Close()
	delete(m.sessions, oldestKey)
}

func (m *mapSessions) closeAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, e := range m.sessions {
		e.session.Close()
		delete(m.sessions, k)
	}
}

type placesResponse struct {
	View   places.View                `json:"view"`
	Layer  *geojson.FeatureCollection `json:"layer"`
	Notice string                     `json:"notice,omitempty"`
}

func (s *Server) listPlaces(w http.ResponseWriter, r *http.Request) {
	req, err := geoRequest(r)
	if err != nil {
		writeError(w, err, places.NoticeSearchError)
		return
	}
	loc, err := s.deps.Locator.Locate(r.Context(), req)
	if err != nil {
		writeError(w, err, places.NoticeSearchError)
		return
	}

	session := s.maps.open(clientKey(r))
	res, err := session.Locate(r.Context(), loc.Coordinates)
	if err != nil {
		writeError(w, err, places.NoticeSearchError)
		return
	}
	layer, err := session.Layer()
	if err != nil {
		writeError(w, err, places.NoticeSearchError)
		return
	}
	writeJSON(w, http.StatusOK, placesResponse{View: res.View, Layer: layer, Notice: res.Notice})
}

// placeIntent answers what selecting a marker does. Markers from the caller's
// last map are resolved locally; anything else goes through the lookup.
func (s *Server) placeIntent(w http.ResponseWriter, r *http.Request) {
	ref, err := overpass.ParseFeatureRef(chi.URLParam(r, "kind"), chi.URLParam(r, "id"))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	if session, ok := s.maps.get(clientKey(r)); ok {
		if in, err := session.Intent(ref); err == nil {
			writeJSON(w, http.StatusOK, in)
			return
		}
	}

	if s.deps.Lookup == nil {
		writeMessage(w, http.StatusNotFound, msgNotFound)
		return
	}
	f, err := s.deps.Lookup.Feature(r.Context(), ref)
	if errors.Is(err, overpass.ErrNotFound) {
		writeMessage(w, http.StatusNotFound, msgNotFound)
		return
	}
	if err != nil {
		log.Printf("[api] lookup %s: %v", ref, err)
		writeError(w, err, places.NoticeSearchError)
		return
	}
	writeJSON(w, http.StatusOK, navigation.NewIntent(navigation.ToMonument(f.Name), ""))
}
