// Package api exposes the monument listing, the place map, identity and
// uploads over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"rutasonora/internal/auth"
	"rutasonora/internal/monuments"
	"rutasonora/internal/places"
	"rutasonora/internal/uploads"
	"rutasonora/models"
	"rutasonora/pkg/geo"
	"rutasonora/pkg/overpass"
)

// Listings is implemented by *monuments.Service.
type Listings interface {
	Nearby(ctx context.Context, req geo.Request, requested string) (monuments.Listing, error)
}

// Locator is implemented by *geo.Locator.
type Locator interface {
	Locate(ctx context.Context, req geo.Request) (models.Location, error)
}

// FeatureLookup is implemented by *overpass.Lookup.
type FeatureLookup interface {
	Feature(ctx context.Context, ref overpass.FeatureRef) (*overpass.RawFeature, error)
}

// UploadSessions is implemented by *uploads.Manager.
type UploadSessions interface {
	Session(ownerID string) *uploads.Session
}

type Deps struct {
	Listings Listings
	Locator  Locator
	Places   places.Finder
	Lookup   FeatureLookup
	Uploads  UploadSessions
	Sessions auth.SessionFetcher
	// Auth serves /auth/*. Nil leaves identity routes unmounted.
	Auth http.Handler

	PlacesRadius int
}

type Options struct {
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
	// SecureCookie marks the anonymous client cookie Secure.
	SecureCookie bool
}

type Server struct {
	deps    Deps
	tracker *monuments.Tracker
	maps    *mapSessions
}

func NewServer(deps Deps) *Server {
	return &Server{
		deps:    deps,
		tracker: monuments.NewTracker(),
		maps:    newMapSessions(deps.Places, deps.PlacesRadius),
	}
}

// Router builds the chi router. The rate limiter's sweeper stops with ctx.
func (s *Server) Router(ctx context.Context, opts Options) http.Handler {
	limiter := NewIPRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst, 10*time.Minute)
	go limiter.Sweep(ctx, time.Minute)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(CORS(opts.CORSOrigins))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if s.deps.Auth != nil {
		r.Mount("/auth", s.deps.Auth)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(ClientIdentity(opts.SecureCookie))
		r.Group(func(r chi.Router) {
			r.Use(limiter.Middleware)
			r.Get("/monuments", s.listMonuments)
			r.Get("/places", s.listPlaces)
		})
		r.Get("/places/{kind}/{id}", s.placeIntent)

		if s.deps.Uploads != nil && s.deps.Sessions != nil {
			r.Route("/uploads", func(r chi.Router) {
				r.Use(auth.SessionMiddleware(s.deps.Sessions))
				r.Get("/", s.listUploads)
				r.Post("/", s.createUpload)
				r.Get("/stream", s.streamUploads)
				r.Delete("/{id}", s.deleteUpload)
			})
		}
	})
	return r
}

// Close releases every open map session.
func (s *Server) Close() {
	s.maps.closeAll()
}
