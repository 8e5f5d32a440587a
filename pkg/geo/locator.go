// Package geo produces a single best-effort coordinate for a request.
package geo

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"rutasonora/models"
)

type Reason string

const (
	ReasonDenied      Reason = "denied"
	ReasonTimeout     Reason = "timeout"
	ReasonUnsupported Reason = "unsupported"
	ReasonInvalid     Reason = "invalid"
	ReasonUnavailable Reason = "unavailable"
)

// GeolocationError explains why no coordinate could be produced.
type GeolocationError struct {
	Reason Reason
	Err    error
}

func (e *GeolocationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("geolocation %s: %v", e.Reason, e.Err)
	}
	return "geolocation " + string(e.Reason)
}

func (e *GeolocationError) Unwrap() error { return e.Err }

// Notice is the user-facing text for the error.
func (e *GeolocationError) Notice() string {
	if e.Reason == ReasonUnsupported {
		return "Geolocalización no soportada por el navegador."
	}
	return "No se pudo obtener la ubicación."
}

// Geocoder resolves a place name. *location.Client implements it.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (models.Location, error)
}

// Request carries what the client knows about its position. Coordinates win
// over Place; Denied records that the user refused to share a position.
type Request struct {
	Coordinates *models.Coordinates
	Place       string
	Denied      bool
}

type Locator struct {
	geocoder Geocoder
	timeout  time.Duration
}

// NewLocator returns a Locator. geocoder may be nil, in which case only
// explicit coordinates are accepted.
func NewLocator(geocoder Geocoder, timeout time.Duration) *Locator {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Locator{geocoder: geocoder, timeout: timeout}
}

// Locate returns exactly one coordinate or a *GeolocationError.
func (l *Locator) Locate(ctx context.Context, req Request) (models.Location, error) {
	if req.Coordinates != nil {
		if err := req.Coordinates.Validate(); err != nil {
			return models.Location{}, &GeolocationError{Reason: ReasonInvalid, Err: err}
		}
		return models.Location{Coordinates: *req.Coordinates, Source: "client"}, nil
	}

	place := strings.TrimSpace(req.Place)
	if place == "" || l.geocoder == nil {
		if req.Denied {
			return models.Location{}, &GeolocationError{Reason: ReasonDenied}
		}
		return models.Location{}, &GeolocationError{Reason: ReasonUnsupported}
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	loc, err := l.geocoder.Geocode(ctx, place)
	if err != nil {
		log.Printf("[geo] geocode %q failed: %v", place, err)
		if errors.Is(err, context.DeadlineExceeded) {
			return models.Location{}, &GeolocationError{Reason: ReasonTimeout, Err: err}
		}
		return models.Location{}, &GeolocationError{Reason: ReasonUnavailable, Err: err}
	}
	if !loc.Coordinates.Valid() {
		return models.Location{}, &GeolocationError{Reason: ReasonInvalid, Err: fmt.Errorf("geocoder returned %s", loc.Coordinates)}
	}
	return loc, nil
}
