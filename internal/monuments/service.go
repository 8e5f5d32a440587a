package monuments

import (
	"context"
	"errors"
	"log"

	"rutasonora/models"
	"rutasonora/pkg/geo"
	"rutasonora/pkg/wikipedia"
)

const (
	NoticeNoMonuments   = "No se encontraron monumentos cercanos."
	NoticeNoMore        = "No se encontraron más monumentos."
	NoticeWikipediaDown = "Error al cargar datos de Wikipedia."
	NoDescription       = "Sin descripción disponible."
)

// Locator is implemented by *geo.Locator.
type Locator interface {
	Locate(ctx context.Context, req geo.Request) (models.Location, error)
}

// Summaries is implemented by *wikipedia.Client.
type Summaries interface {
	GeoSearch(ctx context.Context, coord models.Coordinates, radiusMeters, limit int) ([]string, error)
	FetchAll(ctx context.Context, titles []string) []wikipedia.SummaryItem
}

// Listing is one rendered state of the monument view. Top is the first item
// of the ordered list and is shown as the top card; Matched tells whether it
// was promoted by the requested name. Others holds everything after Top.
type Listing struct {
	Location models.Location         `json:"location"`
	Top      *wikipedia.SummaryItem  `json:"top,omitempty"`
	Matched  bool                    `json:"matched"`
	Others   []wikipedia.SummaryItem `json:"-"`
	Notice   string                  `json:"notice,omitempty"`
}

// NewListing splits an ordered list into the top card and the rest.
func NewListing(list OrderedList) Listing {
	if len(list.Items) == 0 {
		return Listing{Others: []wikipedia.SummaryItem{}}
	}
	top := list.Items[0]
	return Listing{
		Top:     &top,
		Matched: list.Featured,
		Others:  list.Items[1:],
	}
}

// Page returns page index of the non-top items.
func (l Listing) Page(index int) Page[wikipedia.SummaryItem] {
	return Paginate(l.Others, PageSize, index)
}

type Config struct {
	RadiusMeters int
	Limit        int
}

type Service struct {
	locator   Locator
	summaries Summaries
	cfg       Config
}

func NewService(locator Locator, summaries Summaries, cfg Config) *Service {
	if cfg.RadiusMeters <= 0 {
		cfg.RadiusMeters = wikipedia.DefaultRadiusMeters
	}
	if cfg.Limit <= 0 {
		cfg.Limit = wikipedia.DefaultLimit
	}
	return &Service{locator: locator, summaries: summaries, cfg: cfg}
}

// Nearby runs the whole chain for one request: locate, search titles near the
// position, fetch their summaries and order them around requested. A
// *geo.GeolocationError or a search failure is returned as error; an empty
// neighbourhood is a Listing with a notice.
func (s *Service) Nearby(ctx context.Context, req geo.Request, requested string) (Listing, error) {
	loc, err := s.locator.Locate(ctx, req)
	if err != nil {
		return Listing{}, err
	}

	titles, err := s.summaries.GeoSearch(ctx, loc.Coordinates, s.cfg.RadiusMeters, s.cfg.Limit)
	if err != nil {
		log.Printf("[monuments] geosearch around %s failed: %v", loc.Coordinates, err)
		return Listing{}, err
	}
	if len(titles) == 0 {
		return Listing{Location: loc, Others: []wikipedia.SummaryItem{}, Notice: NoticeNoMonuments}, nil
	}

	items := s.summaries.FetchAll(ctx, titles)
	if err := ctx.Err(); err != nil {
		return Listing{}, err
	}

	listing := NewListing(Order(items, requested))
	listing.Location = loc
	if len(listing.Others) == 0 {
		listing.Notice = NoticeNoMore
	}
	return listing, nil
}

// IsGeolocation reports whether err came from locating the caller.
func IsGeolocation(err error) bool {
	var geoErr *geo.GeolocationError
	return errors.As(err, &geoErr)
}
