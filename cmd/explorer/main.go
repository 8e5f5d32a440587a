package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"rutasonora/internal/config"
	"rutasonora/internal/env"
	"rutasonora/internal/monuments"
	"rutasonora/internal/narration"
	"rutasonora/internal/navigation"
	"rutasonora/internal/places"
	"rutasonora/models"
	"rutasonora/pkg/geo"
	"rutasonora/pkg/graceful"
	"rutasonora/pkg/location"
	"rutasonora/pkg/overpass"
	"rutasonora/pkg/wikipedia"
)

const help = `comandos:
  n            página siguiente
  p            página anterior
  s [i]        leer en voz alta la tarjeta principal o el elemento i
  x            detener la lectura
  open <ruta>  abrir /map, /monuments o /monument/<nombre>
  q            salir`

type explorer struct {
	out      io.Writer
	req      geo.Request
	locator  *geo.Locator
	service  *monuments.Service
	places   *places.Session
	narrator *narration.Controller
	tracker  *monuments.Tracker

	route   navigation.Route
	listing monuments.Listing
	pager   *monuments.Pager
}

func main() {
	lat := flag.Float64("lat", 0, "latitude")
	lon := flag.Float64("lon", 0, "longitude")
	place := flag.String("place", "", "place name to geocode when no coordinates are given")
	name := flag.String("name", "", "monument to show first")
	quiet := flag.Bool("quiet", false, "hide request logs")
	flag.Parse()

	if *quiet {
		log.SetOutput(io.Discard)
	}
	env.LoadEnv()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, cancel := graceful.Context(context.Background())
	defer cancel()

	categories, err := overpass.LoadCategories(cfg.Overpass.CategoriesFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	locator := geo.NewLocator(location.NewClient(cfg.NominatimURL, cfg.UserAgent, cfg.GeoTimeout), cfg.GeoTimeout)
	wiki := wikipedia.NewClient(wikipedia.Config{
		APIURL:      cfg.Wikipedia.APIURL,
		RESTURL:     cfg.Wikipedia.RESTURL,
		UserAgent:   cfg.UserAgent,
		Concurrency: cfg.Wikipedia.Concurrency,
	})
	finder := overpass.NewClient(overpass.Config{
		Endpoint:   cfg.Overpass.URL,
		UserAgent:  cfg.UserAgent,
		Timeout:    cfg.Overpass.Timeout,
		Categories: categories,
	})

	req := geo.Request{Place: *place}
	if flagSet("lat") || flagSet("lon") {
		req.Coordinates = &models.Coordinates{Lat: *lat, Lon: *lon}
	}

	e := &explorer{
		out:     os.Stdout,
		req:     req,
		locator: locator,
		service: monuments.NewService(locator, wiki, monuments.Config{
			RadiusMeters: cfg.Wikipedia.RadiusMeters,
			Limit:        cfg.Wikipedia.Limit,
		}),
		places:   places.Open(finder, places.Options{RadiusMeters: cfg.Overpass.RadiusMeters}),
		narrator: narration.NewController(narration.NewExecSpeaker(cfg.TTSBinary)),
		tracker:  monuments.NewTracker(),
		pager:    monuments.NewPager(monuments.PageSize),
	}
	defer e.places.Close()
	defer e.narrator.Close()

	go func() {
		for speaking := range e.narrator.Changes() {
			if speaking {
				fmt.Fprintln(e.out, "[leyendo…]")
			} else {
				fmt.Fprintln(e.out, "[lectura terminada]")
			}
		}
	}()

	start := navigation.To(navigation.Monuments)
	if *name != "" {
		start = navigation.ToMonument(*name)
	}
	e.open(ctx, start)

	fmt.Fprintln(e.out, help)
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	for {
		fmt.Fprint(e.out, "> ")
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok || !e.handle(ctx, line) {
				return
			}
		}
	}
}

func flagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

// handle runs one command and reports whether to keep going.
func (e *explorer) handle(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return true
	}
	switch fields[0] {
	case "q":
		return false
	case "n":
		e.pager.Next()
		e.printPage()
	case "p":
		e.pager.Prev()
		e.printPage()
	case "x":
		e.narrator.Stop()
	case "s":
		e.speak(fields[1:])
	case "open":
		if len(fields) < 2 {
			fmt.Fprintln(e.out, "uso: open <ruta>")
			return true
		}
		route, err := navigation.Parse(strings.Join(fields[1:], " "))
		if err != nil {
			fmt.Fprintln(e.out, err)
			return true
		}
		e.open(ctx, route)
	default:
		fmt.Fprintln(e.out, help)
	}
	return true
}

// open switches to route. Changing the navigation context resets paging and
// stops narration.
func (e *explorer) open(ctx context.Context, route navigation.Route) {
	if navigation.ContextChanged(e.route, route) {
		e.narrator.Stop()
		e.pager.Reset()
	}
	e.route = route

	switch route.View {
	case navigation.Map:
		e.showMap(ctx)
	case navigation.Monuments, navigation.Monument:
		e.search(ctx, route.Name)
	default:
		fmt.Fprintf(e.out, "la vista %s solo está disponible en el servidor\n", route.View)
	}
}

func (e *explorer) search(ctx context.Context, requested string) {
	ctx, tok := e.tracker.Begin(ctx, "explorer")
	defer tok.Done()

	listing, err := e.service.Nearby(ctx, e.req, requested)
	if err != nil {
		var geoErr *geo.GeolocationError
		if errors.As(err, &geoErr) {
			fmt.Fprintln(e.out, geoErr.Notice())
		} else {
			fmt.Fprintln(e.out, monuments.NoticeWikipediaDown)
		}
		return
	}
	tok.Commit(func() {
		e.listing = listing
		e.pager.SetLen(len(listing.Others))
	})

	if loc := listing.Location; loc.Name != "" {
		fmt.Fprintf(e.out, "Ubicación: %s (%s)\n", loc.Name, loc.Coordinates)
	} else {
		fmt.Fprintf(e.out, "Ubicación: %s\n", loc.Coordinates)
	}
	if listing.Top != nil {
		label := "Destacado"
		if !listing.Matched && requested != "" {
			label = "Primero de la lista"
		}
		fmt.Fprintf(e.out, "\n%s: %s\n  %s\n", label, listing.Top.Title, extract(*listing.Top))
	}
	if listing.Notice != "" {
		fmt.Fprintln(e.out, listing.Notice)
	}
	e.printPage()
}

func (e *explorer) printPage() {
	page := e.listing.Page(e.pager.Index())
	if len(page.Items) == 0 {
		return
	}
	fmt.Fprintf(e.out, "\nPágina %d de %d\n", page.Index+1, page.TotalPages)
	for i, it := range page.Items {
		fmt.Fprintf(e.out, "%2d. %s\n    %s\n", i+1, it.Title, extract(it))
	}
}

func (e *explorer) speak(args []string) {
	if len(args) == 0 {
		if e.listing.Top == nil {
			return
		}
		e.narrator.Speak(extract(*e.listing.Top))
		return
	}
	i, err := strconv.Atoi(args[0])
	page := e.listing.Page(e.pager.Index())
	if err != nil || i < 1 || i > len(page.Items) {
		fmt.Fprintln(e.out, "elemento no válido")
		return
	}
	e.narrator.Speak(extract(page.Items[i-1]))
}

func (e *explorer) showMap(ctx context.Context) {
	loc, err := e.locator.Locate(ctx, e.req)
	if err != nil {
		var geoErr *geo.GeolocationError
		if errors.As(err, &geoErr) {
			fmt.Fprintln(e.out, geoErr.Notice())
		}
		return
	}

	res, err := e.places.Locate(ctx, loc.Coordinates)
	if res.Notice != "" {
		fmt.Fprintln(e.out, res.Notice)
	}
	if err != nil {
		return
	}
	layer, err := e.places.Layer()
	if err != nil {
		fmt.Fprintln(e.out, err)
		return
	}
	fmt.Fprintf(e.out, "Mapa centrado en %s (zoom %d)\n", res.View.Center, res.View.Zoom)
	for _, f := range layer.Features {
		if f.Properties["role"] != "place" {
			continue
		}
		fmt.Fprintf(e.out, "  %v  %s  → %v\n", f.ID, f.Properties.MustString("name", ""), f.Properties["path"])
	}
}

func extract(it wikipedia.SummaryItem) string {
	if strings.TrimSpace(it.Extract) == "" {
		return monuments.NoDescription
	}
	return it.Extract
}
