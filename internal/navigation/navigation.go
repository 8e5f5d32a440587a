// Package navigation names the application's views. Every view is a pure
// function of a URL path, plus a URL-encoded name for the monument view.
package navigation

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

type View string

const (
	Home      View = "home"
	Map       View = "map"
	Monuments View = "monuments"
	Monument  View = "monument"
	Login     View = "login"
	Register  View = "register"
	Uploads   View = "uploads"
)

var paths = map[View]string{
	Home:      "/",
	Map:       "/map",
	Monuments: "/monuments",
	Login:     "/login",
	Register:  "/register",
	Uploads:   "/uploads",
}

const monumentPrefix = "/monument/"

var ErrUnknownPath = errors.New("navigation: unknown path")

// Route is a view plus, for Monument, the requested monument name.
type Route struct {
	View View   `json:"view"`
	Name string `json:"name,omitempty"`
}

func To(v View) Route { return Route{View: v} }

func ToMonument(name string) Route { return Route{View: Monument, Name: name} }

// Path renders the route as a URL path.
func (r Route) Path() string {
	if r.View == Monument {
		return monumentPrefix + url.PathEscape(r.Name)
	}
	if p, ok := paths[r.View]; ok {
		return p
	}
	return paths[Home]
}

func (r Route) String() string { return r.Path() }

// Parse is the inverse of Route.Path. A trailing slash is ignored.
func Parse(path string) (Route, error) {
	if path == "" {
		path = "/"
	}
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	if rest, ok := strings.CutPrefix(path, monumentPrefix); ok {
		if rest == "" || strings.Contains(rest, "/") {
			return Route{}, fmt.Errorf("%w: %s", ErrUnknownPath, path)
		}
		name, err := url.PathUnescape(rest)
		if err != nil {
			return Route{}, fmt.Errorf("navigation: bad monument name %q: %w", rest, err)
		}
		return ToMonument(name), nil
	}
	for v, p := range paths {
		if p == path {
			return To(v), nil
		}
	}
	return Route{}, fmt.Errorf("%w: %s", ErrUnknownPath, path)
}

// Intent is what selecting a map feature or listing card asks for: open a
// route and optionally read a text aloud.
type Intent struct {
	Route   Route  `json:"route"`
	Path    string `json:"path"`
	Narrate string `json:"narrate,omitempty"`
}

func NewIntent(r Route, narrate string) Intent {
	return Intent{Route: r, Path: r.Path(), Narrate: narrate}
}

// ContextChanged reports whether moving from a to b changes the navigation
// context, which resets paging and stops narration.
func ContextChanged(a, b Route) bool {
	return a != b
}
