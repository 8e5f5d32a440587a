package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"rutasonora/models"
	"rutasonora/pkg/geo"
)

var errBadCoordinates = errors.New("lat and lon must both be numbers")

// geoRequest reads lat/lon, place and denied from the query string.
func geoRequest(r *http.Request) (geo.Request, error) {
	q := r.URL.Query()
	req := geo.Request{
		Place:  strings.TrimSpace(q.Get("place")),
		Denied: q.Get("denied") == "true" || q.Get("denied") == "1",
	}
	latStr, lonStr := q.Get("lat"), q.Get("lon")
	if latStr == "" && lonStr == "" {
		return req, nil
	}
	lat, err1 := strconv.ParseFloat(latStr, 64)
	lon, err2 := strconv.ParseFloat(lonStr, 64)
	if err1 != nil || err2 != nil {
		return geo.Request{}, &geo.GeolocationError{Reason: geo.ReasonInvalid, Err: errBadCoordinates}
	}
	req.Coordinates = &models.Coordinates{Lat: lat, Lon: lon}
	return req, nil
}

func pageIndex(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// clientKey identifies the caller for in-flight tracking and map sessions.
// It is set by ClientIdentity; the address is only a last resort for
// handlers mounted without it.
func clientKey(r *http.Request) string {
	if key, ok := r.Context().Value(clientKeyContextKey{}).(string); ok {
		return key
	}
	return "ip:" + clientIP(r)
}
