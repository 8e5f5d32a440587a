package models

import (
	"fmt"
	"strconv"
)

// Coordinates is a WGS84 position. It is produced once per geolocation request
// and never mutated afterwards.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the latitude and longitude are inside their ranges.
func (c Coordinates) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// Validate is Valid with an error describing the offending component.
func (c Coordinates) Validate() error {
	if !(c.Lat >= -90 && c.Lat <= 90) {
		return fmt.Errorf("latitude %v out of range [-90, 90]", c.Lat)
	}
	if !(c.Lon >= -180 && c.Lon <= 180) {
		return fmt.Errorf("longitude %v out of range [-180, 180]", c.Lon)
	}
	return nil
}

// LatString and LonString format without losing precision, as required when
// coordinates are embedded in query text.
func (c Coordinates) LatString() string { return strconv.FormatFloat(c.Lat, 'f', -1, 64) }
func (c Coordinates) LonString() string { return strconv.FormatFloat(c.Lon, 'f', -1, 64) }

func (c Coordinates) String() string {
	return c.LatString() + "," + c.LonString()
}

type Location struct {
	Name        string      `json:"name"`
	Coordinates Coordinates `json:"coordinates"`
	Source      string      `json:"source,omitempty"` // e.g., "nominatim"
}
