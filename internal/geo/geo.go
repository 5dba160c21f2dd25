// Package geo turns capture coordinates into a human-readable address.
package geo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrInvalidCoordinates is returned for a latitude or longitude out of range.
var ErrInvalidCoordinates = errors.New("coordinates out of range")

// Coordinates is a WGS84 position in decimal degrees.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate checks the coordinates are finite and within range.
func (c Coordinates) Validate() error {
	if math.IsNaN(c.Latitude) || math.IsNaN(c.Longitude) ||
		c.Latitude < -90 || c.Latitude > 90 ||
		c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("%w: %v, %v", ErrInvalidCoordinates, c.Latitude, c.Longitude)
	}
	return nil
}

// Place is the result of a reverse lookup. Any part may be empty.
type Place struct {
	Name    string
	City    string
	Country string
}

// Geocoder resolves coordinates to a place.
type Geocoder interface {
	Reverse(ctx context.Context, c Coordinates) (Place, error)
}

// FormatAddress joins the non-empty parts of p as "name, city, country".
func FormatAddress(p Place) string {
	parts := make([]string, 0, 3)
	for _, s := range []string{p.Name, p.City, p.Country} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

// StaticGeocoder returns the same place for every position.
type StaticGeocoder struct {
	Place Place
}

// Reverse returns g.Place.
func (g StaticGeocoder) Reverse(ctx context.Context, c Coordinates) (Place, error) {
	if err := ctx.Err(); err != nil {
		return Place{}, err
	}
	if err := c.Validate(); err != nil {
		return Place{}, err
	}
	return g.Place, nil
}

// CoordinateGeocoder works offline: the place name is the coordinates
// themselves, to five decimals.
type CoordinateGeocoder struct{}

// Reverse returns a place named "lat, lon".
func (CoordinateGeocoder) Reverse(ctx context.Context, c Coordinates) (Place, error) {
	if err := ctx.Err(); err != nil {
		return Place{}, err
	}
	if err := c.Validate(); err != nil {
		return Place{}, err
	}
	return Place{Name: fmt.Sprintf("%.5f, %.5f", c.Latitude, c.Longitude)}, nil
}
