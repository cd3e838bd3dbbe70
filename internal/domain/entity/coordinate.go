// Package entity contains the core business objects of the project.
package entity

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// Coordinate is a geographic position in degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Point converts the coordinate to an orb.Point (lng, lat order).
func (c Coordinate) Point() orb.Point {
	return orb.Point{c.Lng, c.Lat}
}

// IsValid reports whether the coordinate lies within Earth bounds.
func (c Coordinate) IsValid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lng) ||
		math.IsInf(c.Lat, 0) || math.IsInf(c.Lng, 0) {
		return false
	}

	return c.Lat >= -90 && c.Lat <= 90 &&
		c.Lng >= -180 && c.Lng <= 180
}

// DistanceMeters returns the great-circle distance to another coordinate.
func (c Coordinate) DistanceMeters(other Coordinate) float64 {
	return geo.Distance(c.Point(), other.Point())
}
