package entity

import (
	"time"

	"stroll/internal/errors"
)

// EndpointKind selects how a tour terminates.
type EndpointKind string

const (
	EndpointRoundtrip EndpointKind = "roundtrip"
	EndpointLastStop  EndpointKind = "lastStop"
	EndpointCustom    EndpointKind = "custom"
)

// EndpointPolicy resolves the final waypoint of a tour. Custom requires a
// coordinate; the other kinds ignore it.
type EndpointPolicy struct {
	Kind       EndpointKind
	Coordinate Coordinate
}

// PlanConstraints bound a planning request.
// A zero MaxWalkingTime or MinPOIDistance means unbounded.
type PlanConstraints struct {
	MaxStops       int
	MaxWalkingTime time.Duration
	MinPOIDistance float64 // meters
	Endpoint       EndpointPolicy
}

const maxMinPOIDistanceMeters = 1000.0

// Validate checks the constraint domains.
func (c PlanConstraints) Validate() error {
	switch c.MaxStops {
	case 3, 5, 8:
	default:
		return errors.Errorf("maxStops must be 3, 5 or 8, got %d", c.MaxStops)
	}

	if c.MaxWalkingTime < 0 {
		return errors.Errorf("maxWalkingTime must not be negative, got %s", c.MaxWalkingTime)
	}

	if c.MinPOIDistance < 0 || c.MinPOIDistance > maxMinPOIDistanceMeters {
		return errors.Errorf("minPOIDistance must be within 0..%.0fm, got %.0fm", maxMinPOIDistanceMeters, c.MinPOIDistance)
	}

	switch c.Endpoint.Kind {
	case EndpointRoundtrip, EndpointLastStop:
	case EndpointCustom:
		if !c.Endpoint.Coordinate.IsValid() {
			return errors.New("custom endpoint requires a valid coordinate")
		}
	default:
		return errors.Errorf("unknown endpoint kind %q", c.Endpoint.Kind)
	}

	return nil
}
