package entity

import (
	"time"

	"github.com/paulmach/orb"

	"stroll/internal/errors"
)

// WaypointRole marks the position kind of a waypoint within a route.
type WaypointRole string

const (
	RoleStart WaypointRole = "start"
	RoleStop  WaypointRole = "stop"
	RoleEnd   WaypointRole = "end"
)

// Waypoint binds a POI into a route position. Start and end waypoints may be
// bare coordinates without a POI (roundtrip or custom endpoints).
type Waypoint struct {
	POI      *POI
	Role     WaypointRole
	Location Coordinate
}

// RouteSegment is the walking path between two consecutive waypoints.
// Path is the provider geometry and is treated as opaque by the engine.
type RouteSegment struct {
	From           Coordinate
	To             Coordinate
	DistanceMeters float64
	Duration       time.Duration
	Path           orb.LineString
}

// GeneratedRoute is an ordered tour: waypoints, the walking segments between
// them, and aggregate metrics. Aggregates are always derived from the current
// segments; the route is replaced wholesale on re-optimization, never patched.
type GeneratedRoute struct {
	Waypoints     []Waypoint
	Segments      []RouteSegment
	TotalDistance float64
	TotalDuration time.Duration
}

// NewGeneratedRoute assembles a route and computes its aggregates.
// It enforces the segments/waypoints pairing invariant.
func NewGeneratedRoute(waypoints []Waypoint, segments []RouteSegment) (*GeneratedRoute, error) {
	if len(waypoints) < 2 {
		return nil, errors.Errorf("route needs at least start and end, got %d waypoints", len(waypoints))
	}
	if len(segments) != len(waypoints)-1 {
		return nil, errors.Errorf("segment count %d does not pair with %d waypoints", len(segments), len(waypoints))
	}

	route := &GeneratedRoute{
		Waypoints: waypoints,
		Segments:  segments,
	}
	for _, seg := range segments {
		route.TotalDistance += seg.DistanceMeters
		route.TotalDuration += seg.Duration
	}

	return route, nil
}

// StopCount returns the number of intermediate stops (start and end excluded).
func (r *GeneratedRoute) StopCount() int {
	count := 0
	for _, wp := range r.Waypoints {
		if wp.Role == RoleStop {
			count++
		}
	}

	return count
}

// StopPOIs returns the POIs bound to intermediate stops, in route order.
func (r *GeneratedRoute) StopPOIs() []*POI {
	pois := make([]*POI, 0, len(r.Waypoints))
	for _, wp := range r.Waypoints {
		if wp.Role == RoleStop && wp.POI != nil {
			pois = append(pois, wp.POI)
		}
	}

	return pois
}

// ContainsPOI reports whether a POI with the given identifier is bound
// anywhere in the route.
func (r *GeneratedRoute) ContainsPOI(id string) bool {
	for _, wp := range r.Waypoints {
		if wp.POI != nil && wp.POI.ID == id {
			return true
		}
	}

	return false
}

// Clone returns a deep copy of the route. Sessions hold clones so that a
// displayed route is never shared with the planner.
func (r *GeneratedRoute) Clone() *GeneratedRoute {
	cloned := &GeneratedRoute{
		Waypoints:     make([]Waypoint, len(r.Waypoints)),
		Segments:      make([]RouteSegment, len(r.Segments)),
		TotalDistance: r.TotalDistance,
		TotalDuration: r.TotalDuration,
	}
	copy(cloned.Waypoints, r.Waypoints)
	for i, seg := range r.Segments {
		segCopy := seg
		if seg.Path != nil {
			segCopy.Path = make(orb.LineString, len(seg.Path))
			copy(segCopy.Path, seg.Path)
		}
		cloned.Segments[i] = segCopy
	}

	return cloned
}
