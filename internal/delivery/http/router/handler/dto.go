// Package handler contains the HTTP handlers of the planning API.
package handler

import (
	"time"

	"github.com/paulmach/orb"

	"stroll/internal/domain/entity"
	"stroll/internal/usecase"
	"stroll/internal/util"
)

// CoordinateDTO is a lat/lng pair in request and response bodies.
type CoordinateDTO struct {
	Lat float64 `json:"lat" validate:"min=-90,max=90"`
	Lng float64 `json:"lng" validate:"min=-180,max=180"`
}

// POIDTO carries a candidate point of interest.
type POIDTO struct {
	ID       string   `json:"id" validate:"required"`
	Name     string   `json:"name"`
	Category string   `json:"category"`
	Lat      float64  `json:"lat" validate:"min=-90,max=90"`
	Lng      float64  `json:"lng" validate:"min=-180,max=180"`
	Score    float64  `json:"score"`
	Tags     []string `json:"tags,omitempty"`
}

// EndpointDTO selects the tour endpoint policy. The coordinate is
// mandatory for the custom kind and ignored otherwise.
type EndpointDTO struct {
	Kind string   `json:"kind" validate:"required,oneof=roundtrip lastStop custom"`
	Lat  *float64 `json:"lat,omitempty" validate:"required_if=Kind custom,omitempty,min=-90,max=90"`
	Lng  *float64 `json:"lng,omitempty" validate:"required_if=Kind custom,omitempty,min=-180,max=180"`
}

// ConstraintsDTO bounds a planning request.
type ConstraintsDTO struct {
	MaxStops          int         `json:"max_stops" validate:"oneof=3 5 8"`
	MaxWalkingMinutes int         `json:"max_walking_minutes" validate:"min=0"`
	MinPOIDistanceM   float64     `json:"min_poi_distance_m" validate:"min=0,max=1000"`
	Endpoint          EndpointDTO `json:"endpoint" validate:"required"`
}

// WaypointDTO is one route position.
type WaypointDTO struct {
	Role string  `json:"role"`
	POI  *POIDTO `json:"poi,omitempty"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

// SegmentDTO is one walking leg between consecutive waypoints.
type SegmentDTO struct {
	DistanceM float64        `json:"distance_m"`
	DurationS float64        `json:"duration_s"`
	Path      orb.LineString `json:"path,omitempty"`
}

// RouteDTO is the generated tour.
type RouteDTO struct {
	Waypoints         []WaypointDTO `json:"waypoints"`
	Segments          []SegmentDTO  `json:"segments"`
	Stops             int           `json:"stops"`
	TotalDistanceM    float64       `json:"total_distance_m"`
	TotalDurationS    float64       `json:"total_duration_s"`
	TotalDurationText string        `json:"total_duration_text"`
}

// SessionDTO is the edit-session snapshot.
type SessionDTO struct {
	ID             string    `json:"id"`
	State          string    `json:"state"`
	PendingChanges int       `json:"pending_changes"`
	LastError      string    `json:"last_error,omitempty"`
	Route          *RouteDTO `json:"route,omitempty"`
}

func (d CoordinateDTO) toEntity() entity.Coordinate {
	return entity.Coordinate{Lat: d.Lat, Lng: d.Lng}
}

func (d POIDTO) toEntity() *entity.POI {
	return &entity.POI{
		ID:       d.ID,
		Name:     d.Name,
		Category: d.Category,
		Location: entity.Coordinate{Lat: d.Lat, Lng: d.Lng},
		Score:    d.Score,
		Tags:     d.Tags,
	}
}

func poisToEntities(dtos []POIDTO) []*entity.POI {
	pois := make([]*entity.POI, 0, len(dtos))
	for _, dto := range dtos {
		pois = append(pois, dto.toEntity())
	}

	return pois
}

func (d ConstraintsDTO) toEntity() entity.PlanConstraints {
	constraints := entity.PlanConstraints{
		MaxStops:       d.MaxStops,
		MaxWalkingTime: time.Duration(d.MaxWalkingMinutes) * time.Minute,
		MinPOIDistance: d.MinPOIDistanceM,
		Endpoint:       entity.EndpointPolicy{Kind: entity.EndpointKind(d.Endpoint.Kind)},
	}
	if d.Endpoint.Lat != nil && d.Endpoint.Lng != nil {
		constraints.Endpoint.Coordinate = entity.Coordinate{Lat: *d.Endpoint.Lat, Lng: *d.Endpoint.Lng}
	}

	return constraints
}

func poiToDTO(poi *entity.POI) *POIDTO {
	if poi == nil {
		return nil
	}

	return &POIDTO{
		ID:       poi.ID,
		Name:     poi.Name,
		Category: poi.Category,
		Lat:      poi.Location.Lat,
		Lng:      poi.Location.Lng,
		Score:    poi.Score,
		Tags:     poi.Tags,
	}
}

func routeToDTO(route *entity.GeneratedRoute) *RouteDTO {
	if route == nil {
		return nil
	}

	dto := &RouteDTO{
		Waypoints:         make([]WaypointDTO, 0, len(route.Waypoints)),
		Segments:          make([]SegmentDTO, 0, len(route.Segments)),
		Stops:             route.StopCount(),
		TotalDistanceM:    route.TotalDistance,
		TotalDurationS:    route.TotalDuration.Seconds(),
		TotalDurationText: util.FormatDuration(route.TotalDuration),
	}

	for _, wp := range route.Waypoints {
		dto.Waypoints = append(dto.Waypoints, WaypointDTO{
			Role: string(wp.Role),
			POI:  poiToDTO(wp.POI),
			Lat:  wp.Location.Lat,
			Lng:  wp.Location.Lng,
		})
	}
	for _, seg := range route.Segments {
		dto.Segments = append(dto.Segments, SegmentDTO{
			DistanceM: seg.DistanceMeters,
			DurationS: seg.Duration.Seconds(),
			Path:      seg.Path,
		})
	}

	return dto
}

func sessionToDTO(view *usecase.SessionView) *SessionDTO {
	if view == nil {
		return nil
	}

	return &SessionDTO{
		ID:             view.ID.String(),
		State:          string(view.State),
		PendingChanges: view.PendingChanges,
		LastError:      view.LastError,
		Route:          routeToDTO(view.Route),
	}
}
