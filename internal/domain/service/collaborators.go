package service

import (
	"context"

	"stroll/internal/domain/entity"
)

// DiscoveryFilter narrows a POI discovery query.
type DiscoveryFilter struct {
	Center     entity.Coordinate
	RadiusM    float64
	Categories []string
	Limit      int
}

// POIDiscovery supplies candidate POIs for an area. The engine treats the
// returned slice as a read-only pool and never mutates it.
type POIDiscovery interface {
	Discover(ctx context.Context, filter DiscoveryFilter) ([]*entity.POI, error)
}

// RouteSink is the persistence collaborator. The presentation layer saves a
// completed route after the fact; the engine itself never persists state.
type RouteSink interface {
	SaveRoute(ctx context.Context, route *entity.GeneratedRoute) error
}

// Enricher decorates a generated route with auxiliary descriptive content.
// It is invoked by the presentation layer after planning, never by the engine.
type Enricher interface {
	Enrich(ctx context.Context, route *entity.GeneratedRoute) error
}
