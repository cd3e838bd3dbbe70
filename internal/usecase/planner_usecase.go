// Package usecase defines the application-facing contracts of the planning
// engine.
package usecase

import (
	"context"

	"stroll/internal/domain/entity"
)

// SegmentSource prices an ordered coordinate list into walking segments.
// The directions gateway is the production implementation.
type SegmentSource interface {
	// Segments returns the N-1 walking segments for N ordered coordinates,
	// positioned by request index.
	Segments(ctx context.Context, coords []entity.Coordinate) ([]entity.RouteSegment, error)
}

// PlannerUsecase selects and orders a subset of candidate POIs into a tour.
type PlannerUsecase interface {
	// Plan builds a walking tour from the start coordinate through up to
	// MaxStops of the candidates, honoring the given constraints.
	Plan(ctx context.Context, start entity.Coordinate, candidates []*entity.POI, constraints entity.PlanConstraints) (*entity.GeneratedRoute, error)
}
