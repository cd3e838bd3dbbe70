// Package impl contains the concrete use case services.
package impl

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"stroll/config"
	"stroll/internal/domain/entity"
	domainerrors "stroll/internal/domain/errors"
	"stroll/internal/errors"
	"stroll/internal/usecase"
)

type plannerService struct {
	segments          usecase.SegmentSource
	improvementPasses int
	planTimeout       time.Duration
	walkSpeedKmh      float64
	logger            *slog.Logger
}

// NewPlannerService creates the waypoint sequencer.
func NewPlannerService(cfg *config.Config, segments usecase.SegmentSource, logger *slog.Logger) usecase.PlannerUsecase {
	return &plannerService{
		segments:          segments,
		improvementPasses: cfg.Planner.ImprovementPasses,
		planTimeout:       cfg.Planner.PlanTimeout,
		walkSpeedKmh:      cfg.Planner.WalkingSpeedKmh,
		logger:            logger,
	}
}

// Plan selects, orders and prices a tour. The heuristic is greedy with 2-opt
// local improvement: candidate counts are small (at most 8 stops), so
// near-optimal with bounded latency beats exact TSP.
func (s *plannerService) Plan(ctx context.Context, start entity.Coordinate, candidates []*entity.POI, constraints entity.PlanConstraints) (*entity.GeneratedRoute, error) {
	if !start.IsValid() {
		return nil, domainerrors.ErrValidationFailed.WithDetails("start coordinate is out of bounds")
	}
	if err := constraints.Validate(); err != nil {
		return nil, domainerrors.ErrValidationFailed.WithDetails(err.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, s.planTimeout)
	defer cancel()

	usable := usableCandidates(candidates)
	if len(usable) == 0 {
		return nil, domainerrors.ErrNoCandidates
	}

	spaced := filterByMinDistance(usable, constraints.MinPOIDistance)
	selected := selectStops(spaced, constraints.MaxStops)

	ordered := nearestNeighborOrder(start, selected)
	ordered = s.improveOrder(start, ordered, constraints.Endpoint)

	route, err := s.priceWithBudget(ctx, start, ordered, constraints)
	if err != nil {
		return nil, err
	}

	s.logger.Info("planned route",
		slog.Int("candidates", len(candidates)),
		slog.Int("stops", route.StopCount()),
		slog.Duration("total", route.TotalDuration),
	)

	return route, nil
}

// usableCandidates drops nil entries and POIs without a valid location.
func usableCandidates(candidates []*entity.POI) []*entity.POI {
	usable := make([]*entity.POI, 0, len(candidates))
	for _, poi := range candidates {
		if poi == nil || poi.ID == "" || !poi.Location.IsValid() {
			continue
		}
		usable = append(usable, poi)
	}

	return usable
}

// filterByMinDistance enforces pairwise spacing with greedy retention: POIs
// are considered best first and a candidate is kept only when it is far
// enough from everything already kept. Equal scores keep input order, which
// is the documented deterministic tie-break.
func filterByMinDistance(candidates []*entity.POI, minDistance float64) []*entity.POI {
	if minDistance <= 0 || len(candidates) < 2 {
		return candidates
	}

	byScore := sortedByScore(candidates)

	kept := make([]*entity.POI, 0, len(byScore))
	for _, poi := range byScore {
		tooClose := false
		for _, other := range kept {
			if poi.Location.DistanceMeters(other.Location) < minDistance {
				tooClose = true

				break
			}
		}
		if !tooClose {
			kept = append(kept, poi)
		}
	}

	return kept
}

// selectStops picks up to maxStops candidates, preferring category diversity
// first and score second.
func selectStops(candidates []*entity.POI, maxStops int) []*entity.POI {
	if len(candidates) <= maxStops {
		return candidates
	}

	byScore := sortedByScore(candidates)

	selected := make([]*entity.POI, 0, maxStops)
	taken := make(map[string]bool, len(byScore))
	seenCategory := make(map[string]bool)

	// First pass favors one stop per category.
	for _, poi := range byScore {
		if len(selected) == maxStops {
			return selected
		}
		if seenCategory[poi.Category] {
			continue
		}
		seenCategory[poi.Category] = true
		taken[poi.ID] = true
		selected = append(selected, poi)
	}

	// Fill the remaining slots by score.
	for _, poi := range byScore {
		if len(selected) == maxStops {
			break
		}
		if taken[poi.ID] {
			continue
		}
		taken[poi.ID] = true
		selected = append(selected, poi)
	}

	return selected
}

// sortedByScore returns the candidates ordered by descending score, stable
// over input order for equal scores.
func sortedByScore(candidates []*entity.POI) []*entity.POI {
	byScore := make([]*entity.POI, len(candidates))
	copy(byScore, candidates)
	sort.SliceStable(byScore, func(i, j int) bool {
		return byScore[i].Score > byScore[j].Score
	})

	return byScore
}

// nearestNeighborOrder builds an initial ordering by repeatedly walking to
// the closest unvisited stop, straight-line priced.
func nearestNeighborOrder(start entity.Coordinate, pois []*entity.POI) []*entity.POI {
	remaining := make([]*entity.POI, len(pois))
	copy(remaining, pois)

	ordered := make([]*entity.POI, 0, len(pois))
	current := start
	for len(remaining) > 0 {
		best := 0
		bestDistance := current.DistanceMeters(remaining[0].Location)
		for i := 1; i < len(remaining); i++ {
			if d := current.DistanceMeters(remaining[i].Location); d < bestDistance {
				best = i
				bestDistance = d
			}
		}

		ordered = append(ordered, remaining[best])
		current = remaining[best].Location
		remaining = append(remaining[:best], remaining[best+1:]...)
	}

	return ordered
}

// improveOrder runs a fixed number of 2-opt passes pricing edges with
// straight-line estimates only. No external calls happen here.
func (s *plannerService) improveOrder(start entity.Coordinate, ordered []*entity.POI, endpoint entity.EndpointPolicy) []*entity.POI {
	if len(ordered) < 3 {
		return ordered
	}

	closed := endpoint.Kind == entity.EndpointRoundtrip

	for pass := 0; pass < s.improvementPasses; pass++ {
		improved := false
		for i := 0; i < len(ordered)-1; i++ {
			for j := i + 1; j < len(ordered); j++ {
				if swapGain(start, ordered, i, j, closed) > 0 {
					reverseRange(ordered, i, j)
					improved = true
				}
			}
		}
		if !improved {
			break
		}
	}

	return ordered
}

// swapGain returns the straight-line distance saved by reversing the
// sub-path [i..j]; positive means the reversal is an improvement.
func swapGain(start entity.Coordinate, ordered []*entity.POI, i, j int, closed bool) float64 {
	prev := start
	if i > 0 {
		prev = ordered[i-1].Location
	}

	before := prev.DistanceMeters(ordered[i].Location)
	after := prev.DistanceMeters(ordered[j].Location)

	if j < len(ordered)-1 {
		next := ordered[j+1].Location
		before += ordered[j].Location.DistanceMeters(next)
		after += ordered[i].Location.DistanceMeters(next)
	} else if closed {
		before += ordered[j].Location.DistanceMeters(start)
		after += ordered[i].Location.DistanceMeters(start)
	}

	return before - after
}

func reverseRange(pois []*entity.POI, i, j int) {
	for i < j {
		pois[i], pois[j] = pois[j], pois[i]
		i++
		j--
	}
}

// priceWithBudget prices the ordering through the directions gateway and,
// when a walking-time cap is exceeded, drops the least-valuable stop and
// re-prices until the cap holds or no stops remain.
func (s *plannerService) priceWithBudget(ctx context.Context, start entity.Coordinate, ordered []*entity.POI, constraints entity.PlanConstraints) (*entity.GeneratedRoute, error) {
	for {
		if len(ordered) == 0 {
			return nil, domainerrors.ErrRouteUnsatisfiable
		}

		waypoints := buildWaypoints(start, ordered, constraints.Endpoint)
		coords := make([]entity.Coordinate, len(waypoints))
		for i, wp := range waypoints {
			coords[i] = wp.Location
		}

		// Straight-line distance is a lower bound on the walking distance, so
		// a straight-line estimate already over budget lets us drop a stop
		// without spending an external call.
		if constraints.MaxWalkingTime > 0 && s.estimateDuration(coords) > constraints.MaxWalkingTime {
			dropped := dropLeastValuable(ordered)
			ordered = removePOI(ordered, dropped.ID)

			continue
		}

		segments, err := s.segments.Segments(ctx, coords)
		if err != nil {
			return nil, s.mapSegmentsError(err)
		}

		route, err := entity.NewGeneratedRoute(waypoints, segments)
		if err != nil {
			return nil, errors.Wrap(err, "assemble route")
		}

		if constraints.MaxWalkingTime <= 0 || route.TotalDuration <= constraints.MaxWalkingTime {
			return route, nil
		}

		dropped := dropLeastValuable(ordered)
		s.logger.Debug("walking budget exceeded, dropping stop",
			slog.String("poi", dropped.ID),
			slog.Duration("total", route.TotalDuration),
			slog.Duration("budget", constraints.MaxWalkingTime),
		)
		ordered = removePOI(ordered, dropped.ID)
	}
}

// estimateDuration converts the straight-line tour length into a walking
// time at the configured speed.
func (s *plannerService) estimateDuration(coords []entity.Coordinate) time.Duration {
	meters := 0.0
	for i := 0; i < len(coords)-1; i++ {
		meters += coords[i].DistanceMeters(coords[i+1])
	}
	hours := meters / 1000 / s.walkSpeedKmh

	return time.Duration(hours * float64(time.Hour))
}

// dropLeastValuable picks the lowest-score stop; on equal scores the later
// one goes first, keeping earlier input order stable.
func dropLeastValuable(ordered []*entity.POI) *entity.POI {
	worst := ordered[len(ordered)-1]
	for i := len(ordered) - 2; i >= 0; i-- {
		if ordered[i].Score < worst.Score {
			worst = ordered[i]
		}
	}

	return worst
}

func removePOI(ordered []*entity.POI, id string) []*entity.POI {
	kept := ordered[:0]
	for _, poi := range ordered {
		if poi.ID != id {
			kept = append(kept, poi)
		}
	}

	return kept
}

// buildWaypoints resolves the endpoint policy into the final waypoint list.
func buildWaypoints(start entity.Coordinate, ordered []*entity.POI, endpoint entity.EndpointPolicy) []entity.Waypoint {
	waypoints := make([]entity.Waypoint, 0, len(ordered)+2)
	waypoints = append(waypoints, entity.Waypoint{Role: entity.RoleStart, Location: start})

	switch endpoint.Kind {
	case entity.EndpointLastStop:
		for i, poi := range ordered {
			role := entity.RoleStop
			if i == len(ordered)-1 {
				role = entity.RoleEnd
			}
			waypoints = append(waypoints, entity.Waypoint{POI: poi, Role: role, Location: poi.Location})
		}
	case entity.EndpointCustom:
		for _, poi := range ordered {
			waypoints = append(waypoints, entity.Waypoint{POI: poi, Role: entity.RoleStop, Location: poi.Location})
		}
		waypoints = append(waypoints, entity.Waypoint{Role: entity.RoleEnd, Location: endpoint.Coordinate})
	default: // roundtrip
		for _, poi := range ordered {
			waypoints = append(waypoints, entity.Waypoint{POI: poi, Role: entity.RoleStop, Location: poi.Location})
		}
		waypoints = append(waypoints, entity.Waypoint{Role: entity.RoleEnd, Location: start})
	}

	return waypoints
}

// mapSegmentsError keeps AppErrors intact and converts our own deadline into
// the retryable timeout error.
func (s *plannerService) mapSegmentsError(err error) error {
	if errors.Is(err, context.Canceled) {
		// The caller went away; this is not a provider fault.
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domainerrors.ErrPlanTimeout
	}

	var appErr domainerrors.AppError
	if errors.As(err, &appErr) {
		return err
	}

	return domainerrors.ErrDirectionsFailure.WithDetails(err.Error())
}
