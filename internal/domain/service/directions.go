// Package service declares the ports through which the planning engine talks
// to its external collaborators.
package service

import (
	"context"

	"stroll/internal/domain/entity"
	"stroll/internal/errors"
)

// DirectionsProvider is the port for the external walking-directions service.
// One call prices exactly one ordered coordinate pair; walking metrics are
// directional, so (a,b) and (b,a) are distinct queries.
type DirectionsProvider interface {
	// Walk returns the walking segment from one coordinate to another.
	Walk(ctx context.Context, from, to entity.Coordinate) (entity.RouteSegment, error)
}

// ThrottleError marks provider failures caused by rate limiting or load
// shedding. The gateway treats these as recoverable through pacing.
type ThrottleError struct {
	Provider string
	Reason   string
}

// Error implements the error interface
func (e *ThrottleError) Error() string {
	return e.Provider + " throttled the request: " + e.Reason
}

// IsThrottle reports whether err is, or wraps, a provider throttling signal.
func IsThrottle(err error) bool {
	var throttle *ThrottleError

	return errors.As(err, &throttle)
}
