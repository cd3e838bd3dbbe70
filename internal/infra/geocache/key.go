// Package geocache caches priced walking segments between coordinate pairs.
// Keys round coordinates to a fixed fractional-degree precision so that
// near-duplicate queries hit the same entry.
package geocache

import (
	"fmt"
	"math"

	"stroll/internal/domain/entity"
)

// DefaultKeyPrecision keeps roughly 10 m of positional tolerance.
const DefaultKeyPrecision = 4

// Key builds a direction-preserving cache key for an ordered coordinate pair.
// (a,b) and (b,a) produce distinct keys: walking metrics differ by direction.
func Key(from, to entity.Coordinate, precision int) string {
	if precision <= 0 {
		precision = DefaultKeyPrecision
	}

	return fmt.Sprintf("%.*f,%.*f|%.*f,%.*f",
		precision, roundTo(from.Lat, precision),
		precision, roundTo(from.Lng, precision),
		precision, roundTo(to.Lat, precision),
		precision, roundTo(to.Lng, precision),
	)
}

func roundTo(v float64, precision int) float64 {
	factor := math.Pow10(precision)

	return math.Round(v*factor) / factor
}
