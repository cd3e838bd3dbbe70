package entity

// POI is a point of interest supplied by the discovery collaborator.
// Instances are immutable once discovered; the planning engine references
// them and never copies or mutates them.
type POI struct {
	ID       string     // Stable identifier assigned by the discovery provider.
	Name     string     // Display name.
	Category string     // Discovery category, e.g. "museum", "park".
	Location Coordinate // Geographic position.
	Score    float64    // Quality signal from the discovery provider, higher is better.
	Tags     []string   // Optional descriptive tags.
}
