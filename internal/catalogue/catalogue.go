// Package catalogue defines the Point Catalogue port (spec.md §2.3): the
// static list of airfield objects for an airport and their offline
// baselines.
package catalogue

import "context"

// Point is one airfield object as carried in the Point Catalogue.
type Point struct {
	ID   string
	Kind string // "taxiway", "lead_on", "stand", "stopbar", or any other value
}

// Catalogue returns the static point list for an airport.
type Catalogue interface {
	Points(ctx context.Context, airport string) ([]Point, error)
}

// DefaultBaseline applies spec.md §4.5's offline-baseline rule: taxiway,
// lead_on and stand default to "on" (true); stopbar and anything else
// default to "off" (false).
func DefaultBaseline(kind string) bool {
	switch kind {
	case "taxiway", "lead_on", "stand":
		return true
	case "stopbar":
		return false
	default:
		return false
	}
}
