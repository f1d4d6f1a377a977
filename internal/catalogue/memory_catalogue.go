package catalogue

import "context"

// MemoryCatalogue is a fixed-in-code Catalogue used by tests.
type MemoryCatalogue struct {
	Airports map[string][]Point
}

// NewMemoryCatalogue returns a MemoryCatalogue seeded with the given data.
func NewMemoryCatalogue(airports map[string][]Point) *MemoryCatalogue {
	return &MemoryCatalogue{Airports: airports}
}

func (m *MemoryCatalogue) Points(_ context.Context, airport string) ([]Point, error) {
	pts := m.Airports[airport]
	out := make([]Point, len(pts))
	copy(out, pts)
	return out, nil
}
