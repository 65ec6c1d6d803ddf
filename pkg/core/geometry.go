// pkg/core/geometry.go
package core

// PointData is the persisted form of a 2D point.
type PointData struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// SegmentData is the persisted form of a segment.
// Endpoints are stored by value; identity is re-established on load.
type SegmentData struct {
	P1     PointData `json:"p1"`
	P2     PointData `json:"p2"`
	OneWay bool      `json:"oneWay"`
}

// PolygonData is the persisted form of a closed polygon. Edges are implicit.
type PolygonData struct {
	Points []PointData `json:"points"`
}

// EnvelopeData is a capsule polygon with the skeleton it was built from.
type EnvelopeData struct {
	Skeleton SegmentData `json:"skeleton"`
	Poly     PolygonData `json:"poly"`
}

// GraphData is the persisted road graph.
type GraphData struct {
	Points   []PointData   `json:"points"`
	Segments []SegmentData `json:"segments"`
}
