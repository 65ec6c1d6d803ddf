package geometry

import (
	"fmt"
	"math"
	"slices"
)

// OuterPoint is the ray origin for containment tests. It must lie outside
// every polygon in the simulated world and off the grid diagonals, where rays
// would graze axis-aligned vertices.
var OuterPoint = Point{X: -1e6, Y: -1.3e6}

// Polygon is a closed ring. Segments[i] joins Points[i] to Points[(i+1)%n].
type Polygon struct {
	Points   []Point
	Segments []Segment
}

// NewPolygon closes points into a ring.
func NewPolygon(points []Point) (Polygon, error) {
	if len(points) < 3 {
		return Polygon{}, fmt.Errorf("polygon needs at least 3 points, got %d: %w", len(points), ErrDegenerate)
	}
	pts := slices.Clone(points)
	segs := make([]Segment, len(pts))
	for i := range pts {
		segs[i] = Segment{P1: pts[i], P2: pts[(i+1)%len(pts)]}
	}
	return Polygon{Points: pts, Segments: segs}, nil
}

// ContainsPoint uses ray parity from OuterPoint.
func (p Polygon) ContainsPoint(pt Point) bool {
	count := 0
	for _, s := range p.Segments {
		if _, ok := Intersect(OuterPoint, pt, s.P1, s.P2); ok {
			count++
		}
	}
	return count%2 == 1
}

// ContainsSegment tests the segment's midpoint.
func (p Polygon) ContainsSegment(s Segment) bool {
	return p.ContainsPoint(s.Midpoint())
}

// IntersectsSegment reports whether any edge crosses s.
func (p Polygon) IntersectsSegment(s Segment) bool {
	for _, e := range p.Segments {
		if _, ok := Intersect(e.P1, e.P2, s.P1, s.P2); ok {
			return true
		}
	}
	return false
}

// IntersectsPolygon reports whether any pair of edges crosses.
func (p Polygon) IntersectsPolygon(o Polygon) bool {
	for _, e := range p.Segments {
		if o.IntersectsSegment(e) {
			return true
		}
	}
	return false
}

// DistanceToPoint is the distance from pt to the nearest edge.
func (p Polygon) DistanceToPoint(pt Point) float64 {
	d := math.Inf(1)
	for _, s := range p.Segments {
		d = math.Min(d, s.DistanceToPoint(pt))
	}
	return d
}

// DistanceToPolygon is the smallest distance from one of p's vertices to o.
func (p Polygon) DistanceToPolygon(o Polygon) float64 {
	d := math.Inf(1)
	for _, pt := range p.Points {
		d = math.Min(d, o.DistanceToPoint(pt))
	}
	return d
}

// Union returns the outline of the union of polys. Edges are split at every
// crossing, then edges whose midpoint falls inside another polygon are dropped.
// The input polygons are left untouched.
func Union(polys []Polygon) []Segment {
	work := make([][]Segment, len(polys))
	for i, p := range polys {
		work[i] = slices.Clone(p.Segments)
	}
	for i := 0; i < len(work)-1; i++ {
		for j := i + 1; j < len(work); j++ {
			work[i], work[j] = breakSegments(work[i], work[j])
		}
	}

	var kept []Segment
	for i, segs := range work {
		for _, s := range segs {
			inside := false
			for j, p := range polys {
				if i != j && p.ContainsSegment(s) {
					inside = true
					break
				}
			}
			if !inside {
				kept = append(kept, s)
			}
		}
	}
	return kept
}

// breakSegments splits both edge lists at every interior crossing.
func breakSegments(a, b []Segment) ([]Segment, []Segment) {
	for i := 0; i < len(a); i++ {
		for j := 0; j < len(b); j++ {
			hit, ok := Intersect(a[i].P1, a[i].P2, b[j].P1, b[j].P2)
			if !ok || hit.Offset == 0 || hit.Offset == 1 {
				continue
			}
			pt := hit.Point

			tail := a[i].P2
			a[i].P2 = pt
			a = slices.Insert(a, i+1, Segment{P1: pt, P2: tail})

			tail = b[j].P2
			b[j].P2 = pt
			b = slices.Insert(b, j+1, Segment{P1: pt, P2: tail})
		}
	}
	return a, b
}
