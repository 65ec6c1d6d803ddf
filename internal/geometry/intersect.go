package geometry

import "math"

// Epsilon is the determinant threshold below which two segments are
// treated as parallel.
const Epsilon = 0.001

// Intersection is a crossing point of two segments. Offset is the
// parameter along the first segment, 0 at its start and 1 at its end.
type Intersection struct {
	Point
	Offset float64
}

// Intersect finds the crossing of segment a-b with segment c-d.
// Endpoints touching count as a crossing.
func Intersect(a, b, c, d Point) (Intersection, bool) {
	tTop := (d.X-c.X)*(a.Y-c.Y) - (d.Y-c.Y)*(a.X-c.X)
	uTop := (c.Y-a.Y)*(a.X-b.X) - (c.X-a.X)*(a.Y-b.Y)
	bottom := (d.Y-c.Y)*(b.X-a.X) - (d.X-c.X)*(b.Y-a.Y)

	if math.Abs(bottom) <= Epsilon {
		return Intersection{}, false
	}

	t := tTop / bottom
	u := uTop / bottom
	if t < 0 || t > 1 || u < 0 || u > 1 {
		return Intersection{}, false
	}

	return Intersection{Point: Lerp2D(a, b, t), Offset: t}, true
}

// Nearest returns the hit with the smallest offset.
func Nearest(hits []Intersection) (Intersection, bool) {
	if len(hits) == 0 {
		return Intersection{}, false
	}
	best := hits[0]
	for _, h := range hits[1:] {
		if h.Offset < best.Offset {
			best = h
		}
	}
	return best, true
}
