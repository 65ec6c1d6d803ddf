package geometry

import (
	"fmt"
	"math"
)

// Envelope is a capsule polygon wrapped around a skeleton segment.
type Envelope struct {
	Skeleton Segment
	Polygon  Polygon
}

// NewEnvelope builds a capsule of the given width around skeleton. Each end
// cap is sampled every pi/roundness radians; roundness below 1 is treated as 1,
// giving a rectangle.
func NewEnvelope(skeleton Segment, width float64, roundness int) (Envelope, error) {
	if width <= 0 {
		return Envelope{}, fmt.Errorf("envelope width %v: %w", width, ErrDegenerate)
	}
	alpha, err := Angle(Subtract(skeleton.P1, skeleton.P2))
	if err != nil {
		return Envelope{}, fmt.Errorf("envelope skeleton: %w", err)
	}

	steps := max(1, roundness)
	radius := width / 2
	step := math.Pi / float64(steps)
	ccw := alpha - math.Pi/2

	points := make([]Point, 0, 2*(steps+1))
	for k := 0; k <= steps; k++ {
		points = append(points, Translate(skeleton.P1, ccw+float64(k)*step, radius))
	}
	for k := 0; k <= steps; k++ {
		points = append(points, Translate(skeleton.P2, math.Pi+ccw+float64(k)*step, radius))
	}

	poly, err := NewPolygon(points)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Skeleton: skeleton, Polygon: poly}, nil
}
