// Package geometry holds the 2D primitives shared by the road graph, the
// sensor and the vehicles: points, segments, polygons and envelopes.
package geometry

import (
	"errors"
	"math"
)

// ErrDegenerate is returned for zero-magnitude inputs where a direction,
// angle or area is required.
var ErrDegenerate = errors.New("degenerate geometry")

// Point is a 2D coordinate. Two points are equal when both coordinates match exactly.
type Point struct {
	X float64
	Y float64
}

// Equals reports exact coordinate equality.
func (p Point) Equals(o Point) bool {
	return p.X == o.X && p.Y == o.Y
}

func Add(a, b Point) Point {
	return Point{X: a.X + b.X, Y: a.Y + b.Y}
}

func Subtract(a, b Point) Point {
	return Point{X: a.X - b.X, Y: a.Y - b.Y}
}

func Scale(p Point, s float64) Point {
	return Point{X: p.X * s, Y: p.Y * s}
}

func Dot(a, b Point) float64 {
	return a.X*b.X + a.Y*b.Y
}

func Magnitude(p Point) float64 {
	return math.Hypot(p.X, p.Y)
}

func Distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Average is the midpoint of a and b.
func Average(a, b Point) Point {
	return Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
}

// Perpendicular rotates p by -90 degrees in screen coordinates.
func Perpendicular(p Point) Point {
	return Point{X: -p.Y, Y: p.X}
}

// Normalize returns the unit vector in the direction of p.
func Normalize(p Point) (Point, error) {
	m := Magnitude(p)
	if m == 0 {
		return Point{}, ErrDegenerate
	}
	return Scale(p, 1/m), nil
}

// Angle is the heading of p measured from the positive X axis.
func Angle(p Point) (float64, error) {
	if p.X == 0 && p.Y == 0 {
		return 0, ErrDegenerate
	}
	return math.Atan2(p.Y, p.X), nil
}

// Translate moves loc by offset along angle.
func Translate(loc Point, angle, offset float64) Point {
	return Point{
		X: loc.X + math.Cos(angle)*offset,
		Y: loc.Y + math.Sin(angle)*offset,
	}
}

func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func Lerp2D(a, b Point, t float64) Point {
	return Point{X: Lerp(a.X, b.X, t), Y: Lerp(a.Y, b.Y, t)}
}

// InvLerp returns t such that Lerp(a, b, t) == v.
func InvLerp(a, b, v float64) float64 {
	return (v - a) / (b - a)
}

func DegreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Fake3D lifts point away from viewPoint to fake a vertical extrusion of the
// given height. The lift tapers with distance from the viewer.
func Fake3D(point, viewPoint Point, height float64) Point {
	dir, err := Normalize(Subtract(point, viewPoint))
	if err != nil {
		return point
	}
	dist := Distance(point, viewPoint)
	scaler := math.Atan(dist/300) / (math.Pi / 2)
	return Add(point, Scale(dir, height*scaler))
}

// Bounds returns the axis-aligned box enclosing points.
func Bounds(points []Point) (min, max Point, ok bool) {
	if len(points) == 0 {
		return Point{}, Point{}, false
	}
	min, max = points[0], points[0]
	for _, p := range points[1:] {
		min.X = math.Min(min.X, p.X)
		min.Y = math.Min(min.Y, p.Y)
		max.X = math.Max(max.X, p.X)
		max.Y = math.Max(max.Y, p.Y)
	}
	return min, max, true
}
