package geometry

import "math"

// Segment joins two points. A one-way segment may only be travelled from P1 to P2.
type Segment struct {
	P1     Point
	P2     Point
	OneWay bool
}

// Projection is the foot of a perpendicular dropped onto a segment's line.
// Offset is 0 at P1 and 1 at P2 and is not clamped.
type Projection struct {
	Point  Point
	Offset float64
}

// Equals is unordered endpoint equality.
func (s Segment) Equals(o Segment) bool {
	return s.Includes(o.P1) && s.Includes(o.P2)
}

// Includes reports whether p is one of the endpoints.
func (s Segment) Includes(p Point) bool {
	return s.P1.Equals(p) || s.P2.Equals(p)
}

func (s Segment) Length() float64 {
	return Distance(s.P1, s.P2)
}

func (s Segment) Midpoint() Point {
	return Average(s.P1, s.P2)
}

// Direction is the unit vector from P1 to P2.
func (s Segment) Direction() (Point, error) {
	return Normalize(Subtract(s.P2, s.P1))
}

// ProjectPoint drops p perpendicularly onto the segment's supporting line.
func (s Segment) ProjectPoint(p Point) (Projection, error) {
	dir, err := s.Direction()
	if err != nil {
		return Projection{}, err
	}
	scaler := Dot(Subtract(p, s.P1), dir)
	return Projection{
		Point:  Add(s.P1, Scale(dir, scaler)),
		Offset: scaler / s.Length(),
	}, nil
}

// DistanceToPoint is the shortest distance from p to any point of the segment.
func (s Segment) DistanceToPoint(p Point) float64 {
	proj, err := s.ProjectPoint(p)
	if err == nil && proj.Offset > 0 && proj.Offset < 1 {
		return Distance(p, proj.Point)
	}
	return math.Min(Distance(p, s.P1), Distance(p, s.P2))
}
