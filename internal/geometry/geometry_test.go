package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func square(t *testing.T, x, y, size float64) Polygon {
	t.Helper()
	p, err := NewPolygon([]Point{{x, y}, {x + size, y}, {x + size, y + size}, {x, y + size}})
	require.NoError(t, err)
	return p
}

func TestIntersect_Crossing(t *testing.T) {
	a, b := Point{0, 0}, Point{10, 10}
	c, d := Point{0, 10}, Point{10, 0}

	hit, ok := Intersect(a, b, c, d)
	require.True(t, ok)
	assert.InDelta(t, 5, hit.X, 1e-9)
	assert.InDelta(t, 5, hit.Y, 1e-9)
	assert.InDelta(t, 0.5, hit.Offset, 1e-9)
}

func TestIntersect_Symmetric(t *testing.T) {
	cases := [][4]Point{
		{{0, 0}, {10, 10}, {0, 10}, {10, 0}},
		{{-3, 2}, {7, 4}, {1, -5}, {2, 9}},
		{{0, 0}, {4, 0}, {1, -1}, {3, 8}},
	}
	for _, c := range cases {
		h1, ok1 := Intersect(c[0], c[1], c[2], c[3])
		h2, ok2 := Intersect(c[2], c[3], c[0], c[1])
		require.Equal(t, ok1, ok2)
		require.True(t, ok1)
		assert.InDelta(t, h1.X, h2.X, 1e-9)
		assert.InDelta(t, h1.Y, h2.Y, 1e-9)
	}
}

func TestIntersect_ParallelAndDisjoint(t *testing.T) {
	_, ok := Intersect(Point{0, 0}, Point{10, 0}, Point{0, 1}, Point{10, 1})
	assert.False(t, ok, "parallel")

	_, ok = Intersect(Point{0, 0}, Point{1, 1}, Point{5, 0}, Point{6, -3})
	assert.False(t, ok, "out of range")
}

func TestIntersect_EndpointTouch(t *testing.T) {
	hit, ok := Intersect(Point{0, 0}, Point{10, 0}, Point{10, -5}, Point{10, 5})
	require.True(t, ok)
	assert.InDelta(t, 1, hit.Offset, 1e-9)
}

func TestNearest(t *testing.T) {
	_, ok := Nearest(nil)
	assert.False(t, ok)

	hit, ok := Nearest([]Intersection{{Offset: 0.7}, {Offset: 0.2}, {Offset: 0.4}})
	require.True(t, ok)
	assert.Equal(t, 0.2, hit.Offset)
}

func TestPolygon_ContainsPoint(t *testing.T) {
	sq := square(t, 0, 0, 10)

	assert.True(t, sq.ContainsPoint(Point{5, 5}))
	assert.True(t, sq.ContainsPoint(Point{1, 9}))
	assert.False(t, sq.ContainsPoint(Point{15, 5}))
	assert.False(t, sq.ContainsPoint(Point{-1, -1}))
}

func TestPolygon_ContainsSegment(t *testing.T) {
	sq := square(t, 0, 0, 10)

	assert.True(t, sq.ContainsSegment(Segment{P1: Point{2, 2}, P2: Point{8, 8}}))
	assert.False(t, sq.ContainsSegment(Segment{P1: Point{2, 2}, P2: Point{30, 30}}))
}

func TestPolygon_Intersects(t *testing.T) {
	a := square(t, 0, 0, 10)
	b := square(t, 5, 5, 10)
	c := square(t, 50, 50, 10)

	assert.True(t, a.IntersectsPolygon(b))
	assert.False(t, a.IntersectsPolygon(c))
	assert.True(t, a.IntersectsSegment(Segment{P1: Point{-5, 5}, P2: Point{5, 5}}))
}

func TestNewPolygon_TooFewPoints(t *testing.T) {
	_, err := NewPolygon([]Point{{0, 0}, {1, 1}})
	require.ErrorIs(t, err, ErrDegenerate)
}

func TestPolygon_SegmentsMatchPoints(t *testing.T) {
	sq := square(t, 0, 0, 10)
	require.Len(t, sq.Segments, len(sq.Points))
	last := sq.Segments[len(sq.Segments)-1]
	assert.Equal(t, sq.Points[3], last.P1)
	assert.Equal(t, sq.Points[0], last.P2)
}

func TestUnion_OverlappingSquares(t *testing.T) {
	a := square(t, 0, 0, 10)
	b := square(t, 5, 5, 10)

	outline := Union([]Polygon{a, b})
	require.Len(t, outline, 8)

	perimeter := 0.0
	for _, s := range outline {
		perimeter += s.Length()
		assert.False(t, a.ContainsSegment(s) && b.ContainsSegment(s))
	}
	assert.InDelta(t, 60, perimeter, 1e-9)

	// inputs are not modified
	assert.Len(t, a.Segments, 4)
	assert.Len(t, b.Segments, 4)
}

func TestUnion_DisjointKeepsEverything(t *testing.T) {
	outline := Union([]Polygon{square(t, 0, 0, 10), square(t, 100, 100, 10)})
	assert.Len(t, outline, 8)
}

func TestUnion_NestedDropsInner(t *testing.T) {
	outline := Union([]Polygon{square(t, 0, 0, 100), square(t, 10, 10, 10)})
	assert.Len(t, outline, 4)
}

func TestSegment_ProjectPoint(t *testing.T) {
	s := Segment{P1: Point{0, 0}, P2: Point{10, 0}}

	proj, err := s.ProjectPoint(Point{4, 7})
	require.NoError(t, err)
	assert.InDelta(t, 4, proj.Point.X, 1e-9)
	assert.InDelta(t, 0, proj.Point.Y, 1e-9)
	assert.InDelta(t, 0.4, proj.Offset, 1e-9)

	proj, err = s.ProjectPoint(Point{-5, 1})
	require.NoError(t, err)
	assert.InDelta(t, -0.5, proj.Offset, 1e-9)
}

func TestSegment_Degenerate(t *testing.T) {
	s := Segment{P1: Point{3, 3}, P2: Point{3, 3}}

	_, err := s.ProjectPoint(Point{0, 0})
	require.ErrorIs(t, err, ErrDegenerate)
	_, err = s.Direction()
	require.ErrorIs(t, err, ErrDegenerate)

	assert.InDelta(t, 5, s.DistanceToPoint(Point{0, -1}), 1e-9)
}

func TestSegment_DistanceToPoint(t *testing.T) {
	s := Segment{P1: Point{0, 0}, P2: Point{10, 0}}
	assert.InDelta(t, 3, s.DistanceToPoint(Point{5, 3}), 1e-9)
	assert.InDelta(t, 5, s.DistanceToPoint(Point{13, 4}), 1e-9)
}

func TestSegment_Equals(t *testing.T) {
	s := Segment{P1: Point{0, 0}, P2: Point{1, 1}}
	assert.True(t, s.Equals(Segment{P1: Point{1, 1}, P2: Point{0, 0}}))
	assert.False(t, s.Equals(Segment{P1: Point{1, 1}, P2: Point{0, 1}}))
}

func TestNewEnvelope_Rectangle(t *testing.T) {
	env, err := NewEnvelope(Segment{P1: Point{0, 0}, P2: Point{100, 0}}, 20, 0)
	require.NoError(t, err)
	require.Len(t, env.Polygon.Points, 4)

	assert.True(t, env.Polygon.ContainsPoint(Point{50, 0}))
	assert.True(t, env.Polygon.ContainsPoint(Point{50, 9}))
	assert.False(t, env.Polygon.ContainsPoint(Point{50, 11}))
	assert.False(t, env.Polygon.ContainsPoint(Point{-5, 0}))
}

func TestNewEnvelope_RoundCaps(t *testing.T) {
	env, err := NewEnvelope(Segment{P1: Point{0, 0}, P2: Point{100, 0}}, 20, 10)
	require.NoError(t, err)
	assert.Len(t, env.Polygon.Points, 22)

	for _, p := range env.Polygon.Points {
		d := math.Min(Distance(p, Point{0, 0}), Distance(p, Point{100, 0}))
		assert.InDelta(t, 10, d, 1e-9)
	}
	// caps reach past the skeleton ends
	assert.True(t, env.Polygon.ContainsPoint(Point{-5, 0}))
	assert.True(t, env.Polygon.ContainsPoint(Point{105, 0}))
}

func TestNewEnvelope_Degenerate(t *testing.T) {
	_, err := NewEnvelope(Segment{P1: Point{1, 1}, P2: Point{1, 1}}, 20, 10)
	require.ErrorIs(t, err, ErrDegenerate)

	_, err = NewEnvelope(Segment{P1: Point{0, 0}, P2: Point{1, 1}}, 0, 10)
	require.ErrorIs(t, err, ErrDegenerate)
}

func TestNormalizeAndAngle_Zero(t *testing.T) {
	_, err := Normalize(Point{})
	assert.ErrorIs(t, err, ErrDegenerate)
	_, err = Angle(Point{})
	assert.ErrorIs(t, err, ErrDegenerate)

	a, err := Angle(Point{0, 1})
	require.NoError(t, err)
	assert.InDelta(t, math.Pi/2, a, 1e-12)
}

func TestFake3D(t *testing.T) {
	p := Fake3D(Point{300, 0}, Point{0, 0}, 10)
	assert.InDelta(t, 305, p.X, 1e-9)
	assert.InDelta(t, 0, p.Y, 1e-9)

	assert.Equal(t, Point{1, 1}, Fake3D(Point{1, 1}, Point{1, 1}, 50))
}

func TestLerpHelpers(t *testing.T) {
	assert.Equal(t, 5.0, Lerp(0, 10, 0.5))
	assert.Equal(t, 0.25, InvLerp(0, 8, 2))
	assert.Equal(t, Point{5, 10}, Lerp2D(Point{0, 0}, Point{10, 20}, 0.5))
}

func TestPolygonData_RoundTrip(t *testing.T) {
	sq := square(t, 0, 0, 10)
	back, err := PolygonFromData(sq.Data())
	require.NoError(t, err)
	assert.Equal(t, sq, back)
}
