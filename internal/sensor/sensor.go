// Package sensor casts a fan of rays from a vehicle and reports the nearest
// obstacle along each one.
package sensor

import (
	"fmt"
	"math"

	"github.com/roadsim/roadsim/internal/geometry"
	"github.com/roadsim/roadsim/pkg/core"
)

// Defaults for a freshly built sensor.
const (
	DefaultRayCount  = 5
	DefaultRayLength = 155
	DefaultRaySpread = math.Pi / 4
	DefaultRayOffset = 0
)

// Pose is where the sensor is mounted and which way it faces.
// Angle 0 faces -Y.
type Pose struct {
	X     float64
	Y     float64
	Angle float64
}

// Reading is the nearest hit along a ray. Offset runs from 0 at the ray
// origin to 1 at its tip.
type Reading struct {
	Point  geometry.Point
	Offset float64
}

// Sensor is a fan of RayCount rays spread over RaySpread radians.
type Sensor struct {
	RayCount  int
	RayLength float64
	RaySpread float64
	RayOffset float64

	Rays []geometry.Segment
	// Readings holds one entry per ray; nil means nothing was hit.
	Readings []*Reading
}

// New validates the parameters and builds a sensor.
func New(rayCount int, rayLength, raySpread, rayOffset float64) (*Sensor, error) {
	if rayCount < 1 {
		return nil, fmt.Errorf("sensor needs at least one ray, got %d", rayCount)
	}
	if rayLength <= 0 {
		return nil, fmt.Errorf("sensor ray length must be positive, got %v", rayLength)
	}
	return &Sensor{
		RayCount:  rayCount,
		RayLength: rayLength,
		RaySpread: raySpread,
		RayOffset: rayOffset,
	}, nil
}

// Default builds a sensor with the stock parameters.
func Default() *Sensor {
	s, _ := New(DefaultRayCount, DefaultRayLength, DefaultRaySpread, DefaultRayOffset)
	return s
}

// Update recasts the rays from pose and reads each one against the road
// borders and the polygons of other vehicles.
func (s *Sensor) Update(pose Pose, borders []geometry.Segment, traffic []geometry.Polygon) {
	s.cast(pose)
	s.Readings = make([]*Reading, len(s.Rays))
	for i, ray := range s.Rays {
		s.Readings[i] = read(ray, borders, traffic)
	}
}

// Inputs turns readings into network inputs: 1 - offset for a hit, 0 otherwise.
// Closer obstacles give larger values.
func (s *Sensor) Inputs() []float64 {
	out := make([]float64, s.RayCount)
	for i, r := range s.Readings {
		if r != nil && i < len(out) {
			out[i] = 1 - r.Offset
		}
	}
	return out
}

// Touch reads the current rays against another set of segments and returns
// the strongest 1 - offset signal, or 0 when no ray touches any of them.
func (s *Sensor) Touch(segs []geometry.Segment) float64 {
	best := 0.0
	for _, ray := range s.Rays {
		if r := read(ray, segs, nil); r != nil {
			best = math.Max(best, 1-r.Offset)
		}
	}
	return best
}

func (s *Sensor) cast(pose Pose) {
	s.Rays = make([]geometry.Segment, s.RayCount)
	origin := geometry.Point{X: pose.X, Y: pose.Y}
	for i := range s.Rays {
		t := 0.5
		if s.RayCount > 1 {
			t = float64(i) / float64(s.RayCount-1)
		}
		angle := geometry.Lerp(s.RaySpread/2, -s.RaySpread/2, t) + pose.Angle + s.RayOffset
		s.Rays[i] = geometry.Segment{
			P1: origin,
			P2: geometry.Point{
				X: pose.X - math.Sin(angle)*s.RayLength,
				Y: pose.Y - math.Cos(angle)*s.RayLength,
			},
		}
	}
}

func read(ray geometry.Segment, borders []geometry.Segment, traffic []geometry.Polygon) *Reading {
	var hits []geometry.Intersection
	for _, b := range borders {
		if hit, ok := geometry.Intersect(ray.P1, ray.P2, b.P1, b.P2); ok {
			hits = append(hits, hit)
		}
	}
	for _, poly := range traffic {
		for _, e := range poly.Segments {
			if hit, ok := geometry.Intersect(ray.P1, ray.P2, e.P1, e.P2); ok {
				hits = append(hits, hit)
			}
		}
	}
	nearest, ok := geometry.Nearest(hits)
	if !ok {
		return nil
	}
	return &Reading{Point: nearest.Point, Offset: nearest.Offset}
}

// Data returns the persisted parameters.
func (s *Sensor) Data() core.SensorData {
	return core.SensorData{
		RayCount:  s.RayCount,
		RayLength: s.RayLength,
		RaySpread: s.RaySpread,
		RayOffset: s.RayOffset,
	}
}

// Load builds a sensor from persisted parameters.
func Load(d core.SensorData) (*Sensor, error) {
	s, err := New(d.RayCount, d.RayLength, d.RaySpread, d.RayOffset)
	if err != nil {
		return nil, core.Invalid("sensor", "", err.Error())
	}
	return s, nil
}
