package geometry

import (
	"fmt"

	"github.com/roadsim/roadsim/pkg/core"
)

func PointFromData(d core.PointData) Point {
	return Point{X: d.X, Y: d.Y}
}

func (p Point) Data() core.PointData {
	return core.PointData{X: p.X, Y: p.Y}
}

func SegmentFromData(d core.SegmentData) Segment {
	return Segment{P1: PointFromData(d.P1), P2: PointFromData(d.P2), OneWay: d.OneWay}
}

func (s Segment) Data() core.SegmentData {
	return core.SegmentData{P1: s.P1.Data(), P2: s.P2.Data(), OneWay: s.OneWay}
}

// SegmentsFromData converts a persisted segment list.
func SegmentsFromData(d []core.SegmentData) []Segment {
	out := make([]Segment, len(d))
	for i, s := range d {
		out[i] = SegmentFromData(s)
	}
	return out
}

// SegmentsData converts segs to their persisted form.
func SegmentsData(segs []Segment) []core.SegmentData {
	out := make([]core.SegmentData, len(segs))
	for i, s := range segs {
		out[i] = s.Data()
	}
	return out
}

func PolygonFromData(d core.PolygonData) (Polygon, error) {
	points := make([]Point, len(d.Points))
	for i, p := range d.Points {
		points[i] = PointFromData(p)
	}
	poly, err := NewPolygon(points)
	if err != nil {
		return Polygon{}, core.Invalid("polygon", "points", err.Error())
	}
	return poly, nil
}

func (p Polygon) Data() core.PolygonData {
	points := make([]core.PointData, len(p.Points))
	for i, pt := range p.Points {
		points[i] = pt.Data()
	}
	return core.PolygonData{Points: points}
}

// EnvelopeFromData restores an envelope from its stored polygon without
// resampling the caps.
func EnvelopeFromData(d core.EnvelopeData) (Envelope, error) {
	poly, err := PolygonFromData(d.Poly)
	if err != nil {
		return Envelope{}, fmt.Errorf("envelope: %w", err)
	}
	return Envelope{Skeleton: SegmentFromData(d.Skeleton), Polygon: poly}, nil
}

func (e Envelope) Data() core.EnvelopeData {
	return core.EnvelopeData{Skeleton: e.Skeleton.Data(), Poly: e.Polygon.Data()}
}
