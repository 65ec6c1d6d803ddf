package geo

import (
	"errors"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/roadsim/roadsim/pkg/core"
)

// World geometry is planar and unitless. Nothing here carries an SRID; the
// output is meant for GIS tooling and for the text columns of the database.

// ErrTooFewPoints is returned when a polygon ring has fewer than three points.
var ErrTooFewPoints = errors.New("polygon needs at least 3 points")

// SegmentsToMultiLineString converts border or route segments into one
// MultiLineString, one two-point line per segment.
func SegmentsToMultiLineString(segs []core.SegmentData) geom.MultiLineString {
	lines := make([]geom.LineString, 0, len(segs))
	for _, s := range segs {
		seq := geom.NewSequence([]float64{s.P1.X, s.P1.Y, s.P2.X, s.P2.Y}, geom.DimXY)
		lines = append(lines, geom.NewLineString(seq))
	}
	return geom.NewMultiLineString(lines)
}

// SegmentsWKT renders segments as WKT.
func SegmentsWKT(segs []core.SegmentData) string {
	return SegmentsToMultiLineString(segs).AsText()
}

// PolygonToGeom closes the ring of a persisted polygon.
func PolygonToGeom(p core.PolygonData) (geom.Polygon, error) {
	if len(p.Points) < 3 {
		return geom.Polygon{}, ErrTooFewPoints
	}
	flat := make([]float64, 0, 2*len(p.Points)+2)
	for _, pt := range p.Points {
		flat = append(flat, pt.X, pt.Y)
	}
	first := p.Points[0]
	flat = append(flat, first.X, first.Y)
	ring := geom.NewLineString(geom.NewSequence(flat, geom.DimXY))
	return geom.NewPolygon([]geom.LineString{ring}), nil
}

// TotalArea sums the areas of the given polygons. Overlaps are counted twice.
func TotalArea(polys []core.PolygonData) (float64, error) {
	var total float64
	for _, p := range polys {
		g, err := PolygonToGeom(p)
		if err != nil {
			return 0, err
		}
		total += g.Area()
	}
	return total, nil
}

// EnvelopeArea is the summed area of the road envelopes of a world.
func EnvelopeArea(w core.WorldData) (float64, error) {
	polys := make([]core.PolygonData, len(w.Envelopes))
	for i, e := range w.Envelopes {
		polys[i] = e.Poly
	}
	return TotalArea(polys)
}
