package geo

import (
	"encoding/json"
	"fmt"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/roadsim/roadsim/internal/geometry"
	"github.com/roadsim/roadsim/internal/graph"
	"github.com/roadsim/roadsim/pkg/core"
)

// ParsePolyline parses a JSON array of coordinates into a geom.LineString.
// Input format: "[[x1,y1],[x2,y2],...]"
func ParsePolyline(input string) (geom.LineString, error) {
	points, err := ParsePolylineToCore(input)
	if err != nil {
		return geom.LineString{}, err
	}

	flatCoords := make([]float64, 0, len(points)*2)
	for _, p := range points {
		flatCoords = append(flatCoords, p.X, p.Y)
	}

	seq := geom.NewSequence(flatCoords, geom.DimXY)
	return geom.NewLineString(seq), nil
}

// ParsePolylineToCore parses a JSON array of coordinates into points.
// Input format: "[[x1,y1],[x2,y2],...]"
func ParsePolylineToCore(input string) ([]core.PointData, error) {
	var coords [][]float64
	if err := json.Unmarshal([]byte(input), &coords); err != nil {
		return nil, fmt.Errorf("failed to parse polyline JSON: %w", err)
	}

	if len(coords) < 2 {
		return nil, fmt.Errorf("polyline must have at least 2 points, got %d", len(coords))
	}

	points := make([]core.PointData, len(coords))
	for i, coord := range coords {
		if len(coord) < 2 {
			return nil, fmt.Errorf("coordinate %d has insufficient values", i)
		}
		points[i] = core.PointData{X: coord[0], Y: coord[1]}
	}

	return points, nil
}

// AddPolylines adds each polyline to g as a chain of two-way segments.
// Points shared between polylines become a single node, so crossing roads
// given with a common vertex form an intersection. A polyline whose points
// all coincide is rejected.
func AddPolylines(g *graph.Graph, polylines ...string) error {
	for i, input := range polylines {
		ls, err := ParsePolyline(input)
		if err != nil {
			return fmt.Errorf("polyline %d: %w", i, err)
		}
		if ls.Length() == 0 {
			return fmt.Errorf("polyline %d: zero length: %w", i, geometry.ErrDegenerate)
		}

		seq := ls.Coordinates()
		at := func(j int) geometry.Point {
			xy := seq.GetXY(j)
			return geometry.Point{X: xy.X, Y: xy.Y}
		}
		prev, _ := g.TryAddPoint(at(0))
		for j := 1; j < seq.Length(); j++ {
			id, _ := g.TryAddPoint(at(j))
			if _, _, err := g.TryAddSegment(prev, id, false); err != nil {
				return fmt.Errorf("polyline %d: %w", i, err)
			}
			prev = id
		}
	}
	return nil
}

// GraphFromPolylines builds a fresh graph from polylines.
func GraphFromPolylines(polylines ...string) (*graph.Graph, error) {
	g := graph.New()
	if err := AddPolylines(g, polylines...); err != nil {
		return nil, err
	}
	return g, nil
}
