package graph

import (
	"fmt"

	"github.com/roadsim/roadsim/internal/geometry"
	"github.com/roadsim/roadsim/pkg/core"
)

// Data returns the persisted form of the graph.
func (g *Graph) Data() core.GraphData {
	d := core.GraphData{
		Points:   make([]core.PointData, len(g.nodes)),
		Segments: make([]core.SegmentData, 0, len(g.edges)),
	}
	for i, n := range g.nodes {
		d.Points[i] = n.Point.Data()
	}
	for _, s := range g.Segments() {
		d.Segments = append(d.Segments, s.Data())
	}
	return d
}

// Load rebuilds a graph. Segment endpoints are matched to points by value and
// must all be present in the point list.
func Load(d core.GraphData) (*Graph, error) {
	g := New()
	for i, p := range d.Points {
		if _, added := g.TryAddPoint(geometry.PointFromData(p)); !added {
			return nil, core.Invalid("graph", fmt.Sprintf("points[%d]", i), "duplicate point")
		}
	}
	for i, s := range d.Segments {
		from, ok := g.Find(geometry.PointFromData(s.P1))
		if !ok {
			return nil, core.Invalid("graph", fmt.Sprintf("segments[%d].p1", i), "endpoint not in point list")
		}
		to, ok := g.Find(geometry.PointFromData(s.P2))
		if !ok {
			return nil, core.Invalid("graph", fmt.Sprintf("segments[%d].p2", i), "endpoint not in point list")
		}
		if _, err := g.AddSegment(from, to, s.OneWay); err != nil {
			return nil, fmt.Errorf("loading segment %d: %w", i, err)
		}
	}
	return g, nil
}
