package graph

import (
	"math"

	"github.com/roadsim/roadsim/internal/geometry"
)

// NearestSegment returns the edge closest to p. The first edge wins ties.
func (g *Graph) NearestSegment(p geometry.Point) (Edge, bool) {
	best := math.Inf(1)
	var nearest Edge
	found := false
	for _, e := range g.edges {
		s, ok := g.Segment(e)
		if !ok {
			continue
		}
		if d := s.DistanceToPoint(p); d < best {
			best, nearest, found = d, e, true
		}
	}
	return nearest, found
}

// NearestPoint returns the node closest to p within threshold.
func (g *Graph) NearestPoint(p geometry.Point, threshold float64) (Node, bool) {
	best := threshold
	var nearest Node
	found := false
	for _, n := range g.nodes {
		if d := geometry.Distance(n.Point, p); d < best {
			best, nearest, found = d, n, true
		}
	}
	return nearest, found
}
