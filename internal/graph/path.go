package graph

import (
	"fmt"
	"math"
	"slices"

	"github.com/roadsim/roadsim/internal/geometry"
)

// ShortestPath runs Dijkstra from start to end and returns the node sequence,
// both ends included. The frontier is scanned linearly in insertion order, so
// ties resolve the same way every run.
func (g *Graph) ShortestPath(start, end NodeID) ([]NodeID, error) {
	if g.nodeIndex(start) < 0 {
		return nil, fmt.Errorf("path start %d: %w", start, ErrUnknownNode)
	}
	if g.nodeIndex(end) < 0 {
		return nil, fmt.Errorf("path end %d: %w", end, ErrUnknownNode)
	}

	dist := make(map[NodeID]float64, len(g.nodes))
	prev := make(map[NodeID]NodeID, len(g.nodes))
	visited := make(map[NodeID]bool, len(g.nodes))
	for _, n := range g.nodes {
		dist[n.ID] = math.Inf(1)
	}
	dist[start] = 0

	for {
		cur, found := NodeID(0), false
		best := math.Inf(1)
		for _, n := range g.nodes {
			if !visited[n.ID] && dist[n.ID] < best {
				cur, best, found = n.ID, dist[n.ID], true
			}
		}
		if !found || cur == end {
			break
		}
		visited[cur] = true

		from, _ := g.Point(cur)
		for _, e := range g.SegmentsLeavingFrom(cur) {
			next := e.Other(cur)
			if visited[next] {
				continue
			}
			to, _ := g.Point(next)
			d := dist[cur] + geometry.Distance(from, to)
			if d < dist[next] {
				dist[next] = d
				prev[next] = cur
			}
		}
	}

	if math.IsInf(dist[end], 1) {
		return nil, fmt.Errorf("%w from %d to %d", ErrNoRoute, start, end)
	}

	path := []NodeID{end}
	for cur := end; cur != start; {
		cur = prev[cur]
		path = append(path, cur)
	}
	slices.Reverse(path)
	return path, nil
}

// Route resolves a node path into consecutive segments.
func (g *Graph) Route(path []NodeID) []geometry.Segment {
	out := make([]geometry.Segment, 0, max(0, len(path)-1))
	for i := 1; i < len(path); i++ {
		a, _ := g.Point(path[i-1])
		b, _ := g.Point(path[i])
		out = append(out, geometry.Segment{P1: a, P2: b})
	}
	return out
}
