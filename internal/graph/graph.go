// Package graph is the road network: a set of unique points joined by
// segments, with shortest-path search over it.
package graph

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/roadsim/roadsim/internal/geometry"
)

var (
	// ErrNoRoute is returned when the target cannot be reached from the start.
	ErrNoRoute = errors.New("no route")
	// ErrUnknownNode is returned for ids that are not part of the graph.
	ErrUnknownNode = errors.New("unknown node")
)

// NodeID identifies a point for the lifetime of the graph. IDs are never reused.
type NodeID uint64

// EdgeID identifies a segment for the lifetime of the graph.
type EdgeID uint64

// Node is a road point.
type Node struct {
	ID    NodeID
	Point geometry.Point
}

// Edge is a road segment between two nodes.
type Edge struct {
	ID     EdgeID
	From   NodeID
	To     NodeID
	OneWay bool
}

// Other returns the endpoint opposite id.
func (e Edge) Other(id NodeID) NodeID {
	if e.From == id {
		return e.To
	}
	return e.From
}

// Touches reports whether id is one of the endpoints.
func (e Edge) Touches(id NodeID) bool {
	return e.From == id || e.To == id
}

// Graph holds nodes and edges in insertion order.
type Graph struct {
	nodes    []Node
	edges    []Edge
	nextNode NodeID
	nextEdge EdgeID
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{}
}

// Nodes returns a copy of all nodes in insertion order.
func (g *Graph) Nodes() []Node {
	return slices.Clone(g.nodes)
}

// Edges returns a copy of all edges in insertion order.
func (g *Graph) Edges() []Edge {
	return slices.Clone(g.edges)
}

func (g *Graph) PointCount() int   { return len(g.nodes) }
func (g *Graph) SegmentCount() int { return len(g.edges) }

// Point returns the coordinates of id.
func (g *Graph) Point(id NodeID) (geometry.Point, bool) {
	i := g.nodeIndex(id)
	if i < 0 {
		return geometry.Point{}, false
	}
	return g.nodes[i].Point, true
}

// Find returns the node located exactly at p.
func (g *Graph) Find(p geometry.Point) (NodeID, bool) {
	for _, n := range g.nodes {
		if n.Point.Equals(p) {
			return n.ID, true
		}
	}
	return 0, false
}

// AddPoint appends p unconditionally.
func (g *Graph) AddPoint(p geometry.Point) NodeID {
	g.nextNode++
	g.nodes = append(g.nodes, Node{ID: g.nextNode, Point: p})
	return g.nextNode
}

// TryAddPoint adds p unless a point with the same coordinates exists, in
// which case the existing id is returned with false.
func (g *Graph) TryAddPoint(p geometry.Point) (NodeID, bool) {
	if id, ok := g.Find(p); ok {
		return id, false
	}
	return g.AddPoint(p), true
}

// AddSegment joins two existing nodes unconditionally.
func (g *Graph) AddSegment(from, to NodeID, oneWay bool) (EdgeID, error) {
	if g.nodeIndex(from) < 0 {
		return 0, fmt.Errorf("segment start %d: %w", from, ErrUnknownNode)
	}
	if g.nodeIndex(to) < 0 {
		return 0, fmt.Errorf("segment end %d: %w", to, ErrUnknownNode)
	}
	g.nextEdge++
	g.edges = append(g.edges, Edge{ID: g.nextEdge, From: from, To: to, OneWay: oneWay})
	return g.nextEdge, nil
}

// TryAddSegment adds the segment unless it would be a loop or a segment
// joining the same two nodes already exists in either direction.
func (g *Graph) TryAddSegment(from, to NodeID, oneWay bool) (EdgeID, bool, error) {
	if from == to {
		return 0, false, nil
	}
	if id, ok := g.FindSegment(from, to); ok {
		return id, false, nil
	}
	id, err := g.AddSegment(from, to, oneWay)
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// FindSegment returns the edge joining a and b, in either direction.
func (g *Graph) FindSegment(a, b NodeID) (EdgeID, bool) {
	for _, e := range g.edges {
		if (e.From == a && e.To == b) || (e.From == b && e.To == a) {
			return e.ID, true
		}
	}
	return 0, false
}

// Edge returns the edge with the given id.
func (g *Graph) Edge(id EdgeID) (Edge, bool) {
	i := g.edgeIndex(id)
	if i < 0 {
		return Edge{}, false
	}
	return g.edges[i], true
}

// RemoveSegment deletes the edge. The endpoints are kept.
func (g *Graph) RemoveSegment(id EdgeID) bool {
	i := g.edgeIndex(id)
	if i < 0 {
		return false
	}
	g.edges = slices.Delete(g.edges, i, i+1)
	return true
}

// RemovePoint deletes the node and every edge touching it.
func (g *Graph) RemovePoint(id NodeID) bool {
	i := g.nodeIndex(id)
	if i < 0 {
		return false
	}
	g.edges = slices.DeleteFunc(g.edges, func(e Edge) bool { return e.Touches(id) })
	g.nodes = slices.Delete(g.nodes, i, i+1)
	return true
}

// SegmentsWithPoint returns every edge touching id.
func (g *Graph) SegmentsWithPoint(id NodeID) []Edge {
	var out []Edge
	for _, e := range g.edges {
		if e.Touches(id) {
			out = append(out, e)
		}
	}
	return out
}

// SegmentsLeavingFrom returns the edges that can be travelled away from id.
// One-way edges only qualify when id is their start.
func (g *Graph) SegmentsLeavingFrom(id NodeID) []Edge {
	var out []Edge
	for _, e := range g.edges {
		if e.From == id || (!e.OneWay && e.To == id) {
			out = append(out, e)
		}
	}
	return out
}

// Segment resolves an edge to its geometry.
func (g *Graph) Segment(e Edge) (geometry.Segment, bool) {
	p1, ok1 := g.Point(e.From)
	p2, ok2 := g.Point(e.To)
	if !ok1 || !ok2 {
		return geometry.Segment{}, false
	}
	return geometry.Segment{P1: p1, P2: p2, OneWay: e.OneWay}, true
}

// Segments returns the geometry of every edge in insertion order.
func (g *Graph) Segments() []geometry.Segment {
	out := make([]geometry.Segment, 0, len(g.edges))
	for _, e := range g.edges {
		if s, ok := g.Segment(e); ok {
			out = append(out, s)
		}
	}
	return out
}

// Intersections returns nodes joined to more than two edges.
func (g *Graph) Intersections() []Node {
	var out []Node
	for _, n := range g.nodes {
		if len(g.SegmentsWithPoint(n.ID)) > 2 {
			out = append(out, n)
		}
	}
	return out
}

// Dispose removes everything.
func (g *Graph) Dispose() {
	g.nodes = nil
	g.edges = nil
}

// Hash fingerprints the structure so hosts can detect edits.
func (g *Graph) Hash() string {
	raw, _ := json.Marshal(g.Data())
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

func (g *Graph) nodeIndex(id NodeID) int {
	return slices.IndexFunc(g.nodes, func(n Node) bool { return n.ID == id })
}

func (g *Graph) edgeIndex(id EdgeID) int {
	return slices.IndexFunc(g.edges, func(e Edge) bool { return e.ID == id })
}
