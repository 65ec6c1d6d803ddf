package graph

import "github.com/roadsim/roadsim/internal/geometry"

// Tx records temporary nodes and edges so they can be removed again.
// Typical use:
//
//	tx := g.Begin()
//	defer tx.Rollback()
type Tx struct {
	g     *Graph
	nodes []NodeID
	edges []EdgeID
}

// Begin starts recording temporary additions.
func (g *Graph) Begin() *Tx {
	return &Tx{g: g}
}

// AddPoint adds a temporary node, even if a node with the same coordinates exists.
func (tx *Tx) AddPoint(p geometry.Point) NodeID {
	id := tx.g.AddPoint(p)
	tx.nodes = append(tx.nodes, id)
	return id
}

// AddSegment adds a temporary edge.
func (tx *Tx) AddSegment(from, to NodeID, oneWay bool) (EdgeID, error) {
	id, err := tx.g.AddSegment(from, to, oneWay)
	if err != nil {
		return 0, err
	}
	tx.edges = append(tx.edges, id)
	return id, nil
}

// Rollback removes every recorded edge, then every recorded node.
// Calling it more than once is harmless.
func (tx *Tx) Rollback() {
	for _, id := range tx.edges {
		tx.g.RemoveSegment(id)
	}
	for _, id := range tx.nodes {
		tx.g.RemovePoint(id)
	}
	tx.edges = nil
	tx.nodes = nil
}
