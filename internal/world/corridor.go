package world

import (
	"errors"
	"fmt"
	"math"

	"github.com/roadsim/roadsim/internal/geometry"
	"github.com/roadsim/roadsim/internal/graph"
)

// ErrEmptyGraph is returned when there is no road to route over.
var ErrEmptyGraph = errors.New("graph has no segments")

// anchor is a position projected onto its nearest road segment.
type anchor struct {
	edge   graph.Edge
	point  geometry.Point
	offset float64
}

func (w *World) anchor(p geometry.Point) (anchor, error) {
	e, ok := w.Graph.NearestSegment(p)
	if !ok {
		return anchor{}, ErrEmptyGraph
	}
	seg, _ := w.Graph.Segment(e)
	proj, err := seg.ProjectPoint(p)
	if err != nil {
		return anchor{}, fmt.Errorf("projecting onto segment %d: %w", e.ID, err)
	}
	offset := math.Max(0, math.Min(1, proj.Offset))
	return anchor{edge: e, point: geometry.Lerp2D(seg.P1, seg.P2, offset), offset: offset}, nil
}

// GenerateCorridor routes from start to target over the road graph and stores
// the unioned envelope of the route in Corridor. Both positions are snapped
// onto their nearest segment and spliced in as temporary nodes, which are
// removed again before returning, whether or not a route was found.
func (w *World) GenerateCorridor(start, target geometry.Point) error {
	from, err := w.anchor(start)
	if err != nil {
		return fmt.Errorf("corridor start: %w", err)
	}
	to, err := w.anchor(target)
	if err != nil {
		return fmt.Errorf("corridor target: %w", err)
	}

	tx := w.Graph.Begin()
	defer tx.Rollback()

	s := tx.AddPoint(from.point)
	t := tx.AddPoint(to.point)
	if err := splice(tx, from.edge, s); err != nil {
		return err
	}
	if err := splice(tx, to.edge, t); err != nil {
		return err
	}
	if from.edge.ID == to.edge.ID && (!from.edge.OneWay || from.offset <= to.offset) {
		if _, err := tx.AddSegment(s, t, from.edge.OneWay); err != nil {
			return err
		}
	}

	path, err := w.Graph.ShortestPath(s, t)
	if err != nil {
		return fmt.Errorf("corridor: %w", err)
	}
	route := w.Graph.Route(path)

	var envelopes []geometry.Envelope
	for _, seg := range route {
		if seg.Length() == 0 {
			continue
		}
		env, err := geometry.NewEnvelope(seg, w.RoadWidth, w.RoadRoundness)
		if err != nil {
			return fmt.Errorf("corridor envelope: %w", err)
		}
		envelopes = append(envelopes, env)
	}

	w.Route = route
	w.Corridor = geometry.Union(polygons(envelopes))
	return nil
}

// splice splits e at mid with two temporary edges that keep e's direction.
func splice(tx *graph.Tx, e graph.Edge, mid graph.NodeID) error {
	if _, err := tx.AddSegment(e.From, mid, e.OneWay); err != nil {
		return fmt.Errorf("splicing segment %d: %w", e.ID, err)
	}
	if _, err := tx.AddSegment(mid, e.To, e.OneWay); err != nil {
		return fmt.Errorf("splicing segment %d: %w", e.ID, err)
	}
	return nil
}
