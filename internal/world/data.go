package world

import (
	"fmt"
	"math/rand"

	"github.com/roadsim/roadsim/internal/geometry"
	"github.com/roadsim/roadsim/internal/graph"
	"github.com/roadsim/roadsim/internal/marking"
	"github.com/roadsim/roadsim/pkg/core"
)

// Data returns the persisted form, derived geometry included.
func (w *World) Data() core.WorldData {
	d := core.WorldData{
		Graph:             w.Graph.Data(),
		RoadWidth:         w.RoadWidth,
		RoadRoundness:     w.RoadRoundness,
		BuildingWidth:     w.BuildingWidth,
		BuildingMinLength: w.BuildingMinLength,
		Spacing:           w.Spacing,
		TreeSize:          w.TreeSize,
		Envelopes:         make([]core.EnvelopeData, len(w.Envelopes)),
		RoadBorders:       geometry.SegmentsData(w.RoadBorders),
		Buildings:         make([]core.BuildingData, len(w.Buildings)),
		Trees:             make([]core.TreeData, len(w.Trees)),
		LaneGuides:        geometry.SegmentsData(w.LaneGuides),
		Markings:          make([]core.MarkingData, len(w.Markings)),
		Zoom:              w.Zoom,
	}
	for i, e := range w.Envelopes {
		d.Envelopes[i] = e.Data()
	}
	for i, b := range w.Buildings {
		d.Buildings[i] = core.BuildingData{Base: b.Base.Data(), Height: b.Height}
	}
	for i, t := range w.Trees {
		d.Trees[i] = core.TreeData{Center: t.Center.Data(), Size: t.Size, Height: t.Height}
	}
	for i, m := range w.Markings {
		d.Markings[i] = m.Data()
	}
	if w.Offset != nil {
		off := w.Offset.Data()
		d.Offset = &off
	}
	return d
}

// Load restores a world without regenerating it. Stored derived geometry is
// used as is.
func Load(d core.WorldData, opts ...Option) (*World, error) {
	if d.RoadWidth <= 0 {
		return nil, core.Invalid("world", "roadWidth", fmt.Sprintf("must be positive, got %v", d.RoadWidth))
	}
	g, err := graph.Load(d.Graph)
	if err != nil {
		return nil, fmt.Errorf("loading world graph: %w", err)
	}

	w := &World{
		Graph: g,
		Config: Config{
			RoadWidth:         d.RoadWidth,
			RoadRoundness:     d.RoadRoundness,
			BuildingWidth:     d.BuildingWidth,
			BuildingMinLength: d.BuildingMinLength,
			Spacing:           d.Spacing,
			TreeSize:          d.TreeSize,
		},
		RoadBorders: geometry.SegmentsFromData(d.RoadBorders),
		LaneGuides:  geometry.SegmentsFromData(d.LaneGuides),
		Zoom:        d.Zoom,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.rng == nil {
		w.rng = rand.New(rand.NewSource(1))
	}

	for i, e := range d.Envelopes {
		env, err := geometry.EnvelopeFromData(e)
		if err != nil {
			return nil, fmt.Errorf("envelope %d: %w", i, err)
		}
		w.Envelopes = append(w.Envelopes, env)
	}
	for i, b := range d.Buildings {
		base, err := geometry.PolygonFromData(b.Base)
		if err != nil {
			return nil, fmt.Errorf("building %d: %w", i, err)
		}
		w.Buildings = append(w.Buildings, Building{Base: base, Height: b.Height})
	}
	for _, t := range d.Trees {
		tree := newTree(geometry.PointFromData(t.Center), t.Size)
		if t.Height > 0 {
			tree.Height = t.Height
		}
		w.Trees = append(w.Trees, tree)
	}
	for i, md := range d.Markings {
		m, err := marking.Load(md)
		if err != nil {
			return nil, fmt.Errorf("marking %d: %w", i, err)
		}
		w.Markings = append(w.Markings, m)
	}
	if d.Offset != nil {
		off := geometry.PointFromData(*d.Offset)
		w.Offset = &off
	}

	w.rebuildLights()
	w.generatedHash = g.Hash()
	return w, nil
}
