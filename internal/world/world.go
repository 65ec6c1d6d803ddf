// Package world derives drivable geometry from a road graph: road envelopes
// and borders, buildings, trees, lane guides, markings and traffic lights,
// plus the corridor a vehicle is routed through.
package world

import (
	"fmt"
	"math/rand"

	"github.com/roadsim/roadsim/internal/geometry"
	"github.com/roadsim/roadsim/internal/graph"
	"github.com/roadsim/roadsim/internal/marking"
)

// Config holds generation parameters.
type Config struct {
	RoadWidth         float64
	RoadRoundness     int
	BuildingWidth     float64
	BuildingMinLength float64
	Spacing           float64
	TreeSize          float64
}

// DefaultConfig returns the stock generation parameters.
func DefaultConfig() Config {
	return Config{
		RoadWidth:         100,
		RoadRoundness:     10,
		BuildingWidth:     150,
		BuildingMinLength: 150,
		Spacing:           50,
		TreeSize:          160,
	}
}

// Option configures a World.
type Option func(*World)

// WithRand sets the random source used for tree placement.
func WithRand(rng *rand.Rand) Option {
	return func(w *World) {
		w.rng = rng
	}
}

// World owns the graph and everything generated from it.
type World struct {
	Graph *graph.Graph
	Config

	Envelopes   []geometry.Envelope
	RoadBorders []geometry.Segment
	Buildings   []Building
	Trees       []Tree
	LaneGuides  []geometry.Segment
	Markings    []*marking.Marking

	// Corridor is the outline of the last generated route, Route its skeleton.
	Corridor []geometry.Segment
	Route    []geometry.Segment

	Zoom   float64
	Offset *geometry.Point

	lights        []*LightController
	generatedHash string
	rng           *rand.Rand
}

// New creates a world around g and generates its geometry.
func New(g *graph.Graph, cfg Config, opts ...Option) (*World, error) {
	w := &World{Graph: g, Config: cfg}
	for _, opt := range opts {
		opt(w)
	}
	if w.rng == nil {
		w.rng = rand.New(rand.NewSource(1))
	}
	if err := w.Generate(); err != nil {
		return nil, err
	}
	return w, nil
}

// Generate rebuilds all derived geometry from the graph.
func (w *World) Generate() error {
	envelopes, err := envelopesFor(w.Graph.Segments(), w.RoadWidth, w.RoadRoundness)
	if err != nil {
		return fmt.Errorf("road envelopes: %w", err)
	}
	w.Envelopes = envelopes
	w.RoadBorders = geometry.Union(polygons(envelopes))

	if w.Buildings, err = w.generateBuildings(); err != nil {
		return fmt.Errorf("buildings: %w", err)
	}
	w.Trees = w.generateTrees()

	guides, err := envelopesFor(w.Graph.Segments(), w.RoadWidth/2, w.RoadRoundness)
	if err != nil {
		return fmt.Errorf("lane guides: %w", err)
	}
	w.LaneGuides = geometry.Union(polygons(guides))

	w.rebuildLights()
	w.generatedHash = w.Graph.Hash()
	return nil
}

// GenerateIfChanged regenerates only when the graph was edited since the
// last generation. It reports whether it did.
func (w *World) GenerateIfChanged() (bool, error) {
	if w.Graph.Hash() == w.generatedHash {
		return false, nil
	}
	return true, w.Generate()
}

// AddMarking places m and regroups traffic lights.
func (w *World) AddMarking(m *marking.Marking) {
	w.Markings = append(w.Markings, m)
	w.rebuildLights()
}

// MarkingsOf returns the markings of the given kind in placement order.
func (w *World) MarkingsOf(kind marking.Kind) []*marking.Marking {
	var out []*marking.Marking
	for _, m := range w.Markings {
		if m.Kind == kind {
			out = append(out, m)
		}
	}
	return out
}

// StopBorders returns the borders of every stop marking.
func (w *World) StopBorders() []geometry.Segment {
	var out []geometry.Segment
	for _, m := range w.MarkingsOf(marking.Stop) {
		out = append(out, m.Borders...)
	}
	return out
}

// BlockingLightBorders returns the borders of lights that are not green.
func (w *World) BlockingLightBorders() []geometry.Segment {
	var out []geometry.Segment
	for _, m := range w.MarkingsOf(marking.Light) {
		if m.Blocking() {
			out = append(out, m.Borders...)
		}
	}
	return out
}

func envelopesFor(segs []geometry.Segment, width float64, roundness int) ([]geometry.Envelope, error) {
	out := make([]geometry.Envelope, 0, len(segs))
	for _, s := range segs {
		env, err := geometry.NewEnvelope(s, width, roundness)
		if err != nil {
			return nil, err
		}
		out = append(out, env)
	}
	return out, nil
}

func polygons(envs []geometry.Envelope) []geometry.Polygon {
	out := make([]geometry.Polygon, len(envs))
	for i, e := range envs {
		out[i] = e.Polygon
	}
	return out
}
