package world

import (
	"math/rand"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/roadsim/roadsim/internal/geometry"
	"github.com/roadsim/roadsim/internal/graph"
	"github.com/roadsim/roadsim/internal/marking"
	"github.com/roadsim/roadsim/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.RoadRoundness = 4
	return cfg
}

// cross is a plus-shaped road network with its junction at the origin.
func cross(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New()
	center := g.AddPoint(geometry.Point{})
	for _, p := range []geometry.Point{{X: 500}, {X: -500}, {Y: 500}, {Y: -500}} {
		_, err := g.AddSegment(center, g.AddPoint(p), false)
		require.NoError(t, err)
	}
	return g
}

// line is a single straight road from (0,0) to (length,0).
func line(t *testing.T, length float64, oneWay bool) *graph.Graph {
	t.Helper()
	g := graph.New()
	a := g.AddPoint(geometry.Point{})
	b := g.AddPoint(geometry.Point{X: length})
	_, err := g.AddSegment(a, b, oneWay)
	require.NoError(t, err)
	return g
}

func routeLength(segs []geometry.Segment) float64 {
	total := 0.0
	for _, s := range segs {
		total += s.Length()
	}
	return total
}

func TestGenerate(t *testing.T) {
	w, err := New(cross(t), testConfig(), WithRand(rand.New(rand.NewSource(7))))
	require.NoError(t, err)

	assert.Len(t, w.Envelopes, 4)
	assert.NotEmpty(t, w.RoadBorders)
	assert.NotEmpty(t, w.LaneGuides)
	assert.NotEmpty(t, w.Buildings)

	for i, b := range w.Buildings {
		for _, e := range w.Envelopes {
			assert.False(t, b.Base.IntersectsPolygon(e.Polygon), "building %d overlaps the road", i)
		}
	}
	for _, tree := range w.Trees {
		for _, e := range w.Envelopes {
			assert.False(t, e.Polygon.ContainsPoint(tree.Center))
		}
	}
}

func TestGenerate_TreesAreSeeded(t *testing.T) {
	a, err := New(cross(t), testConfig(), WithRand(rand.New(rand.NewSource(3))))
	require.NoError(t, err)
	b, err := New(cross(t), testConfig(), WithRand(rand.New(rand.NewSource(3))))
	require.NoError(t, err)

	require.Equal(t, len(a.Trees), len(b.Trees))
	for i := range a.Trees {
		assert.Equal(t, a.Trees[i].Center, b.Trees[i].Center)
	}
}

func TestGenerateIfChanged(t *testing.T) {
	w, err := New(line(t, 400, false), testConfig())
	require.NoError(t, err)

	changed, err := w.GenerateIfChanged()
	require.NoError(t, err)
	assert.False(t, changed)

	p := w.Graph.AddPoint(geometry.Point{X: 400, Y: 400})
	end, _ := w.Graph.Find(geometry.Point{X: 400})
	_, err = w.Graph.AddSegment(end, p, false)
	require.NoError(t, err)

	changed, err = w.GenerateIfChanged()
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Len(t, w.Envelopes, 2)
}

func TestGenerateCorridor_LeavesGraphUntouched(t *testing.T) {
	w, err := New(cross(t), testConfig())
	require.NoError(t, err)
	points, segments, hash := w.Graph.PointCount(), w.Graph.SegmentCount(), w.Graph.Hash()

	require.NoError(t, w.GenerateCorridor(geometry.Point{X: 400, Y: 30}, geometry.Point{X: -20, Y: -350}))

	assert.Equal(t, points, w.Graph.PointCount())
	assert.Equal(t, segments, w.Graph.SegmentCount())
	assert.Equal(t, hash, w.Graph.Hash())

	require.Len(t, w.Route, 2)
	assert.InDelta(t, 400, w.Route[0].P1.X, 1e-9)
	assert.Equal(t, geometry.Point{}, w.Route[0].P2)
	assert.Equal(t, geometry.Point{}, w.Route[1].P1)
	assert.InDelta(t, -350, w.Route[1].P2.Y, 1e-9)
	assert.InDelta(t, 750, routeLength(w.Route), 1e-9)
	assert.NotEmpty(t, w.Corridor)
}

func TestGenerateCorridor_SameSegment(t *testing.T) {
	w, err := New(line(t, 100, false), testConfig())
	require.NoError(t, err)

	require.NoError(t, w.GenerateCorridor(geometry.Point{X: 10, Y: 5}, geometry.Point{X: 80, Y: -5}))
	require.Len(t, w.Route, 1)
	assert.InDelta(t, 70, routeLength(w.Route), 1e-9)
	assert.Equal(t, 2, w.Graph.PointCount())
	assert.Equal(t, 1, w.Graph.SegmentCount())
}

func TestGenerateCorridor_ClampsPastSegmentEnd(t *testing.T) {
	w, err := New(line(t, 100, false), testConfig())
	require.NoError(t, err)

	require.NoError(t, w.GenerateCorridor(geometry.Point{X: -50}, geometry.Point{X: 60}))
	assert.Equal(t, geometry.Point{}, w.Route[0].P1)
	assert.InDelta(t, 60, routeLength(w.Route), 1e-9)
}

func TestGenerateCorridor_OneWayAgainstTraffic(t *testing.T) {
	w, err := New(line(t, 100, true), testConfig())
	require.NoError(t, err)

	err = w.GenerateCorridor(geometry.Point{X: 80}, geometry.Point{X: 10})
	require.ErrorIs(t, err, graph.ErrNoRoute)
	assert.Equal(t, 2, w.Graph.PointCount())
	assert.Equal(t, 1, w.Graph.SegmentCount())

	require.NoError(t, w.GenerateCorridor(geometry.Point{X: 10}, geometry.Point{X: 80}))
}

func TestGenerateCorridor_Unreachable(t *testing.T) {
	g := line(t, 100, false)
	c := g.AddPoint(geometry.Point{X: 1000, Y: 1000})
	d := g.AddPoint(geometry.Point{X: 1200, Y: 1000})
	_, err := g.AddSegment(c, d, false)
	require.NoError(t, err)

	w, err := New(g, testConfig())
	require.NoError(t, err)
	require.NoError(t, w.GenerateCorridor(geometry.Point{X: 10}, geometry.Point{X: 90}))
	previous := w.Corridor

	err = w.GenerateCorridor(geometry.Point{X: 10}, geometry.Point{X: 1100, Y: 1000})
	require.ErrorIs(t, err, graph.ErrNoRoute)
	assert.Equal(t, 4, w.Graph.PointCount())
	assert.Equal(t, 2, w.Graph.SegmentCount())
	assert.Equal(t, previous, w.Corridor)
}

func TestGenerateCorridor_EmptyGraph(t *testing.T) {
	w, err := New(graph.New(), testConfig())
	require.NoError(t, err)

	err = w.GenerateCorridor(geometry.Point{}, geometry.Point{X: 1})
	require.ErrorIs(t, err, ErrEmptyGraph)
}

func TestLights_CycleAroundIntersection(t *testing.T) {
	w, err := New(cross(t), testConfig())
	require.NoError(t, err)

	east, err := marking.New(marking.Light, geometry.Point{X: 80, Y: 25}, geometry.Point{X: -1}, 50, 0)
	require.NoError(t, err)
	north, err := marking.New(marking.Light, geometry.Point{X: -25, Y: 80}, geometry.Point{Y: -1}, 50, 0)
	require.NoError(t, err)
	w.AddMarking(east)
	w.AddMarking(north)

	require.Len(t, w.LightControllers(), 1)
	assert.Equal(t, geometry.Point{}, w.LightControllers()[0].Center)

	steps := []struct {
		at          time.Duration
		east, north marking.LightState
	}{
		{0, marking.Green, marking.Red},
		{1500 * time.Millisecond, marking.Green, marking.Red},
		{2 * time.Second, marking.Yellow, marking.Red},
		{3 * time.Second, marking.Red, marking.Green},
		{5 * time.Second, marking.Red, marking.Yellow},
		{6 * time.Second, marking.Green, marking.Red},
	}
	for _, s := range steps {
		w.UpdateLights(s.at)
		assert.Equal(t, s.east, east.State, "east at %s", s.at)
		assert.Equal(t, s.north, north.State, "north at %s", s.at)
	}

	w.UpdateLights(0)
	assert.Equal(t, north.Borders, w.BlockingLightBorders())
}

func TestStopBorders(t *testing.T) {
	w, err := New(line(t, 400, false), testConfig())
	require.NoError(t, err)

	stop, err := marking.New(marking.Stop, geometry.Point{X: 300, Y: 25}, geometry.Point{X: 1}, 50, 20)
	require.NoError(t, err)
	w.AddMarking(stop)
	start, err := marking.New(marking.Start, geometry.Point{X: 20, Y: 25}, geometry.Point{X: 1}, 50, 20)
	require.NoError(t, err)
	w.AddMarking(start)

	assert.Equal(t, stop.Borders, w.StopBorders())
	assert.Equal(t, []*marking.Marking{start}, w.MarkingsOf(marking.Start))
}

func TestData_RoundTrip(t *testing.T) {
	w, err := New(cross(t), testConfig())
	require.NoError(t, err)
	light, err := marking.New(marking.Light, geometry.Point{X: 80, Y: 25}, geometry.Point{X: -1}, 50, 0)
	require.NoError(t, err)
	w.AddMarking(light)
	w.Offset = &geometry.Point{X: 3, Y: 4}

	data := w.Data()
	loaded, err := Load(data)
	require.NoError(t, err)

	if diff := cmp.Diff(data, loaded.Data()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
	assert.Len(t, loaded.LightControllers(), 1)

	changed, err := loaded.GenerateIfChanged()
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestLoad_Validation(t *testing.T) {
	w, err := New(line(t, 100, false), testConfig())
	require.NoError(t, err)

	data := w.Data()
	data.Markings = append(data.Markings, core.MarkingData{Type: "roundabout"})
	_, err = Load(data)
	var verr *core.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "marking", verr.Entity)

	data = w.Data()
	data.RoadWidth = 0
	_, err = Load(data)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "roadWidth", verr.Field)
}
