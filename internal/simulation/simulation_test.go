package simulation

import (
	"context"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/roadsim/roadsim/internal/geometry"
	"github.com/roadsim/roadsim/internal/graph"
	"github.com/roadsim/roadsim/internal/marking"
	"github.com/roadsim/roadsim/internal/network"
	"github.com/roadsim/roadsim/internal/vehicle"
	"github.com/roadsim/roadsim/internal/world"
	"github.com/roadsim/roadsim/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	stats []Stats
}

func (r *recorder) Record(_ context.Context, s Stats) error {
	r.stats = append(r.stats, s)
	return nil
}

// road builds a straight 1000 unit road along +X.
func road(t *testing.T) *world.World {
	t.Helper()
	g := graph.New()
	a := g.AddPoint(geometry.Point{})
	b := g.AddPoint(geometry.Point{X: 1000})
	_, err := g.AddSegment(a, b, false)
	require.NoError(t, err)

	cfg := world.DefaultConfig()
	cfg.RoadRoundness = 4
	w, err := world.New(g, cfg)
	require.NoError(t, err)
	return w
}

func place(t *testing.T, w *world.World, kind marking.Kind, x float64) {
	t.Helper()
	placeAt(t, w, kind, geometry.Point{X: x})
}

func placeAt(t *testing.T, w *world.World, kind marking.Kind, p geometry.Point) {
	t.Helper()
	// start markings face against their direction vector
	m, err := marking.New(kind, p, geometry.Point{X: -1}, 30, 30)
	require.NoError(t, err)
	w.AddMarking(m)
}

// forwardBrain always presses forward and nothing else.
func forwardBrain(t *testing.T) *network.Network {
	t.Helper()
	n, err := network.New(rand.New(rand.NewSource(1)), 5+vehicle.ExtraInputs, 4)
	require.NoError(t, err)
	for _, row := range n.Levels[0].Weights {
		for j := range row {
			row[j] = 0
		}
	}
	copy(n.Levels[0].Biases, []float64{1, -1, -1, -1})
	return n
}

func newSim(t *testing.T, w *world.World, opts ...Option) *Simulation {
	t.Helper()
	opts = append([]Option{WithRand(rand.New(rand.NewSource(3)))}, opts...)
	s, err := New(w, DefaultConfig(), opts...)
	require.NoError(t, err)
	return s
}

func TestClock(t *testing.T) {
	c := Clock{Tick: 90}
	assert.Equal(t, 1500*time.Millisecond, c.Elapsed())
	assert.Equal(t, 1, c.Seconds())
}

func TestNew_RejectsNonPositiveMaxSpeed(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxSpeed = 0
	_, err := New(road(t), cfg)

	var verr *core.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "maxSpeed", verr.Field)
}

func TestSpawnFromStarts_NoStarts(t *testing.T) {
	s := newSim(t, road(t))
	assert.ErrorIs(t, s.SpawnFromStarts(context.Background(), nil), ErrNoStarts)
}

func TestSpawnFromStarts(t *testing.T) {
	w := road(t)
	place(t, w, marking.Start, 100)
	place(t, w, marking.Start, 300)
	place(t, w, marking.Target, 800)

	s := newSim(t, w)
	require.NoError(t, s.SpawnFromStarts(context.Background(), nil))
	require.Len(t, s.Agents, 2)

	for _, a := range s.Agents {
		assert.Equal(t, 0, a.Target)
		assert.InDelta(t, -math.Pi/2, a.Angle, 1e-9)
		assert.Equal(t, 3.0, a.MaxSpeed)
		assert.Equal(t, vehicle.AI, a.ControlType)
		assert.NotEmpty(t, a.Borders)
		assert.NotEmpty(t, a.Route)
	}
	assert.NotEqual(t, s.Agents[0].ID, s.Agents[1].ID)
}

func TestSpawnFromStarts_MutatesAllButFirst(t *testing.T) {
	w := road(t)
	place(t, w, marking.Start, 100)
	place(t, w, marking.Start, 300)

	brain := forwardBrain(t)
	s := newSim(t, w)
	require.NoError(t, s.SpawnFromStarts(context.Background(), brain))

	assert.Equal(t, brain.Levels, s.Agents[0].Brain.Levels)
	assert.NotSame(t, brain, s.Agents[0].Brain)
	assert.NotEqual(t, brain.Levels[0].Biases, s.Agents[1].Brain.Levels[0].Biases)
	// without targets vehicles collide with the whole road
	assert.Equal(t, w.RoadBorders, s.Agents[1].Borders)
	assert.Equal(t, -1, s.Agents[1].Target)
}

func TestTick_DrivesForward(t *testing.T) {
	w := road(t)
	place(t, w, marking.Start, 100)
	place(t, w, marking.Target, 800)

	rec := &recorder{}
	s := newSim(t, w, WithRecorder(rec))
	require.NoError(t, s.SpawnFromStarts(context.Background(), forwardBrain(t)))

	// first tick moves nothing; the brain only decides after sensing
	_, err := s.Tick(context.Background())
	require.NoError(t, err)
	assert.True(t, s.Agents[0].Controls.Forward)

	last, err := s.Run(context.Background(), 100)
	require.NoError(t, err)

	a := s.Agents[0]
	assert.False(t, a.Damaged)
	assert.Greater(t, a.X, 100.0)
	assert.InDelta(t, 0, a.Y, 1e-6)
	assert.InDelta(t, 2.95, a.Speed, 1e-9)
	assert.Greater(t, a.Mileage, 0.0)
	assert.Less(t, a.Mileage, a.X-100)

	require.Len(t, rec.stats, 101)
	assert.Equal(t, uint64(101), last.Tick)
	assert.Equal(t, a.Mileage, last.BestMileage)
	assert.Zero(t, last.Damaged)
}

func TestTick_TargetReached(t *testing.T) {
	w := road(t)
	place(t, w, marking.Start, 100)
	place(t, w, marking.Target, 105)
	place(t, w, marking.Target, 800)

	s := newSim(t, w)
	require.NoError(t, s.SpawnFromStarts(context.Background(), forwardBrain(t)))
	require.Equal(t, 0, s.Agents[0].Target)
	before := s.Agents[0].Route

	st, err := s.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, st.Corridors)
	assert.Equal(t, 1, s.Agents[0].Target)
	assert.Greater(t, routeLength(s.Agents[0].Route), routeLength(before))
}

func TestTick_Collision(t *testing.T) {
	w := road(t)
	place(t, w, marking.Start, 100)
	placeAt(t, w, marking.Start, geometry.Point{X: 110, Y: 6})

	s := newSim(t, w)
	require.NoError(t, s.SpawnFromStarts(context.Background(), nil))

	st, err := s.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, st.Collisions)
	assert.Equal(t, 2, st.Damaged)

	// already damaged vehicles are not counted again
	st, err = s.Tick(context.Background())
	require.NoError(t, err)
	assert.Zero(t, st.Collisions)
	assert.Equal(t, 2, st.Damaged)
}

func TestRun_Canceled(t *testing.T) {
	s := newSim(t, road(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Run(ctx, 10)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, s.Clock.Tick)
}

func TestBestAndReseed(t *testing.T) {
	w := road(t)
	place(t, w, marking.Start, 100)
	place(t, w, marking.Start, 300)
	place(t, w, marking.Start, 500)

	s := newSim(t, w)
	assert.Nil(t, s.Best())
	assert.Error(t, s.Reseed(0.5))

	require.NoError(t, s.SpawnFromStarts(context.Background(), nil))
	s.Agents[1].Mileage = 50
	s.Agents[2].Mileage = 10
	best := s.Best()
	require.Same(t, s.Agents[1], best)
	bestBrain := best.Brain

	assert.Error(t, s.Reseed(1.5))
	require.NoError(t, s.Reseed(0))
	assert.Same(t, bestBrain, best.Brain)
	for _, a := range []*Agent{s.Agents[0], s.Agents[2]} {
		assert.Equal(t, best.Brain.Levels, a.Brain.Levels)
		assert.NotSame(t, best.Brain, a.Brain)
	}
}

func routeLength(segs []geometry.Segment) float64 {
	total := 0.0
	for _, s := range segs {
		total += s.Length()
	}
	return total
}
