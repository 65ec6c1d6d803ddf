// Package simulation drives a population of vehicles through a world one
// tick at a time.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/roadsim/roadsim/internal/geometry"
	"github.com/roadsim/roadsim/internal/marking"
	"github.com/roadsim/roadsim/internal/network"
	"github.com/roadsim/roadsim/internal/sensor"
	"github.com/roadsim/roadsim/internal/vehicle"
	"github.com/roadsim/roadsim/internal/world"
	"github.com/roadsim/roadsim/pkg/core"
	"go.opentelemetry.io/otel/metric"
)

// TargetRadius is how close a vehicle must get to count its target as reached.
const TargetRadius = 10

// ErrNoStarts is returned when spawning in a world without start markings.
var ErrNoStarts = errors.New("world has no start markings")

// Config holds the spawn parameters.
type Config struct {
	Width    float64
	Height   float64
	MaxSpeed float64
	Sensor   core.SensorData
	Hidden   int
	// Mutation is applied to every spawned brain except the first.
	Mutation float64
}

// DefaultConfig matches the stock spawn: a 24x40 car capped at speed 3.
func DefaultConfig() Config {
	return Config{
		Width:    24,
		Height:   40,
		MaxSpeed: 3,
		Sensor: core.SensorData{
			RayCount:  sensor.DefaultRayCount,
			RayLength: sensor.DefaultRayLength,
			RaySpread: sensor.DefaultRaySpread,
			RayOffset: sensor.DefaultRayOffset,
		},
		Hidden:   vehicle.HiddenNeurons,
		Mutation: 0.9,
	}
}

// Agent is a vehicle plus its navigation state.
type Agent struct {
	*vehicle.Vehicle
	// Target indexes the world's target markings; -1 when there are none.
	Target int
	// Borders are what this agent collides with: its corridor, or the
	// world's road borders when it has no target.
	Borders []geometry.Segment
	Route   []geometry.Segment
}

// Stats summarises one tick.
type Stats = core.TickStats

// Recorder receives the stats of every tick.
type Recorder interface {
	Record(ctx context.Context, s Stats) error
}

// Option configures a Simulation.
type Option func(*Simulation)

// WithRand sets the random source for brains and mutation.
func WithRand(rng *rand.Rand) Option {
	return func(s *Simulation) { s.rng = rng }
}

// WithRecorder sends tick stats to r.
func WithRecorder(r Recorder) Option {
	return func(s *Simulation) { s.recorder = r }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Simulation) { s.logger = l }
}

// Simulation owns the world and its vehicles. It is not safe for concurrent use.
type Simulation struct {
	World  *world.World
	Agents []*Agent
	Clock  Clock

	cfg      Config
	rng      *rand.Rand
	recorder Recorder
	logger   *slog.Logger

	ticks            metric.Int64Counter
	collisions       metric.Int64Counter
	corridors        metric.Int64Counter
	corridorDuration metric.Float64Histogram
}

// New creates an empty simulation over w.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(w *world.World, cfg Config, opts ...Option) (*Simulation, error) {
	if w == nil {
		return nil, errors.New("simulation needs a world")
	}
	if cfg.MaxSpeed <= 0 || math.IsNaN(cfg.MaxSpeed) || math.IsInf(cfg.MaxSpeed, 0) {
		return nil, core.Invalid("car", "maxSpeed", fmt.Sprintf("must be positive, got %v", cfg.MaxSpeed))
	}
	s := &Simulation{World: w, cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(1))
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	m := meter()
	var err error
	s.ticks, err = m.Int64Counter(
		"roadsim.ticks",
		metric.WithDescription("Total simulation ticks"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating ticks counter: %w", err)
	}
	s.collisions, err = m.Int64Counter(
		"roadsim.collisions",
		metric.WithDescription("Vehicles damaged"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating collisions counter: %w", err)
	}
	s.corridors, err = m.Int64Counter(
		"roadsim.corridors",
		metric.WithDescription("Corridors generated"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating corridors counter: %w", err)
	}
	s.corridorDuration, err = m.Float64Histogram(
		"roadsim.corridor.duration",
		metric.WithDescription("Time spent generating a corridor"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating corridor histogram: %w", err)
	}
	return s, nil
}

// Vehicles returns the agents' vehicles in spawn order.
func (s *Simulation) Vehicles() []*vehicle.Vehicle {
	out := make([]*vehicle.Vehicle, len(s.Agents))
	for i, a := range s.Agents {
		out[i] = a.Vehicle
	}
	return out
}

// SpawnFromStarts replaces the population with one AI vehicle per start
// marking. When brain is given the first vehicle gets a copy of it and
// the rest get mutated copies; otherwise every brain is random. Targets
// are handed out round-robin and each agent's corridor is generated.
func (s *Simulation) SpawnFromStarts(ctx context.Context, brain *network.Network) error {
	starts := s.World.MarkingsOf(marking.Start)
	if len(starts) == 0 {
		return ErrNoStarts
	}
	targets := s.World.MarkingsOf(marking.Target)

	agents := make([]*Agent, 0, len(starts))
	for i, st := range starts {
		dir, err := geometry.Angle(st.Direction)
		if err != nil {
			return fmt.Errorf("start %d: %w", i, err)
		}
		sn, err := sensor.Load(s.cfg.Sensor)
		if err != nil {
			return err
		}
		opts := []vehicle.Option{
			vehicle.WithAngle(-dir + math.Pi/2),
			vehicle.WithMaxSpeed(s.cfg.MaxSpeed),
			vehicle.WithSensor(sn),
		}
		b, err := s.brainFor(i, brain, sn.RayCount)
		if err != nil {
			return err
		}
		opts = append(opts, vehicle.WithBrain(b))

		v, err := vehicle.New(st.Center.X, st.Center.Y, s.cfg.Width, s.cfg.Height, vehicle.AI, s.rng, opts...)
		if err != nil {
			return fmt.Errorf("start %d: %w", i, err)
		}

		a := &Agent{Vehicle: v, Target: -1, Borders: s.World.RoadBorders}
		if len(targets) > 0 {
			a.Target = i % len(targets)
			if err := s.route(ctx, a); err != nil {
				return err
			}
		}
		agents = append(agents, a)
	}

	s.Agents = agents
	s.logger.Info("spawned vehicles", "count", len(agents), "targets", len(targets))
	return nil
}

func (s *Simulation) brainFor(i int, brain *network.Network, rays int) (*network.Network, error) {
	if brain == nil {
		return network.New(s.rng, rays+vehicle.ExtraInputs, s.cfg.Hidden, 4)
	}
	b := brain.Clone()
	if i > 0 {
		if err := b.Mutate(s.rng, s.cfg.Mutation); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// route regenerates a's corridor towards its current target.
func (s *Simulation) route(ctx context.Context, a *Agent) error {
	target := s.World.MarkingsOf(marking.Target)[a.Target].Center
	start := time.Now()
	err := s.World.GenerateCorridor(a.Position(), target)
	s.corridorDuration.Record(ctx, float64(time.Since(start).Microseconds())/1000)
	if err != nil {
		return fmt.Errorf("vehicle %s: %w", a.ID, err)
	}
	s.corridors.Add(ctx, 1)
	a.Borders = s.World.Corridor
	a.Route = s.World.Route
	return nil
}

// Tick advances the simulation by one step. Every vehicle moves first;
// then lights update and each vehicle checks for damage and senses against
// the moved population; finally vehicles that reached their target are
// given the next one.
func (s *Simulation) Tick(ctx context.Context) (Stats, error) {
	s.Clock.Tick++

	for _, a := range s.Agents {
		a.Advance()
	}

	s.World.UpdateLights(s.Clock.Elapsed())
	cues := vehicle.Cues{
		Stops:  s.World.StopBorders(),
		Lights: s.World.BlockingLightBorders(),
	}

	vehicles := s.Vehicles()
	stats := Stats{Tick: s.Clock.Tick, Vehicles: len(s.Agents)}
	for _, a := range s.Agents {
		traffic := vehicle.Polygons(vehicles, a.Vehicle)
		wasDamaged := a.Damaged
		if a.Assess(a.Borders, traffic) && !wasDamaged {
			stats.Collisions++
			s.logger.Debug("vehicle damaged", "vehicle", a.ID, "tick", s.Clock.Tick, "mileage", a.Mileage)
		}
		if err := a.Perceive(a.Borders, traffic, cues); err != nil {
			return stats, err
		}
	}

	targets := s.World.MarkingsOf(marking.Target)
	for _, a := range s.Agents {
		if a.Target < 0 || a.Target >= len(targets) {
			continue
		}
		if geometry.Distance(a.Position(), targets[a.Target].Center) >= TargetRadius {
			continue
		}
		a.Target = (a.Target + 1) % len(targets)
		if err := s.route(ctx, a); err != nil {
			return stats, err
		}
		stats.Corridors++
		s.logger.Info("target reached", "vehicle", a.ID, "next", a.Target, "tick", s.Clock.Tick)
	}

	for _, a := range s.Agents {
		if a.Damaged {
			stats.Damaged++
		}
	}
	if best := s.Best(); best != nil {
		stats.BestMileage = best.Mileage
		stats.BestSpeed = best.Speed
		stats.BestX, stats.BestY = best.X, best.Y
	}

	s.ticks.Add(ctx, 1)
	if stats.Collisions > 0 {
		s.collisions.Add(ctx, int64(stats.Collisions))
	}
	if s.recorder != nil {
		if err := s.recorder.Record(ctx, stats); err != nil {
			s.logger.Warn("recording tick failed", "tick", s.Clock.Tick, "error", err)
		}
	}
	return stats, nil
}

// Run ticks n times or until ctx is done.
func (s *Simulation) Run(ctx context.Context, n int) (Stats, error) {
	var last Stats
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return last, err
		}
		st, err := s.Tick(ctx)
		if err != nil {
			return st, err
		}
		last = st
	}
	return last, nil
}

// Best returns the agent with the highest mileage, or nil when there are none.
// Ties go to the earliest spawned.
func (s *Simulation) Best() *Agent {
	var best *Agent
	for _, a := range s.Agents {
		if best == nil || a.Mileage > best.Mileage {
			best = a
		}
	}
	return best
}

// Reseed copies the best brain into every other agent and mutates the copies
// by amount. The best agent keeps its brain unchanged.
func (s *Simulation) Reseed(amount float64) error {
	best := s.Best()
	if best == nil || best.Brain == nil {
		return errors.New("no brain to reseed from")
	}
	if amount < 0 || amount > 1 {
		return fmt.Errorf("mutation amount %v outside [0, 1]", amount)
	}
	for _, a := range s.Agents {
		if a == best {
			continue
		}
		b := best.Brain.Clone()
		if err := b.Mutate(s.rng, amount); err != nil {
			return err
		}
		a.Brain = b
	}
	return nil
}
