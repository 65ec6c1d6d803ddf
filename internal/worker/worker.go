package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/roadsim/roadsim/internal/influx"
	"github.com/roadsim/roadsim/internal/logging"
	"github.com/roadsim/roadsim/internal/parser"
	"github.com/roadsim/roadsim/internal/session"
	"github.com/roadsim/roadsim/internal/simulation"
	"github.com/roadsim/roadsim/internal/storage"
	"github.com/roadsim/roadsim/internal/world"
	"github.com/roadsim/roadsim/pkg/core"
)

// ErrNoVehicles is returned when a brain is requested from an empty simulation.
var ErrNoVehicles = errors.New("simulation has no vehicles")

// Dependencies holds all dependencies for the worker manager
type Dependencies struct {
	Session       *session.Context
	LogManager    *logging.SlogManager
	ParserService parser.Service
	// Influx is optional; tick points and :METRIC: are skipped without it.
	Influx *influx.Manager
	World  world.Config
	Spawn  simulation.Config
	// Seed of the first run. Every later spawn adds one.
	Seed int64
	Now  func() time.Time
}

// Manager owns the command handlers and the storage backend they write to.
type Manager struct {
	deps    Dependencies
	backend storage.Backend

	mu        sync.Mutex
	seedBrain *core.CarData
	spawns    int64
}

// NewManager creates a new worker manager
func NewManager(deps Dependencies, backend storage.Backend) *Manager {
	if deps.Session == nil {
		deps.Session = session.NewContext()
	}
	if deps.ParserService == nil {
		deps.ParserService = parser.NewParser(nil)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Manager{
		deps:    deps,
		backend: backend,
	}
}

// Session returns the session the handlers operate on.
func (m *Manager) Session() *session.Context {
	return m.deps.Session
}

// DBWriteDurationProvider is an optional interface that backends can implement
// to expose their last DB write duration for monitoring.
type DBWriteDurationProvider interface {
	GetLastDBWriteDuration() time.Duration
}

// GetLastDBWriteDuration returns the duration of the last DB write cycle.
// Returns 0 if the backend doesn't support this metric.
func (m *Manager) GetLastDBWriteDuration() time.Duration {
	if p, ok := m.backend.(DBWriteDurationProvider); ok {
		return p.GetLastDBWriteDuration()
	}
	return 0
}

// Close ends the current run, if any.
func (m *Manager) Close() error {
	if m.deps.Session.ClearSimulation() == nil {
		return nil
	}
	return m.endRun()
}

func (m *Manager) logger() *slog.Logger {
	if m.deps.LogManager == nil {
		return slog.Default()
	}
	return m.deps.LogManager.Logger()
}

func (m *Manager) nextSeed() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	seed := m.deps.Seed + m.spawns
	m.spawns++
	return seed
}

// endRun closes the backend's run. Having none is not an error.
func (m *Manager) endRun() error {
	if err := m.backend.EndRun(); err != nil && !errors.Is(err, core.ErrNoRun) {
		return err
	}
	return nil
}

// recorderFor sends every tick of run to the backend and, when configured, influx.
func (m *Manager) recorderFor(run core.Run) simulation.Recorder {
	rs := recorders{backendRecorder{m.backend}}
	if m.deps.Influx != nil {
		rs = append(rs, m.deps.Influx.NewRecorder(run))
	}
	return rs
}

type backendRecorder struct {
	backend storage.Backend
}

func (r backendRecorder) Record(_ context.Context, s simulation.Stats) error {
	return r.backend.RecordTick(&s)
}

type recorders []simulation.Recorder

func (rs recorders) Record(ctx context.Context, s simulation.Stats) error {
	var errs []error
	for _, r := range rs {
		if err := r.Record(ctx, s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Status is the reply to :STATUS:.
type Status struct {
	World       string        `json:"world"`
	Tick        uint64        `json:"tick"`
	Vehicles    int           `json:"vehicles"`
	Damaged     int           `json:"damaged"`
	BestMileage float64       `json:"bestMileage"`
	RunID       uint          `json:"runId"`
	LastDBWrite time.Duration `json:"lastDbWrite"`
}

// Status reports the current world, simulation and storage state.
func (m *Manager) Status() Status {
	st := Status{
		World:       m.deps.Session.WorldName(),
		LastDBWrite: m.GetLastDBWriteDuration(),
	}
	if run, ok := m.deps.Session.Run(); ok {
		st.RunID = run.ID
	}
	_ = m.deps.Session.WithSimulation(func(sim *simulation.Simulation) error {
		st.Tick = sim.Clock.Tick
		st.Vehicles = len(sim.Agents)
		for _, a := range sim.Agents {
			if a.Damaged {
				st.Damaged++
			}
		}
		if best := sim.Best(); best != nil {
			st.BestMileage = best.Mileage
		}
		return nil
	})
	return st
}
