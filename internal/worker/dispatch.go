package worker

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"github.com/roadsim/roadsim/internal/dispatcher"
	"github.com/roadsim/roadsim/internal/geo"
	"github.com/roadsim/roadsim/internal/geometry"
	"github.com/roadsim/roadsim/internal/influx"
	"github.com/roadsim/roadsim/internal/marking"
	"github.com/roadsim/roadsim/internal/network"
	"github.com/roadsim/roadsim/internal/parser"
	"github.com/roadsim/roadsim/internal/session"
	"github.com/roadsim/roadsim/internal/simulation"
	"github.com/roadsim/roadsim/internal/util"
	"github.com/roadsim/roadsim/internal/world"
	"github.com/roadsim/roadsim/pkg/core"
)

// RegisterHandlers registers all command handlers with the dispatcher.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	// World setup - sync, later commands depend on it
	d.Register(":WORLD:GENERATE:", m.handleWorldGenerate, dispatcher.Logged())
	d.Register(":WORLD:LOAD:", m.handleWorldLoad, dispatcher.Logged())
	d.Register(":WORLD:SAVE:", m.handleWorldSave, dispatcher.Logged())
	d.Register(":MARKING:ADD:", m.handleMarkingAdd, dispatcher.Logged())
	d.Register(":ROUTE:", m.handleRoute, dispatcher.Logged())

	// Simulation - sync, callers read the returned stats
	d.Register(":SIM:SPAWN:", m.handleSimSpawn, dispatcher.Logged())
	d.Register(":SIM:TICK:", m.handleSimTick, dispatcher.Logged())
	d.Register(":SIM:RESEED:", m.handleSimReseed, dispatcher.Logged())
	d.Register(":SIM:END:", m.handleSimEnd, dispatcher.Logged())

	d.Register(":BRAIN:SAVE:", m.handleBrainSave, dispatcher.Logged())
	d.Register(":BRAIN:LOAD:", m.handleBrainLoad, dispatcher.Logged())

	d.Register(":STATUS:", m.handleStatus)

	// Host metrics - buffered
	d.Register(":METRIC:", m.handleMetric, dispatcher.Buffered(1000), dispatcher.Logged())
	d.Register(":LOG:", m.handleLog, dispatcher.Buffered(1000))
}

// WorldSummary is the reply to world commands.
type WorldSummary struct {
	Name      string  `json:"name"`
	Points    int     `json:"points"`
	Segments  int     `json:"segments"`
	Borders   int     `json:"borders"`
	Buildings int     `json:"buildings"`
	Trees     int     `json:"trees"`
	Markings  int     `json:"markings"`
	RoadArea  float64 `json:"roadArea"`
}

func summarize(name string, w *world.World) WorldSummary {
	s := WorldSummary{
		Name:      name,
		Points:    w.Graph.PointCount(),
		Segments:  w.Graph.SegmentCount(),
		Borders:   len(w.RoadBorders),
		Buildings: len(w.Buildings),
		Trees:     len(w.Trees),
		Markings:  len(w.Markings),
	}
	polys := make([]core.PolygonData, len(w.Envelopes))
	for i, env := range w.Envelopes {
		polys[i] = env.Polygon.Data()
	}
	// degenerate envelopes only cost the area figure
	s.RoadArea, _ = geo.TotalArea(polys)
	return s
}

// RouteResult is the reply to :ROUTE:.
type RouteResult struct {
	Segments int     `json:"segments"`
	Length   float64 `json:"length"`
	Borders  int     `json:"borders"`
	WKT      string  `json:"wkt"`
}

// installWorld makes w the session world, ending any run on the old one.
func (m *Manager) installWorld(name string, w *world.World) error {
	if dropped := m.deps.Session.SetWorld(name, w); dropped != nil {
		if err := m.endRun(); err != nil {
			return fmt.Errorf("ending run %d: %w", dropped.ID, err)
		}
	}
	return nil
}

func (m *Manager) worldRand() *rand.Rand {
	return rand.New(rand.NewSource(m.deps.Seed))
}

func (m *Manager) handleWorldGenerate(e dispatcher.Event) (any, error) {
	cmd, err := m.deps.ParserService.ParseGenerate(e.Args)
	if err != nil {
		return nil, err
	}

	g, err := geo.GraphFromPolylines(cmd.Polylines...)
	if err != nil {
		return nil, fmt.Errorf("generate %s: %w", cmd.Name, err)
	}
	w, err := world.New(g, m.deps.World, world.WithRand(m.worldRand()))
	if err != nil {
		return nil, fmt.Errorf("generate %s: %w", cmd.Name, err)
	}
	if err := m.installWorld(cmd.Name, w); err != nil {
		return nil, err
	}
	return summarize(cmd.Name, w), nil
}

func (m *Manager) handleWorldLoad(e dispatcher.Event) (any, error) {
	name, err := m.deps.ParserService.ParseName(e.Args, "")
	if err != nil {
		return nil, err
	}

	data, err := m.backend.LoadWorld(name)
	if err != nil {
		return nil, err
	}
	return m.ImportWorld(name, *data)
}

// ImportWorld installs a world read from outside storage, such as a file.
func (m *Manager) ImportWorld(name string, data core.WorldData) (WorldSummary, error) {
	w, err := world.Load(data, world.WithRand(m.worldRand()))
	if err != nil {
		return WorldSummary{}, fmt.Errorf("import %s: %w", name, err)
	}
	if err := m.installWorld(name, w); err != nil {
		return WorldSummary{}, err
	}
	return summarize(name, w), nil
}

func (m *Manager) handleWorldSave(e dispatcher.Event) (any, error) {
	current := m.deps.Session.WorldName()
	if current == session.NoWorld {
		current = ""
	}
	name, err := m.deps.ParserService.ParseName(e.Args, current)
	if err != nil {
		return nil, session.ErrNoWorld
	}

	var data core.WorldData
	if err := m.deps.Session.WithWorld(func(w *world.World) error {
		data = w.Data()
		return nil
	}); err != nil {
		return nil, err
	}
	if err := m.backend.SaveWorld(name, &data); err != nil {
		return nil, err
	}
	return name, nil
}

func (m *Manager) handleMarkingAdd(e dispatcher.Event) (any, error) {
	cmd, err := m.deps.ParserService.ParseMarking(e.Args)
	if err != nil {
		return nil, err
	}

	var count int
	err = m.deps.Session.WithWorld(func(w *world.World) error {
		size := w.RoadWidth / 2
		mk, err := marking.New(cmd.Kind, cmd.Center, cmd.Direction, size, size)
		if err != nil {
			return err
		}
		w.AddMarking(mk)
		count = len(w.MarkingsOf(cmd.Kind))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return count, nil
}

func (m *Manager) handleRoute(e dispatcher.Event) (any, error) {
	cmd, err := m.deps.ParserService.ParseRoute(e.Args)
	if err != nil {
		return nil, err
	}

	var res RouteResult
	err = m.deps.Session.WithWorld(func(w *world.World) error {
		if err := w.GenerateCorridor(cmd.Start, cmd.Target); err != nil {
			return err
		}
		res.Segments = len(w.Route)
		for _, seg := range w.Route {
			res.Length += seg.Length()
		}
		res.Borders = len(w.Corridor)
		res.WKT = geo.SegmentsWKT(geometry.SegmentsData(w.Route))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// spawnBrain resolves the brain for :SIM:SPAWN:. A named brain comes from
// storage, otherwise the one set by :BRAIN:LOAD: is used. Nil means random.
func (m *Manager) spawnBrain(args []string) (*core.CarData, error) {
	if len(args) > 0 && args[0] != "" {
		name, err := m.deps.ParserService.ParseName(args, "")
		if err != nil {
			return nil, err
		}
		return m.backend.LoadBrain(name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seedBrain, nil
}

func (m *Manager) handleSimSpawn(e dispatcher.Event) (any, error) {
	car, err := m.spawnBrain(e.Args)
	if err != nil {
		return nil, err
	}

	cfg := m.deps.Spawn
	var brain *network.Network
	if car != nil {
		if brain, err = network.Load(car.Brain); err != nil {
			return nil, err
		}
		if car.Sensor.RayCount > 0 {
			cfg.Sensor = car.Sensor
		}
		if car.MaxSpeed > 0 {
			cfg.MaxSpeed = car.MaxSpeed
		}
	}

	seed := m.nextSeed()
	var started core.Run
	err = m.deps.Session.StartSimulation(func(name string, w *world.World) (*simulation.Simulation, *core.Run, error) {
		if err := m.endRun(); err != nil {
			return nil, nil, err
		}
		run := &core.Run{
			World:     name,
			Seed:      seed,
			Vehicles:  len(w.MarkingsOf(marking.Start)),
			StartedAt: m.deps.Now(),
		}
		if err := m.backend.StartRun(run); err != nil {
			return nil, nil, err
		}

		sim, err := simulation.New(w, cfg,
			simulation.WithRand(rand.New(rand.NewSource(seed))),
			simulation.WithRecorder(m.recorderFor(*run)),
			simulation.WithLogger(m.logger()),
		)
		if err == nil {
			err = sim.SpawnFromStarts(context.Background(), brain)
		}
		if err != nil {
			if endErr := m.endRun(); endErr != nil {
				err = errors.Join(err, endErr)
			}
			return nil, nil, err
		}
		started = *run
		return sim, run, nil
	})
	if err != nil {
		return nil, err
	}
	return started, nil
}

func (m *Manager) handleSimTick(e dispatcher.Event) (any, error) {
	n, err := m.deps.ParserService.ParseTicks(e.Args)
	if err != nil {
		return nil, err
	}

	var stats simulation.Stats
	err = m.deps.Session.WithSimulation(func(sim *simulation.Simulation) error {
		stats, err = sim.Run(context.Background(), n)
		return err
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (m *Manager) handleSimReseed(e dispatcher.Event) (any, error) {
	amount, err := m.deps.ParserService.ParseAmount(e.Args, m.deps.Spawn.Mutation)
	if err != nil {
		return nil, err
	}
	err = m.deps.Session.WithSimulation(func(sim *simulation.Simulation) error {
		return sim.Reseed(amount)
	})
	if err != nil {
		return nil, err
	}
	return amount, nil
}

func (m *Manager) handleSimEnd(e dispatcher.Event) (any, error) {
	dropped := m.deps.Session.ClearSimulation()
	if dropped == nil {
		return nil, session.ErrNoSimulation
	}
	if err := m.endRun(); err != nil {
		return nil, err
	}
	return dropped.ID, nil
}

func (m *Manager) handleBrainSave(e dispatcher.Event) (any, error) {
	name, err := m.deps.ParserService.ParseName(e.Args, "")
	if err != nil {
		return nil, err
	}

	var car core.CarData
	err = m.deps.Session.WithSimulation(func(sim *simulation.Simulation) error {
		best := sim.Best()
		if best == nil {
			return ErrNoVehicles
		}
		car, err = best.Data()
		return err
	})
	if err != nil {
		return nil, err
	}
	if err := m.backend.SaveBrain(name, &car); err != nil {
		return nil, err
	}
	return name, nil
}

func (m *Manager) handleBrainLoad(e dispatcher.Event) (any, error) {
	name, err := m.deps.ParserService.ParseName(e.Args, "")
	if err != nil {
		return nil, err
	}

	car, err := m.backend.LoadBrain(name)
	if err != nil {
		return nil, err
	}
	n, err := network.Load(car.Brain)
	if err != nil {
		return nil, fmt.Errorf("brain %s: %w", name, err)
	}

	m.mu.Lock()
	m.seedBrain = car
	m.mu.Unlock()
	return n.InputSize(), nil
}

func (m *Manager) handleStatus(e dispatcher.Event) (any, error) {
	return m.Status(), nil
}

// handleLog forwards a host-side log line: [function level message...].
func (m *Manager) handleLog(e dispatcher.Event) (any, error) {
	args := util.CleanArgs(e.Args)
	if len(args) < 3 {
		return nil, fmt.Errorf("%w: :LOG: needs function, level and message", parser.ErrMissingArgs)
	}
	if m.deps.LogManager != nil {
		m.deps.LogManager.WriteLog(args[0], strings.Join(args[2:], " "), args[1])
	}
	return nil, nil
}

func (m *Manager) handleMetric(e dispatcher.Event) (any, error) {
	if m.deps.Influx == nil {
		return nil, nil
	}
	bucket, point, err := influx.ProcessMetricData(e.Args)
	if err != nil {
		return nil, err
	}
	if err := m.deps.Influx.WritePoint(context.Background(), bucket, point); err != nil {
		return nil, err
	}
	return nil, nil
}
