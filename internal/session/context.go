package session

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/roadsim/roadsim/internal/simulation"
	"github.com/roadsim/roadsim/internal/world"
	"github.com/roadsim/roadsim/pkg/core"
)

// NoWorld is the name reported before any world is loaded.
const NoWorld = "No world loaded"

var (
	// ErrNoWorld is returned by operations that need a loaded world.
	ErrNoWorld = errors.New("no world loaded")
	// ErrNoSimulation is returned by operations that need spawned vehicles.
	ErrNoSimulation = errors.New("no vehicles spawned")
)

// Context holds the world, simulation and run the host is working on.
// Handlers run on dispatcher goroutines, so every access goes through the
// mutex.
type Context struct {
	mu        sync.Mutex
	worldName string
	world     *world.World
	sim       *simulation.Simulation
	run       *core.Run

	// tick mirrors sim.Clock.Tick so loggers can read it without the lock.
	tick atomic.Uint64
}

// NewContext creates a new Context with default values
func NewContext() *Context {
	return &Context{worldName: NoWorld}
}

// WorldName returns the name of the current world
func (c *Context) WorldName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.worldName
}

// SetWorld replaces the world. Any running simulation belonged to the old
// world and is dropped together with its run; the dropped run is returned
// so the caller can close it.
func (c *Context) SetWorld(name string, w *world.World) *core.Run {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.worldName = name
	c.world = w
	c.sim = nil
	run := c.run
	c.run = nil
	c.tick.Store(0)
	return run
}

// SetSimulation installs a simulation over the current world and the run
// recording it. The previous run, if any, is returned.
func (c *Context) SetSimulation(sim *simulation.Simulation, run *core.Run) *core.Run {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.run
	c.sim = sim
	c.run = run
	c.tick.Store(sim.Clock.Tick)
	return prev
}

// StartSimulation calls build with the current world while holding the lock
// and installs the simulation and run it returns. Nothing changes when build
// fails.
func (c *Context) StartSimulation(build func(name string, w *world.World) (*simulation.Simulation, *core.Run, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.world == nil {
		return ErrNoWorld
	}
	sim, run, err := build(c.worldName, c.world)
	if err != nil {
		return err
	}
	c.sim = sim
	c.run = run
	c.tick.Store(sim.Clock.Tick)
	return nil
}

// ClearSimulation drops the simulation and returns its run, if any.
func (c *Context) ClearSimulation() *core.Run {
	c.mu.Lock()
	defer c.mu.Unlock()
	run := c.run
	c.sim = nil
	c.run = nil
	return run
}

// Run returns a copy of the current run, or false when none is active.
func (c *Context) Run() (core.Run, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.run == nil {
		return core.Run{}, false
	}
	return *c.run, true
}

// WithWorld calls fn with the current world while holding the lock.
func (c *Context) WithWorld(fn func(w *world.World) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.world == nil {
		return ErrNoWorld
	}
	return fn(c.world)
}

// WithSimulation calls fn with the current simulation while holding the
// lock and publishes the tick it leaves the clock at.
func (c *Context) WithSimulation(fn func(sim *simulation.Simulation) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sim == nil {
		return ErrNoSimulation
	}
	defer func() { c.tick.Store(c.sim.Clock.Tick) }()
	return fn(c.sim)
}

// Tick returns the current simulation tick. It never blocks.
func (c *Context) Tick() uint64 {
	return c.tick.Load()
}
