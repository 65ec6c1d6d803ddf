// internal/storage/memory/memory.go
package memory

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/roadsim/roadsim/internal/config"
	"github.com/roadsim/roadsim/pkg/core"
)

// Backend keeps saved state and the current run in memory. With an
// OutputDir configured, saves and finished runs are also written as JSON so
// they survive a restart.
type Backend struct {
	cfg config.MemoryConfig

	worlds map[string]core.WorldData
	brains map[string]core.CarData

	run   *core.Run
	ticks []core.TickStats

	idCounter      uint
	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:    cfg,
		worlds: make(map[string]core.WorldData),
		brains: make(map[string]core.CarData),
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// SaveWorld stores the world under name.
func (b *Backend) SaveWorld(name string, w *core.WorldData) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.worlds[name] = *w
	if b.cfg.OutputDir == "" {
		return nil
	}
	_, err := b.writeDocument(savedFileName("world", name), w)
	return err
}

// LoadWorld returns the world saved under name, reading it from OutputDir
// when it was saved by an earlier process.
func (b *Backend) LoadWorld(name string) (*core.WorldData, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if w, ok := b.worlds[name]; ok {
		return &w, nil
	}
	var w core.WorldData
	if err := b.readDocument(savedFileName("world", name), &w); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("world %s: %w", name, core.ErrNotFound)
		}
		return nil, err
	}
	b.worlds[name] = w
	return &w, nil
}

// SaveBrain stores the car under name, replacing any earlier save.
func (b *Backend) SaveBrain(name string, c *core.CarData) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.brains[name] = *c
	if b.cfg.OutputDir == "" {
		return nil
	}
	_, err := b.writeDocument(savedFileName("brain", name), c)
	return err
}

// LoadBrain returns the car saved under name.
func (b *Backend) LoadBrain(name string) (*core.CarData, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if c, ok := b.brains[name]; ok {
		return &c, nil
	}
	var c core.CarData
	if err := b.readDocument(savedFileName("brain", name), &c); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("brain %s: %w", name, core.ErrNotFound)
		}
		return nil, err
	}
	b.brains[name] = c
	return &c, nil
}

// StartRun begins recording a new run
func (b *Backend) StartRun(r *core.Run) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.idCounter++
	r.ID = b.idCounter
	run := *r
	b.run = &run
	b.ticks = nil
	return nil
}

// RecordTick appends tick stats to the current run
func (b *Backend) RecordTick(s *core.TickStats) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.run == nil {
		return core.ErrNoRun
	}
	b.ticks = append(b.ticks, *s)
	return nil
}

// EndRun finalizes and exports the run
func (b *Backend) EndRun() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.run == nil {
		return core.ErrNoRun
	}
	b.run.EndedAt = time.Now()

	var err error
	if b.cfg.OutputDir != "" {
		err = b.exportRun()
	}
	b.run = nil
	return err
}

// Ticks returns a copy of the ticks recorded for the current run.
func (b *Backend) Ticks() []core.TickStats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]core.TickStats(nil), b.ticks...)
}

// GetExportedFilePath returns the path of the last exported run.
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}
