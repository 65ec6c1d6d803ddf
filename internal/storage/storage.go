// internal/storage/storage.go
package storage

import "github.com/roadsim/roadsim/pkg/core"

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Saved state. Loads return core.ErrNotFound for unknown names.
	SaveWorld(name string, w *core.WorldData) error
	LoadWorld(name string) (*core.WorldData, error)
	SaveBrain(name string, c *core.CarData) error
	LoadBrain(name string) (*core.CarData, error)

	// Run recording (assigns ID to the passed run)
	StartRun(r *core.Run) error
	RecordTick(s *core.TickStats) error
	EndRun() error
}

