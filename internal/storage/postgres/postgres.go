// Package postgres implements the storage.Backend interface on PostgreSQL.
// It wraps the GORM backend and owns the connection, falling back to an
// in-memory SQLite database when Postgres cannot be reached.
package postgres

import (
	"errors"
	"fmt"

	"github.com/roadsim/roadsim/internal/database"
	gormstorage "github.com/roadsim/roadsim/internal/storage/gorm"
	"github.com/rs/zerolog"

	"gorm.io/gorm"
)

// Dependencies holds all dependencies for the Postgres storage backend.
// DB is optional; when nil, Init connects using Config.
type Dependencies struct {
	DB     *gorm.DB
	Config database.Config
	Logger zerolog.Logger
}

// Backend implements storage.Backend using GORM/PostgreSQL.
type Backend struct {
	*gormstorage.Backend
	deps    Dependencies
	manager *database.Manager
}

// New creates a new Postgres storage backend.
func New(deps Dependencies) *Backend {
	return &Backend{deps: deps}
}

// Init connects if needed, then initializes the embedded GORM backend.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		b.manager = database.NewManager(b.deps.Logger)
		if err := b.manager.Connect(b.deps.Config); err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		if b.manager.Fallback {
			b.deps.Logger.Warn().Msg("Postgres unavailable, recording to in-memory SQLite")
		}
		b.deps.DB = b.manager.DB
	}

	b.Backend = gormstorage.New(gormstorage.Dependencies{
		DB:     b.deps.DB,
		Logger: b.deps.Logger,
	})
	return b.Backend.Init()
}

// Close flushes the GORM backend and releases a connection opened by Init.
func (b *Backend) Close() error {
	if b.Backend == nil {
		return nil
	}
	err := b.Backend.Close()
	if b.manager != nil {
		err = errors.Join(err, b.manager.Close())
	}
	return err
}

// IsLocalFallback reports whether Init fell back to SQLite.
func (b *Backend) IsLocalFallback() bool {
	return b.manager != nil && b.manager.Fallback
}
