// internal/storage/factory.go
package storage

import (
	"fmt"

	"github.com/roadsim/roadsim/internal/config"
	"github.com/roadsim/roadsim/internal/storage/memory"
	"github.com/roadsim/roadsim/internal/storage/postgres"
	sqlitestorage "github.com/roadsim/roadsim/internal/storage/sqlite"
	"github.com/roadsim/roadsim/internal/storage/websocket"
	"github.com/rs/zerolog"
)

// NewBackend creates a storage backend based on configuration
func NewBackend(cfg config.StorageConfig, log zerolog.Logger) (Backend, error) {
	switch cfg.Type {
	case "postgres":
		return postgres.New(postgres.Dependencies{Config: cfg.Postgres, Logger: log}), nil
	case "sqlite":
		return sqlitestorage.New(sqlitestorage.Config{
			DumpInterval: cfg.SQLite.DumpInterval,
			DumpPath:     cfg.SQLite.Path,
		}, log)
	case "websocket":
		return websocket.New(websocket.Config{
			URL:    cfg.WebSocket.URL,
			Secret: cfg.WebSocket.Secret,
			Saves:  memory.New(cfg.Memory),
		}, log), nil
	case "memory", "":
		return memory.New(cfg.Memory), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
