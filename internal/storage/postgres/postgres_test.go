package postgres

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roadsim/roadsim/internal/database"
	"github.com/roadsim/roadsim/pkg/core"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	b := New(Dependencies{Logger: zerolog.Nop()})
	require.NotNil(t, b)
	assert.False(t, b.IsLocalFallback())
	// Close before Init is a no-op
	require.NoError(t, b.Close())
}

func TestInitClose_InjectedDB(t *testing.T) {
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "pg.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	b := New(Dependencies{DB: db, Logger: zerolog.Nop()})
	require.NoError(t, b.Init())
	assert.False(t, b.IsLocalFallback())

	run := &core.Run{World: "grid", StartedAt: time.Now()}
	require.NoError(t, b.StartRun(run))
	assert.NotZero(t, run.ID)
	require.NoError(t, b.RecordTick(&core.TickStats{Tick: 1}))
	require.NoError(t, b.EndRun())

	require.NoError(t, b.Close())
}

func TestInit_UnreachableFallsBack(t *testing.T) {
	b := New(Dependencies{
		Config: database.Config{Host: "127.0.0.1", Port: "1", Username: "x", Password: "x", Database: "roadsim"},
		Logger: zerolog.Nop(),
	})
	require.NoError(t, b.Init())
	t.Cleanup(func() { _ = b.Close() })
	assert.True(t, b.IsLocalFallback())

	require.NoError(t, b.SaveWorld("grid", &core.WorldData{RoadWidth: 50, RoadRoundness: 4}))
	got, err := b.LoadWorld("grid")
	require.NoError(t, err)
	assert.Equal(t, 50.0, got.RoadWidth)
}
