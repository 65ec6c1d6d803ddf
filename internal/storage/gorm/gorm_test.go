package gormstorage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roadsim/roadsim/internal/database"
	"github.com/roadsim/roadsim/internal/model"
	"github.com/roadsim/roadsim/pkg/core"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

// newTestBackend creates an initialized Backend on a throwaway SQLite file.
// The flush interval is long so tests control when ticks are written.
func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "gorm.db"))
	require.NoError(t, err)

	b := New(Dependencies{DB: db, Logger: zerolog.Nop(), FlushInterval: time.Hour})
	require.NoError(t, b.Init())
	t.Cleanup(func() {
		_ = b.Close()
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return b
}

func testWorld() *core.WorldData {
	a := core.PointData{X: 0, Y: 0}
	c := core.PointData{X: 200, Y: 0}
	return &core.WorldData{
		Graph: core.GraphData{
			Points:   []core.PointData{a, c},
			Segments: []core.SegmentData{{P1: a, P2: c}},
		},
		RoadWidth:     100,
		RoadRoundness: 10,
	}
}

func TestNew_DefaultFlushInterval(t *testing.T) {
	b := New(Dependencies{})
	assert.Equal(t, DefaultFlushInterval, b.deps.FlushInterval)
}

func TestInit_NoDB(t *testing.T) {
	b := New(Dependencies{Logger: zerolog.Nop()})
	require.Error(t, b.Init())
	// Close without a running writer is a no-op
	require.NoError(t, b.Close())
}

func TestSaveLoadWorld(t *testing.T) {
	b := newTestBackend(t)

	require.NoError(t, b.SaveWorld("grid", testWorld()))

	got, err := b.LoadWorld("grid")
	require.NoError(t, err)
	assert.Equal(t, testWorld().Graph, got.Graph)
	assert.Equal(t, 100.0, got.RoadWidth)
}

func TestSaveWorld_ReplacesByName(t *testing.T) {
	b := newTestBackend(t)

	require.NoError(t, b.SaveWorld("grid", testWorld()))
	changed := testWorld()
	changed.RoadWidth = 60
	require.NoError(t, b.SaveWorld("grid", changed))

	var count int64
	require.NoError(t, b.DB().Model(&model.World{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	got, err := b.LoadWorld("grid")
	require.NoError(t, err)
	assert.Equal(t, 60.0, got.RoadWidth)
}

func TestLoadWorld_NotFound(t *testing.T) {
	b := newTestBackend(t)

	_, err := b.LoadWorld("missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestLoadBrain_NewestWins(t *testing.T) {
	b := newTestBackend(t)

	now := time.Now()
	older := model.Brain{Name: "best", CreatedAt: now.Add(-time.Hour), Data: datatypes.JSON(`{"maxSpeed":1}`)}
	newer := model.Brain{Name: "best", CreatedAt: now, Data: datatypes.JSON(`{"maxSpeed":2}`)}
	require.NoError(t, b.DB().Create(&newer).Error)
	require.NoError(t, b.DB().Create(&older).Error)

	got, err := b.LoadBrain("best")
	require.NoError(t, err)
	assert.Equal(t, 2.0, got.MaxSpeed)
}

func TestSaveLoadBrain(t *testing.T) {
	b := newTestBackend(t)

	car := &core.CarData{
		Brain: core.BrainData{Levels: []core.LevelData{{
			Inputs:  []float64{0, 0},
			Outputs: []float64{0},
			Biases:  []float64{0.25},
			Weights: [][]float64{{0.5}, {-0.5}},
		}}},
		MaxSpeed: 3,
	}
	require.NoError(t, b.SaveBrain("solo", car))

	got, err := b.LoadBrain("solo")
	require.NoError(t, err)
	assert.Equal(t, *car, *got)

	_, err = b.LoadBrain("other")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestRecordTick_NoRun(t *testing.T) {
	b := newTestBackend(t)

	assert.ErrorIs(t, b.RecordTick(&core.TickStats{Tick: 1}), core.ErrNoRun)
	assert.ErrorIs(t, b.EndRun(), core.ErrNoRun)
}

func TestRunLifecycle(t *testing.T) {
	b := newTestBackend(t)

	run := &core.Run{World: "grid", Seed: 5, Vehicles: 3, StartedAt: time.Now()}
	require.NoError(t, b.StartRun(run))
	require.NotZero(t, run.ID)

	for i := uint64(1); i <= 3; i++ {
		require.NoError(t, b.RecordTick(&core.TickStats{Tick: i, Vehicles: 3}))
	}
	assert.Equal(t, 3, b.ticks.Len())

	require.NoError(t, b.EndRun())
	assert.True(t, b.ticks.Empty())

	var stats []model.TickStat
	require.NoError(t, b.DB().Where("run_id = ?", run.ID).Order("tick").Find(&stats).Error)
	require.Len(t, stats, 3)
	assert.Equal(t, uint64(3), stats[2].Tick)

	var stored model.Run
	require.NoError(t, b.DB().First(&stored, run.ID).Error)
	assert.NotNil(t, stored.EndedAt)

	assert.ErrorIs(t, b.RecordTick(&core.TickStats{Tick: 4}), core.ErrNoRun)
}

func TestClose_FlushesQueue(t *testing.T) {
	b := newTestBackend(t)

	run := &core.Run{World: "grid", StartedAt: time.Now()}
	require.NoError(t, b.StartRun(run))
	require.NoError(t, b.RecordTick(&core.TickStats{Tick: 1}))

	require.NoError(t, b.Close())
	// idempotent
	require.NoError(t, b.Close())

	var count int64
	require.NoError(t, b.DB().Model(&model.TickStat{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
	assert.Greater(t, b.GetLastDBWriteDuration(), time.Duration(0))
}

func TestFlush_RequeuesOnFailure(t *testing.T) {
	b := newTestBackend(t)

	run := &core.Run{World: "grid", StartedAt: time.Now()}
	require.NoError(t, b.StartRun(run))
	require.NoError(t, b.RecordTick(&core.TickStats{Tick: 1}))

	sqlDB, err := b.DB().DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	require.Error(t, b.Flush())
	assert.Equal(t, 1, b.ticks.Len())
}
