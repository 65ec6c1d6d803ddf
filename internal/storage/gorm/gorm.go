// Package gormstorage implements the storage.Backend interface on top of any
// GORM dialect. Worlds, brains and runs are written synchronously; tick stats
// are queued and flushed in batches by a background writer.
package gormstorage

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roadsim/roadsim/internal/database"
	"github.com/roadsim/roadsim/internal/model"
	"github.com/roadsim/roadsim/internal/model/convert"
	"github.com/roadsim/roadsim/internal/queue"
	"github.com/roadsim/roadsim/pkg/core"
	"github.com/rs/zerolog"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultFlushInterval is how often queued tick stats are written.
const DefaultFlushInterval = 2 * time.Second

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB            *gorm.DB
	Logger        zerolog.Logger
	FlushInterval time.Duration
}

// Backend implements storage.Backend using GORM with a queue-based tick writer.
type Backend struct {
	deps      Dependencies
	ticks     *queue.Queue[model.TickStat]
	runID     atomic.Uint64
	lastWrite atomic.Int64
	flushMu   sync.Mutex
	stopChan  chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = DefaultFlushInterval
	}
	return &Backend{
		deps:  deps,
		ticks: queue.New[model.TickStat](),
	}
}

// DB exposes the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init migrates the schema and starts the DB writer goroutine.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return errors.New("gorm backend needs a DB")
	}
	if err := database.Migrate(b.deps.DB, b.deps.Logger); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}

	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})
	go b.writerLoop()
	return nil
}

// Close stops the writer and flushes whatever is still queued.
func (b *Backend) Close() error {
	var err error
	b.closeOnce.Do(func() {
		if b.stopChan == nil {
			return
		}
		close(b.stopChan)
		<-b.done
		err = b.Flush()
	})
	return err
}

// SaveWorld inserts the world or replaces the one saved under the same name.
func (b *Backend) SaveWorld(name string, w *core.WorldData) error {
	gormWorld, err := convert.CoreToWorld(name, *w)
	if err != nil {
		return err
	}

	var existing model.World
	err = b.deps.DB.Where("name = ?", name).First(&existing).Error
	switch {
	case err == nil:
		gormWorld.ID = existing.ID
		gormWorld.CreatedAt = existing.CreatedAt
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("failed to find world %s: %w", name, err)
	}

	if err := b.deps.DB.Save(&gormWorld).Error; err != nil {
		return fmt.Errorf("failed to save world %s: %w", name, err)
	}
	b.deps.Logger.Debug().Str("world", name).Str("hash", gormWorld.GraphHash).Msg("Saved world")
	return nil
}

// LoadWorld returns the world saved under name.
func (b *Backend) LoadWorld(name string) (*core.WorldData, error) {
	var gormWorld model.World
	if err := b.deps.DB.Where("name = ?", name).First(&gormWorld).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("world %s: %w", name, core.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load world %s: %w", name, err)
	}
	w, err := convert.WorldToCore(gormWorld)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// SaveBrain adds a new version of the named brain.
func (b *Backend) SaveBrain(name string, c *core.CarData) error {
	gormBrain, err := convert.CoreToBrain(name, *c)
	if err != nil {
		return err
	}
	if err := b.deps.DB.Create(&gormBrain).Error; err != nil {
		return fmt.Errorf("failed to save brain %s: %w", name, err)
	}
	return nil
}

// LoadBrain returns the newest version of the named brain.
func (b *Backend) LoadBrain(name string) (*core.CarData, error) {
	var gormBrain model.Brain
	err := b.deps.DB.Where("name = ?", name).Order("created_at desc").First(&gormBrain).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("brain %s: %w", name, core.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load brain %s: %w", name, err)
	}
	c, err := convert.BrainToCore(gormBrain)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// StartRun inserts the run synchronously so ticks can reference its ID.
func (b *Backend) StartRun(r *core.Run) error {
	gormRun := convert.CoreToRun(*r)
	if err := b.deps.DB.Create(&gormRun).Error; err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	r.ID = gormRun.ID
	b.runID.Store(uint64(gormRun.ID))
	b.deps.Logger.Info().Uint("run", gormRun.ID).Str("world", r.World).Msg("Run started")
	return nil
}

// RecordTick queues a tick for the writer.
func (b *Backend) RecordTick(s *core.TickStats) error {
	runID := uint(b.runID.Load())
	if runID == 0 {
		return core.ErrNoRun
	}
	b.ticks.Push(convert.CoreToTickStat(runID, *s))
	return nil
}

// EndRun flushes pending ticks and stamps the run's end time.
func (b *Backend) EndRun() error {
	runID := uint(b.runID.Load())
	if runID == 0 {
		return core.ErrNoRun
	}
	if err := b.Flush(); err != nil {
		return err
	}
	now := time.Now()
	if err := b.deps.DB.Model(&model.Run{}).Where("id = ?", runID).Update("ended_at", now).Error; err != nil {
		return fmt.Errorf("failed to end run %d: %w", runID, err)
	}
	b.runID.Store(0)
	b.deps.Logger.Info().Uint("run", runID).Msg("Run ended")
	return nil
}

// GetLastDBWriteDuration returns how long the last non-empty flush took.
func (b *Backend) GetLastDBWriteDuration() time.Duration {
	return time.Duration(b.lastWrite.Load())
}

// Flush writes all queued ticks now.
func (b *Backend) Flush() error {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	start := time.Now()
	n, err := writeQueue(b.deps.DB, b.ticks, "tick stats", b.deps.Logger)
	if n > 0 && err == nil {
		b.lastWrite.Store(int64(time.Since(start)))
	}
	return err
}

// writeQueue writes everything queued to the database in one transaction.
// On failure the items go back to the front of the queue for the next cycle.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, log zerolog.Logger) (int, error) {
	items := q.Drain(0)
	if len(items) == 0 {
		return 0, nil
	}

	tx := db.Begin()
	if err := tx.Omit(clause.Associations).Create(&items).Error; err != nil {
		log.Error().Err(err).Int("count", len(items)).Msgf("Error creating %s", name)
		tx.Rollback()
		q.Requeue(items...)
		return 0, fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tx.Commit().Error; err != nil {
		q.Requeue(items...)
		return 0, fmt.Errorf("failed to commit %s: %w", name, err)
	}
	return len(items), nil
}

// writerLoop periodically drains the tick queue into the DB.
func (b *Backend) writerLoop() {
	defer close(b.done)

	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.Flush(); err != nil {
				b.deps.Logger.Warn().Err(err).Msg("DB writer cycle failed")
			}
		}
	}
}
