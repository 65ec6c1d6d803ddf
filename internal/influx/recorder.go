package influx

import (
	"context"
	"strconv"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/roadsim/roadsim/pkg/core"
)

// TickMeasurement is the measurement name of per-tick points.
const TickMeasurement = "tick"

// TickPoint builds the point for one tick of a run.
func TickPoint(run core.Run, s core.TickStats, ts time.Time) *influxdb2_write.Point {
	return influxdb2_write.NewPoint(
		TickMeasurement,
		map[string]string{
			"run":   strconv.FormatUint(uint64(run.ID), 10),
			"world": run.World,
		},
		map[string]interface{}{
			"tick":         int64(s.Tick),
			"vehicles":     s.Vehicles,
			"damaged":      s.Damaged,
			"collisions":   s.Collisions,
			"corridors":    s.Corridors,
			"best_mileage": s.BestMileage,
			"best_speed":   s.BestSpeed,
			"best_x":       s.BestX,
			"best_y":       s.BestY,
		},
		ts,
	)
}

// Recorder writes tick stats of one run to the simulation bucket.
type Recorder struct {
	manager *Manager
	run     core.Run
	now     func() time.Time
}

// NewRecorder returns a recorder tagging points with run.
func (m *Manager) NewRecorder(run core.Run) *Recorder {
	return &Recorder{manager: m, run: run, now: time.Now}
}

// Record writes one tick.
func (r *Recorder) Record(ctx context.Context, s core.TickStats) error {
	return r.manager.WritePoint(ctx, BucketSimulation, TickPoint(r.run, s, r.now()))
}
