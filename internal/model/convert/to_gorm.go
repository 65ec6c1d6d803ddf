// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/roadsim/roadsim/internal/geo"
	"github.com/roadsim/roadsim/internal/model"
	"github.com/roadsim/roadsim/pkg/core"
	"gorm.io/datatypes"
)

// graphHash fingerprints a persisted graph the same way graph.Graph.Hash does.
func graphHash(g core.GraphData) (string, error) {
	raw, err := json.Marshal(g)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// CoreToWorld converts a core.WorldData to a GORM model.World.
// The full document goes into Data; the other columns are derived from it
// for querying without decoding.
func CoreToWorld(name string, w core.WorldData) (model.World, error) {
	data, err := json.Marshal(w)
	if err != nil {
		return model.World{}, fmt.Errorf("marshal world %q: %w", name, err)
	}
	hash, err := graphHash(w.Graph)
	if err != nil {
		return model.World{}, fmt.Errorf("hash world %q: %w", name, err)
	}
	area, err := geo.EnvelopeArea(w)
	if err != nil {
		return model.World{}, fmt.Errorf("area of world %q: %w", name, err)
	}

	return model.World{
		Name:       name,
		GraphHash:  hash,
		Points:     len(w.Graph.Points),
		Segments:   len(w.Graph.Segments),
		Markings:   len(w.Markings),
		BordersWKT: geo.SegmentsWKT(w.RoadBorders),
		RoadArea:   area,
		Data:       datatypes.JSON(data),
	}, nil
}

// CoreToBrain converts a core.CarData to a GORM model.Brain.
func CoreToBrain(name string, c core.CarData) (model.Brain, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return model.Brain{}, fmt.Errorf("marshal brain %q: %w", name, err)
	}

	var inputs, outputs int
	if levels := c.Brain.Levels; len(levels) > 0 {
		inputs = len(levels[0].Inputs)
		outputs = len(levels[len(levels)-1].Outputs)
	}

	return model.Brain{
		Name:    name,
		Inputs:  inputs,
		Outputs: outputs,
		Data:    datatypes.JSON(data),
	}, nil
}

// CoreToRun converts a core.Run to a GORM model.Run.
// A zero EndedAt means the run is still going.
func CoreToRun(r core.Run) model.Run {
	var ended *time.Time
	if !r.EndedAt.IsZero() {
		t := r.EndedAt
		ended = &t
	}

	m := model.Run{
		WorldName: r.World,
		Seed:      r.Seed,
		Vehicles:  r.Vehicles,
		StartedAt: r.StartedAt,
		EndedAt:   ended,
	}
	m.ID = r.ID
	return m
}

// CoreToTickStat converts a core.TickStats to a GORM model.TickStat for runID.
func CoreToTickStat(runID uint, s core.TickStats) model.TickStat {
	return model.TickStat{
		RunID:       runID,
		Tick:        s.Tick,
		Vehicles:    s.Vehicles,
		Damaged:     s.Damaged,
		Collisions:  s.Collisions,
		Corridors:   s.Corridors,
		BestMileage: s.BestMileage,
		BestSpeed:   s.BestSpeed,
		BestX:       s.BestX,
		BestY:       s.BestY,
	}
}
