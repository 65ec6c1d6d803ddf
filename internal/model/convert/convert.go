package convert

import (
	"encoding/json"
	"fmt"

	"github.com/roadsim/roadsim/internal/model"
	"github.com/roadsim/roadsim/pkg/core"
)

// WorldToCore decodes the document stored in a GORM World.
func WorldToCore(w model.World) (core.WorldData, error) {
	var d core.WorldData
	if err := json.Unmarshal(w.Data, &d); err != nil {
		return core.WorldData{}, fmt.Errorf("decode world %q: %w", w.Name, err)
	}
	return d, nil
}

// BrainToCore decodes the car stored in a GORM Brain.
func BrainToCore(b model.Brain) (core.CarData, error) {
	var d core.CarData
	if err := json.Unmarshal(b.Data, &d); err != nil {
		return core.CarData{}, fmt.Errorf("decode brain %q: %w", b.Name, err)
	}
	return d, nil
}

// RunToCore converts a GORM Run to a core.Run.
func RunToCore(r model.Run) core.Run {
	out := core.Run{
		ID:        r.ID,
		World:     r.WorldName,
		Seed:      r.Seed,
		Vehicles:  r.Vehicles,
		StartedAt: r.StartedAt,
	}
	if r.EndedAt != nil {
		out.EndedAt = *r.EndedAt
	}
	return out
}

// TickStatToCore converts a GORM TickStat to a core.TickStats.
func TickStatToCore(s model.TickStat) core.TickStats {
	return core.TickStats{
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
