// pkg/core/run.go
package core

import "time"

// Run is one headless simulation session.
type Run struct {
	ID        uint      `json:"id"`
	World     string    `json:"world"`
	Seed      int64     `json:"seed"`
	Vehicles  int       `json:"vehicles"`
	StartedAt time.Time `json:"startedAt"`
	EndedAt   time.Time `json:"endedAt,omitzero"`
}

// TickStats summarises one simulation tick.
type TickStats struct {
	Tick        uint64  `json:"tick"`
	Vehicles    int     `json:"vehicles"`
	Damaged     int     `json:"damaged"`
	Collisions  int     `json:"collisions"`
	Corridors   int     `json:"corridors"`
	BestMileage float64 `json:"bestMileage"`
	BestSpeed   float64 `json:"bestSpeed"`
	BestX       float64 `json:"bestX"`
	BestY       float64 `json:"bestY"`
}
