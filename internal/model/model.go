package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&RoadsimInfo{},
	&World{},
	&Brain{},
	&Run{},
	&TickStat{},
}

////////////////////////
// SYSTEM MODELS
////////////////////////

// RoadsimInfo records the schema version of the database.
type RoadsimInfo struct {
	gorm.Model
	SchemaVersion int    `json:"schemaVersion"`
	Description   string `json:"description" gorm:"size:255"`
}

func (*RoadsimInfo) TableName() string {
	return "roadsim_infos"
}

////////////////////////
// SAVED STATE
////////////////////////

// World is a saved road network with its markings. Data holds the full
// core.WorldData document.
type World struct {
	gorm.Model
	Name        string         `json:"name" gorm:"size:127;uniqueIndex"`
	GraphHash   string         `json:"graphHash" gorm:"size:64"`
	Points      int            `json:"points"`
	Segments    int            `json:"segments"`
	Markings    int            `json:"markings"`
	BordersWKT  string         `json:"bordersWkt" gorm:"type:text"`
	RoadArea    float64        `json:"roadArea"`
	Data        datatypes.JSON `json:"data"`
}

func (*World) TableName() string {
	return "worlds"
}

// Brain is one saved car. Saving under an existing name adds a new version;
// the newest one wins on load.
type Brain struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time      `json:"createdAt" gorm:"index"`
	Name      string         `json:"name" gorm:"size:127;index"`
	Inputs    int            `json:"inputs"`
	Outputs   int            `json:"outputs"`
	Data      datatypes.JSON `json:"data"`
}

func (*Brain) TableName() string {
	return "brains"
}

// BeforeCreate assigns a random id when none is set.
func (b *Brain) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

////////////////////////
// RUN RECORDING
////////////////////////

// Run is one headless session.
type Run struct {
	gorm.Model
	WorldName string     `json:"world" gorm:"size:127;index"`
	Seed      int64      `json:"seed"`
	Vehicles  int        `json:"vehicles"`
	StartedAt time.Time  `json:"startedAt"`
	EndedAt   *time.Time `json:"endedAt"`
}

func (*Run) TableName() string {
	return "runs"
}

// TickStat is the summary of one tick of a run.
type TickStat struct {
	ID          uint    `json:"id" gorm:"primarykey"`
	RunID       uint    `json:"runId" gorm:"index:idx_tickstat_run_tick"`
	Run         Run     `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:RunID;"`
	Tick        uint64  `json:"tick" gorm:"index:idx_tickstat_run_tick"`
	Vehicles    int     `json:"vehicles"`
	Damaged     int     `json:"damaged"`
	Collisions  int     `json:"collisions"`
	Corridors   int     `json:"corridors"`
	BestMileage float64 `json:"bestMileage"`
	BestSpeed   float64 `json:"bestSpeed"`
	BestX       float64 `json:"bestX"`
	BestY       float64 `json:"bestY"`
}

func (*TickStat) TableName() string {
	return "tick_stats"
}
