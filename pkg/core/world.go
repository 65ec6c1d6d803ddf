// pkg/core/world.go
package core

// Marking type discriminators
const (
	MarkingCrossing = "crossing"
	MarkingLight    = "light"
	MarkingParking  = "parking"
	MarkingStart    = "start"
	MarkingStop     = "stop"
	MarkingTarget   = "target"
	MarkingYield    = "yield"
)

// MarkingData is the persisted form of a road marking.
// Type selects the variant; the remaining fields are shared by all variants.
type MarkingData struct {
	Type      string     `json:"type"`
	Center    *PointData `json:"center"`
	Direction *PointData `json:"direction"`
	Width     float64    `json:"width"`
	Height    float64    `json:"height"`
	State     string     `json:"state,omitempty"` // lights only
}

// BuildingData is a building footprint with its extrusion height.
type BuildingData struct {
	Base   PolygonData `json:"base"`
	Height float64     `json:"height"`
}

// TreeData is a tree placed in the world.
type TreeData struct {
	Center PointData `json:"center"`
	Size   float64   `json:"size"`
	Height float64   `json:"height"`
}

// WorldData is the persisted world. Derived geometry is stored alongside the
// graph so a loaded world does not need to be regenerated before use.
type WorldData struct {
	Graph             GraphData      `json:"graph"`
	RoadWidth         float64        `json:"roadWidth"`
	RoadRoundness     int            `json:"roadRoundness"`
	BuildingWidth     float64        `json:"buildingWidth"`
	BuildingMinLength float64        `json:"buildingMinLength"`
	Spacing           float64        `json:"spacing"`
	TreeSize          float64        `json:"treeSize"`
	Envelopes         []EnvelopeData `json:"envelopes"`
	RoadBorders       []SegmentData  `json:"roadBorders"`
	Buildings         []BuildingData `json:"buildings"`
	Trees             []TreeData     `json:"trees"`
	LaneGuides        []SegmentData  `json:"laneGuides"`
	Markings          []MarkingData  `json:"markings"`
	Zoom              float64        `json:"zoom,omitempty"`
	Offset            *PointData     `json:"offset,omitempty"`
}
