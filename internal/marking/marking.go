// Package marking implements road markings: stops, lights, crossings,
// parking bays, yields and the start/target points used for routing.
package marking

import (
	"fmt"

	"github.com/roadsim/roadsim/internal/geometry"
	"github.com/roadsim/roadsim/pkg/core"
)

// LightHeight is the fixed depth of a traffic light marking.
const LightHeight = 18

// Kind selects the marking variant.
type Kind int

const (
	Crossing Kind = iota
	Light
	Parking
	Start
	Stop
	Target
	Yield
)

var kindNames = map[Kind]string{
	Crossing: core.MarkingCrossing,
	Light:    core.MarkingLight,
	Parking:  core.MarkingParking,
	Start:    core.MarkingStart,
	Stop:     core.MarkingStop,
	Target:   core.MarkingTarget,
	Yield:    core.MarkingYield,
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind maps a persisted type discriminator to a Kind.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown marking type %q", s)
}

// LightState is the phase of a traffic light.
type LightState int

const (
	Green LightState = iota
	Yellow
	Red
)

func (s LightState) String() string {
	switch s {
	case Green:
		return "green"
	case Yellow:
		return "yellow"
	case Red:
		return "red"
	default:
		return fmt.Sprintf("LightState(%d)", int(s))
	}
}

func parseLightState(s string) (LightState, error) {
	switch s {
	case "", "green":
		return Green, nil
	case "yellow":
		return Yellow, nil
	case "red":
		return Red, nil
	default:
		return 0, fmt.Errorf("unknown light state %q", s)
	}
}

// Marking is a rectangle laid across a road. The support segment runs along
// Direction through Center; the polygon is its zero-roundness envelope.
type Marking struct {
	Kind      Kind
	Center    geometry.Point
	Direction geometry.Point
	Width     float64
	Height    float64
	Support   geometry.Segment
	Polygon   geometry.Polygon
	Borders   []geometry.Segment
	State     LightState
}

// New builds a marking of the given kind. Lights always use LightHeight.
func New(kind Kind, center, direction geometry.Point, width, height float64) (*Marking, error) {
	if _, ok := kindNames[kind]; !ok {
		return nil, fmt.Errorf("new marking: %s", kind)
	}
	if kind == Light {
		height = LightHeight
	}

	alpha, err := geometry.Angle(direction)
	if err != nil {
		return nil, fmt.Errorf("marking direction: %w", err)
	}
	support := geometry.Segment{
		P1: geometry.Translate(center, alpha, height/2),
		P2: geometry.Translate(center, alpha, -height/2),
	}
	env, err := geometry.NewEnvelope(support, width, 0)
	if err != nil {
		return nil, fmt.Errorf("marking polygon: %w", err)
	}

	m := &Marking{
		Kind:      kind,
		Center:    center,
		Direction: direction,
		Width:     width,
		Height:    height,
		Support:   support,
		Polygon:   env.Polygon,
	}

	segs := env.Polygon.Segments
	switch kind {
	case Crossing, Stop:
		m.Borders = []geometry.Segment{segs[2]}
	case Light:
		m.Borders = []geometry.Segment{segs[0]}
	case Parking:
		m.Borders = []geometry.Segment{segs[2], segs[0]}
	}
	return m, nil
}

// Blocking reports whether the marking currently asks vehicles to stop.
// Lights block unless green; stops always block.
func (m *Marking) Blocking() bool {
	switch m.Kind {
	case Stop:
		return true
	case Light:
		return m.State != Green
	default:
		return false
	}
}
