// Package vehicle models a car: kinematics, its polygon, collision damage,
// and the sense-think loop that turns sensor readings into controls.
package vehicle

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/google/uuid"
	"github.com/roadsim/roadsim/internal/geometry"
	"github.com/roadsim/roadsim/internal/network"
	"github.com/roadsim/roadsim/internal/sensor"
)

// Physics constants. Speeds are in world units per tick, angles in radians.
const (
	DefaultAcceleration = 0.2
	DefaultFriction     = 0.05
	DefaultMaxSpeed     = 5.0
	SteeringRate        = 0.03
)

// HiddenNeurons is the width of the single hidden layer of a fresh brain.
const HiddenNeurons = 6

// ExtraInputs are appended after the ray readings: speed ratio, stop and light.
const ExtraInputs = 3

// ControlType decides who sets the controls.
type ControlType int

const (
	// AI vehicles are driven by their brain.
	AI ControlType = iota
	// Dummy vehicles drive straight ahead and have no sensor.
	Dummy
)

func (c ControlType) String() string {
	switch c {
	case AI:
		return "AI"
	case Dummy:
		return "DUMMY"
	default:
		return fmt.Sprintf("ControlType(%d)", int(c))
	}
}

// Controls are the four inputs of a vehicle.
type Controls struct {
	Forward bool
	Left    bool
	Right   bool
	Reverse bool
}

// Cues are marking borders a vehicle reacts to besides obstacles.
type Cues struct {
	Stops  []geometry.Segment
	Lights []geometry.Segment
}

// Vehicle is a car on the road. Angle 0 faces -Y; positive angles turn left.
type Vehicle struct {
	ID uuid.UUID

	X     float64
	Y     float64
	Angle float64
	Speed float64

	Acceleration float64
	Friction     float64
	MaxSpeed     float64

	Width  float64
	Height float64

	ControlType ControlType
	Controls    Controls
	Damaged     bool
	// Mileage accumulates signed speed every tick the vehicle moves.
	Mileage float64

	Sensor  *sensor.Sensor
	Brain   *network.Network
	Polygon geometry.Polygon

	// Auxiliary signals from the last Perceive.
	StopSignal  float64
	LightSignal float64
}

// Option configures a Vehicle at construction.
type Option func(*Vehicle)

func WithAngle(angle float64) Option {
	return func(v *Vehicle) { v.Angle = angle }
}

func WithMaxSpeed(speed float64) Option {
	return func(v *Vehicle) { v.MaxSpeed = speed }
}

func WithSensor(s *sensor.Sensor) Option {
	return func(v *Vehicle) { v.Sensor = s }
}

func WithBrain(n *network.Network) Option {
	return func(v *Vehicle) { v.Brain = n }
}

// New creates a vehicle at rest. AI vehicles get a default sensor when none
// is given and a random brain sized for it.
func New(x, y, width, height float64, ct ControlType, rng *rand.Rand, opts ...Option) (*Vehicle, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("vehicle size %vx%v: %w", width, height, geometry.ErrDegenerate)
	}
	v := &Vehicle{
		ID:           uuid.New(),
		X:            x,
		Y:            y,
		Acceleration: DefaultAcceleration,
		Friction:     DefaultFriction,
		MaxSpeed:     DefaultMaxSpeed,
		Width:        width,
		Height:       height,
		ControlType:  ct,
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.MaxSpeed <= 0 || math.IsNaN(v.MaxSpeed) || math.IsInf(v.MaxSpeed, 0) {
		return nil, fmt.Errorf("vehicle max speed %v: %w", v.MaxSpeed, geometry.ErrDegenerate)
	}

	switch ct {
	case Dummy:
		v.Sensor = nil
		v.Brain = nil
		v.Controls.Forward = true
	default:
		if v.Sensor == nil {
			v.Sensor = sensor.Default()
		}
	}
	if ct == AI && v.Brain == nil {
		brain, err := network.New(rng, v.Sensor.RayCount+ExtraInputs, HiddenNeurons, 4)
		if err != nil {
			return nil, fmt.Errorf("vehicle brain: %w", err)
		}
		v.Brain = brain
	}
	if err := v.checkBrain(); err != nil {
		return nil, err
	}

	v.Polygon = v.shape()
	return v, nil
}

// Pose is where the vehicle is and which way it faces.
func (v *Vehicle) Pose() sensor.Pose {
	return sensor.Pose{X: v.X, Y: v.Y, Angle: v.Angle}
}

// Position is the vehicle's center.
func (v *Vehicle) Position() geometry.Point {
	return geometry.Point{X: v.X, Y: v.Y}
}

// Advance applies one tick of kinematics and recomputes the polygon.
// A damaged vehicle does not move.
func (v *Vehicle) Advance() {
	if v.Damaged {
		return
	}
	v.move()
	v.Mileage += v.Speed
	v.Polygon = v.shape()
}

// Assess marks the vehicle damaged when its polygon crosses a border or
// another vehicle's polygon. Damage is permanent.
func (v *Vehicle) Assess(borders []geometry.Segment, traffic []geometry.Polygon) bool {
	if v.Damaged {
		return true
	}
	for _, b := range borders {
		if v.Polygon.IntersectsSegment(b) {
			v.Damaged = true
			return true
		}
	}
	for _, p := range traffic {
		if v.Polygon.IntersectsPolygon(p) {
			v.Damaged = true
			return true
		}
	}
	return false
}

// Perceive updates the sensor from the current pose and, for AI vehicles,
// lets the brain choose the controls for the next tick.
func (v *Vehicle) Perceive(borders []geometry.Segment, traffic []geometry.Polygon, cues Cues) error {
	if v.Sensor == nil {
		return nil
	}
	v.Sensor.Update(v.Pose(), borders, traffic)
	v.StopSignal = v.Sensor.Touch(cues.Stops)
	v.LightSignal = v.Sensor.Touch(cues.Lights)

	if v.ControlType != AI || v.Brain == nil {
		return nil
	}
	out, err := v.Brain.FeedForward(v.Inputs())
	if err != nil {
		return fmt.Errorf("vehicle %s: %w", v.ID, err)
	}
	v.Controls = Controls{
		Forward: out[0] == 1,
		Left:    out[1] == 1,
		Right:   out[2] == 1,
		Reverse: out[3] == 1,
	}
	return nil
}

// Inputs is the brain's input vector: ray readings, speed ratio, stop, light.
func (v *Vehicle) Inputs() []float64 {
	in := v.Sensor.Inputs()
	return append(in, v.Speed/v.MaxSpeed, v.StopSignal, v.LightSignal)
}

// Update runs a full tick for a vehicle in isolation: move, check for damage
// against borders and the other vehicles, then sense and decide.
func (v *Vehicle) Update(borders []geometry.Segment, traffic []*Vehicle, cues Cues) error {
	v.Advance()
	others := Polygons(traffic, v)
	v.Assess(borders, others)
	return v.Perceive(borders, others, cues)
}

// Polygons collects the polygons of traffic, leaving out self.
func Polygons(traffic []*Vehicle, self *Vehicle) []geometry.Polygon {
	out := make([]geometry.Polygon, 0, len(traffic))
	for _, o := range traffic {
		if o != self {
			out = append(out, o.Polygon)
		}
	}
	return out
}

func (v *Vehicle) move() {
	if v.Controls.Forward {
		v.Speed += v.Acceleration
	}
	if v.Controls.Reverse {
		v.Speed -= v.Acceleration
	}

	if v.Speed != 0 {
		flip := 1.0
		if v.Speed < 0 {
			flip = -1
		}
		if v.Controls.Left {
			v.Angle += SteeringRate * flip
		}
		if v.Controls.Right {
			v.Angle -= SteeringRate * flip
		}
	}

	v.X -= math.Sin(v.Angle) * v.Speed
	v.Y -= math.Cos(v.Angle) * v.Speed

	v.Speed = math.Min(v.Speed, v.MaxSpeed)
	v.Speed = math.Max(v.Speed, -v.MaxSpeed/2)
	if v.Speed > 0 {
		v.Speed -= v.Friction
	}
	if v.Speed < 0 {
		v.Speed += v.Friction
	}
	if math.Abs(v.Speed) < v.Friction {
		v.Speed = 0
	}
}

// shape is the vehicle's rectangle rotated by Angle around its center.
func (v *Vehicle) shape() geometry.Polygon {
	radius := math.Hypot(v.Width, v.Height) / 2
	alpha := math.Atan2(v.Width, v.Height)
	corner := func(a float64) geometry.Point {
		return geometry.Point{X: v.X - math.Sin(a)*radius, Y: v.Y - math.Cos(a)*radius}
	}
	poly, _ := geometry.NewPolygon([]geometry.Point{
		corner(v.Angle - alpha),
		corner(v.Angle + alpha),
		corner(math.Pi + v.Angle - alpha),
		corner(math.Pi + v.Angle + alpha),
	})
	return poly
}

func (v *Vehicle) checkBrain() error {
	if v.Brain == nil || v.Sensor == nil {
		return nil
	}
	if want := v.Sensor.RayCount + ExtraInputs; v.Brain.InputSize() != want {
		return fmt.Errorf("brain takes %d inputs, sensor provides %d", v.Brain.InputSize(), want)
	}
	if v.Brain.OutputSize() != 4 {
		return fmt.Errorf("brain has %d outputs, controls need 4", v.Brain.OutputSize())
	}
	return nil
}
