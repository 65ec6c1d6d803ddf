package vehicle

import (
	"fmt"

	"github.com/roadsim/roadsim/internal/network"
	"github.com/roadsim/roadsim/internal/sensor"
	"github.com/roadsim/roadsim/pkg/core"
)

// Data returns the trainable state of the vehicle.
func (v *Vehicle) Data() (core.CarData, error) {
	if v.Brain == nil || v.Sensor == nil {
		return core.CarData{}, fmt.Errorf("vehicle %s has no brain to save", v.ID)
	}
	return core.CarData{
		Brain:        v.Brain.Data(),
		MaxSpeed:     v.MaxSpeed,
		Friction:     v.Friction,
		Acceleration: v.Acceleration,
		Sensor:       v.Sensor.Data(),
	}, nil
}

// Load replaces the vehicle's brain, physics and sensor with saved ones.
// The vehicle is left untouched when the data is invalid.
func (v *Vehicle) Load(d core.CarData) error {
	if d.MaxSpeed <= 0 {
		return core.Invalid("car", "maxSpeed", fmt.Sprintf("must be positive, got %v", d.MaxSpeed))
	}
	if d.Friction < 0 {
		return core.Invalid("car", "friction", fmt.Sprintf("must not be negative, got %v", d.Friction))
	}
	s, err := sensor.Load(d.Sensor)
	if err != nil {
		return err
	}
	brain, err := network.Load(d.Brain)
	if err != nil {
		return err
	}

	next := *v
	next.Sensor = s
	next.Brain = brain
	if err := next.checkBrain(); err != nil {
		return core.Invalid("car", "brain", err.Error())
	}

	v.Sensor = s
	v.Brain = brain
	v.MaxSpeed = d.MaxSpeed
	v.Friction = d.Friction
	v.Acceleration = d.Acceleration
	return nil
}
