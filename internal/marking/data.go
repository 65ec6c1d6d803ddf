package marking

import (
	"fmt"

	"github.com/roadsim/roadsim/internal/geometry"
	"github.com/roadsim/roadsim/pkg/core"
)

// Data returns the persisted form.
func (m *Marking) Data() core.MarkingData {
	center, dir := m.Center.Data(), m.Direction.Data()
	d := core.MarkingData{
		Type:      m.Kind.String(),
		Center:    &center,
		Direction: &dir,
		Width:     m.Width,
		Height:    m.Height,
	}
	if m.Kind == Light {
		d.State = m.State.String()
	}
	return d
}

// Load dispatches on the type discriminator and rebuilds the marking.
func Load(d core.MarkingData) (*Marking, error) {
	kind, err := ParseKind(d.Type)
	if err != nil {
		return nil, core.Invalid("marking", "type", err.Error())
	}
	if d.Center == nil {
		return nil, core.Invalid("marking", "center", "missing")
	}
	if d.Direction == nil {
		return nil, core.Invalid("marking", "direction", "missing")
	}
	if d.Width <= 0 {
		return nil, core.Invalid("marking", "width", fmt.Sprintf("must be positive, got %v", d.Width))
	}
	if kind != Light && d.Height <= 0 {
		return nil, core.Invalid("marking", "height", fmt.Sprintf("must be positive, got %v", d.Height))
	}

	m, err := New(kind, geometry.PointFromData(*d.Center), geometry.PointFromData(*d.Direction), d.Width, d.Height)
	if err != nil {
		return nil, core.Invalid("marking", "", err.Error())
	}
	if kind == Light {
		if m.State, err = parseLightState(d.State); err != nil {
			return nil, core.Invalid("marking", "state", err.Error())
		}
	}
	return m, nil
}
