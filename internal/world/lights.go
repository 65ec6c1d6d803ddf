package world

import (
	"math"
	"time"

	"github.com/roadsim/roadsim/internal/geometry"
	"github.com/roadsim/roadsim/internal/marking"
)

// Phase lengths in whole simulated seconds.
const (
	GreenDuration  = 2
	YellowDuration = 1
)

// LightController cycles the lights around one intersection. Each light in
// turn is green then yellow while all others are red.
type LightController struct {
	Center geometry.Point
	Lights []*marking.Marking
}

// Update sets every light's phase for the given elapsed simulated time.
func (c *LightController) Update(elapsed time.Duration) {
	phase := GreenDuration + YellowDuration
	period := len(c.Lights) * phase
	if period == 0 {
		return
	}
	sec := int(elapsed / time.Second)
	t := sec % period
	active := t / phase
	state := marking.Yellow
	if t%phase < GreenDuration {
		state = marking.Green
	}
	for i, l := range c.Lights {
		if i == active {
			l.State = state
		} else {
			l.State = marking.Red
		}
	}
}

// UpdateLights advances every controller to elapsed.
func (w *World) UpdateLights(elapsed time.Duration) {
	for _, c := range w.lights {
		c.Update(elapsed)
	}
}

// LightControllers returns the controllers in creation order.
func (w *World) LightControllers() []*LightController {
	return w.lights
}

// rebuildLights groups each light under its nearest intersection. A light
// with no intersection in the graph gets a controller of its own.
func (w *World) rebuildLights() {
	w.lights = nil
	intersections := w.Graph.Intersections()

	for _, l := range w.MarkingsOf(marking.Light) {
		center := l.Center
		best := math.Inf(1)
		for _, n := range intersections {
			if d := geometry.Distance(n.Point, l.Center); d < best {
				best, center = d, n.Point
			}
		}

		var ctrl *LightController
		for _, c := range w.lights {
			if c.Center.Equals(center) {
				ctrl = c
				break
			}
		}
		if ctrl == nil {
			ctrl = &LightController{Center: center}
			w.lights = append(w.lights, ctrl)
		}
		ctrl.Lights = append(ctrl.Lights, l)
	}
}
