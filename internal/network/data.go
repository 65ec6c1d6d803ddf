package network

import (
	"fmt"
	"math"

	"github.com/roadsim/roadsim/pkg/core"
)

// Data returns the persisted form.
func (n *Network) Data() core.BrainData {
	c := n.Clone()
	d := core.BrainData{Levels: make([]core.LevelData, len(c.Levels))}
	for i, l := range c.Levels {
		d.Levels[i] = core.LevelData{
			Inputs:  l.Inputs,
			Outputs: l.Outputs,
			Biases:  l.Biases,
			Weights: l.Weights,
		}
	}
	return d
}

// Load validates the layer shapes and parameter ranges and rebuilds the network.
func Load(d core.BrainData) (*Network, error) {
	if len(d.Levels) == 0 {
		return nil, core.Invalid("brain", "levels", "empty")
	}
	n := &Network{Levels: make([]*Level, len(d.Levels))}
	for i, ld := range d.Levels {
		field := func(name string) string { return fmt.Sprintf("levels[%d].%s", i, name) }
		m, k := len(ld.Inputs), len(ld.Outputs)

		if m == 0 {
			return nil, core.Invalid("brain", field("inputs"), "empty")
		}
		if k == 0 {
			return nil, core.Invalid("brain", field("outputs"), "empty")
		}
		if i > 0 && m != len(d.Levels[i-1].Outputs) {
			return nil, core.Invalid("brain", field("inputs"),
				fmt.Sprintf("has %d entries, previous level outputs %d", m, len(d.Levels[i-1].Outputs)))
		}
		if len(ld.Biases) != k {
			return nil, core.Invalid("brain", field("biases"), fmt.Sprintf("want %d entries, got %d", k, len(ld.Biases)))
		}
		if len(ld.Weights) != m {
			return nil, core.Invalid("brain", field("weights"), fmt.Sprintf("want %d rows, got %d", m, len(ld.Weights)))
		}
		for r, row := range ld.Weights {
			if len(row) != k {
				return nil, core.Invalid("brain", field(fmt.Sprintf("weights[%d]", r)), fmt.Sprintf("want %d columns, got %d", k, len(row)))
			}
			if err := checkRange(row); err != nil {
				return nil, core.Invalid("brain", field(fmt.Sprintf("weights[%d]", r)), err.Error())
			}
		}
		if err := checkRange(ld.Biases); err != nil {
			return nil, core.Invalid("brain", field("biases"), err.Error())
		}

		l := &Level{
			Inputs:  append([]float64(nil), ld.Inputs...),
			Outputs: append([]float64(nil), ld.Outputs...),
			Biases:  append([]float64(nil), ld.Biases...),
			Weights: make([][]float64, m),
		}
		for r, row := range ld.Weights {
			l.Weights[r] = append([]float64(nil), row...)
		}
		n.Levels[i] = l
	}
	return n, nil
}

func checkRange(values []float64) error {
	for i, v := range values {
		if math.IsNaN(v) || v < -1 || v > 1 {
			return fmt.Errorf("value %d is %v, outside [-1, 1]", i, v)
		}
	}
	return nil
}
