// Package network is the driving policy: a small fully connected
// feed-forward network with binary step activations.
package network

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Level is one fully connected layer. Weights[i][j] connects input i to
// output j. Biases and weights stay within [-1, 1].
type Level struct {
	Inputs  []float64
	Outputs []float64
	Biases  []float64
	Weights [][]float64
}

// NewLevel creates a level with uniformly random parameters.
func NewLevel(inputs, outputs int, rng *rand.Rand) *Level {
	l := &Level{
		Inputs:  make([]float64, inputs),
		Outputs: make([]float64, outputs),
		Biases:  make([]float64, outputs),
		Weights: make([][]float64, inputs),
	}
	for i := range l.Weights {
		l.Weights[i] = make([]float64, outputs)
		for j := range l.Weights[i] {
			l.Weights[i][j] = rng.Float64()*2 - 1
		}
	}
	for j := range l.Biases {
		l.Biases[j] = rng.Float64()*2 - 1
	}
	return l
}

func (l *Level) weights() *mat.Dense {
	m, n := len(l.Inputs), len(l.Outputs)
	flat := make([]float64, 0, m*n)
	for _, row := range l.Weights {
		flat = append(flat, row...)
	}
	return mat.NewDense(m, n, flat)
}

// feed stores in as the level's inputs and sets each output to 1 when the
// weighted sum plus bias is at least 0, else 0.
func (l *Level) feed(in []float64) []float64 {
	copy(l.Inputs, in)

	var sums mat.VecDense
	sums.MulVec(l.weights().T(), mat.NewVecDense(len(l.Inputs), l.Inputs))

	for j := range l.Outputs {
		if sums.AtVec(j)+l.Biases[j] >= 0 {
			l.Outputs[j] = 1
		} else {
			l.Outputs[j] = 0
		}
	}
	return l.Outputs
}

// Network chains levels; each level's outputs feed the next level's inputs.
type Network struct {
	Levels []*Level
}

// New creates a network with the given neuron counts per layer, input layer first.
func New(rng *rand.Rand, counts ...int) (*Network, error) {
	if len(counts) < 2 {
		return nil, fmt.Errorf("network needs at least 2 layers, got %d", len(counts))
	}
	for i, c := range counts {
		if c < 1 {
			return nil, fmt.Errorf("layer %d has %d neurons", i, c)
		}
	}
	n := &Network{Levels: make([]*Level, len(counts)-1)}
	for i := range n.Levels {
		n.Levels[i] = NewLevel(counts[i], counts[i+1], rng)
	}
	return n, nil
}

// InputSize is the length FeedForward expects.
func (n *Network) InputSize() int {
	return len(n.Levels[0].Inputs)
}

// OutputSize is the length FeedForward returns.
func (n *Network) OutputSize() int {
	return len(n.Levels[len(n.Levels)-1].Outputs)
}

// FeedForward runs inputs through every level. The returned slice is a copy.
func (n *Network) FeedForward(inputs []float64) ([]float64, error) {
	if len(inputs) != n.InputSize() {
		return nil, fmt.Errorf("network expects %d inputs, got %d", n.InputSize(), len(inputs))
	}
	out := inputs
	for _, l := range n.Levels {
		out = l.feed(out)
	}
	return append([]float64(nil), out...), nil
}

// Mutate moves every bias and weight toward a fresh random value in [-1, 1]
// by amount. 0 leaves the network unchanged, 1 replaces it entirely.
func (n *Network) Mutate(rng *rand.Rand, amount float64) error {
	if amount < 0 || amount > 1 {
		return fmt.Errorf("mutation amount %v outside [0, 1]", amount)
	}
	for _, l := range n.Levels {
		for j := range l.Biases {
			l.Biases[j] = lerp(l.Biases[j], rng.Float64()*2-1, amount)
		}
		for i := range l.Weights {
			for j := range l.Weights[i] {
				l.Weights[i][j] = lerp(l.Weights[i][j], rng.Float64()*2-1, amount)
			}
		}
	}
	return nil
}

// Clone deep-copies the network.
func (n *Network) Clone() *Network {
	c := &Network{Levels: make([]*Level, len(n.Levels))}
	for i, l := range n.Levels {
		cl := &Level{
			Inputs:  append([]float64(nil), l.Inputs...),
			Outputs: append([]float64(nil), l.Outputs...),
			Biases:  append([]float64(nil), l.Biases...),
			Weights: make([][]float64, len(l.Weights)),
		}
		for r, row := range l.Weights {
			cl.Weights[r] = append([]float64(nil), row...)
		}
		c.Levels[i] = cl
	}
	return c
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
