package network

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/roadsim/roadsim/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNetwork(t *testing.T, seed int64, counts ...int) *Network {
	t.Helper()
	n, err := New(rand.New(rand.NewSource(seed)), counts...)
	require.NoError(t, err)
	return n
}

func TestNew_Shapes(t *testing.T) {
	n := newTestNetwork(t, 1, 8, 6, 4)
	require.Len(t, n.Levels, 2)
	assert.Equal(t, 8, n.InputSize())
	assert.Equal(t, 4, n.OutputSize())
	assert.Len(t, n.Levels[0].Weights, 8)
	assert.Len(t, n.Levels[0].Weights[0], 6)
	assert.Len(t, n.Levels[1].Biases, 4)

	for _, l := range n.Levels {
		for _, b := range l.Biases {
			assert.GreaterOrEqual(t, b, -1.0)
			assert.LessOrEqual(t, b, 1.0)
		}
	}
}

func TestNew_Invalid(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	_, err := New(rng, 5)
	assert.Error(t, err)
	_, err = New(rng, 5, 0, 4)
	assert.Error(t, err)
}

func TestFeedForward_KnownWeights(t *testing.T) {
	n := &Network{Levels: []*Level{{
		Inputs:  make([]float64, 2),
		Outputs: make([]float64, 3),
		Biases:  []float64{0, -0.5, 0.1},
		Weights: [][]float64{
			{1, 0.2, -1},
			{-1, 0.2, 0.5},
		},
	}}}

	out, err := n.FeedForward([]float64{0.5, 0.5})
	require.NoError(t, err)
	// sums: 0, 0.2, -0.25 plus biases: 0 (>= 0 fires), -0.3, -0.15
	assert.Equal(t, []float64{1, 0, 0}, out)
}

func TestFeedForward_Deterministic(t *testing.T) {
	n := newTestNetwork(t, 42, 8, 6, 4)
	in := []float64{0.1, 0, 0.9, 0.3, 0, 1, 0, 0.5}

	first, err := n.FeedForward(in)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := n.FeedForward(in)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	for _, v := range first {
		assert.Contains(t, []float64{0, 1}, v)
	}
}

func TestFeedForward_WrongSize(t *testing.T) {
	n := newTestNetwork(t, 1, 3, 2)
	_, err := n.FeedForward([]float64{1, 2})
	assert.Error(t, err)
}

func TestMutate_ZeroIsIdentity(t *testing.T) {
	n := newTestNetwork(t, 5, 4, 3, 2)
	before := n.Data()

	require.NoError(t, n.Mutate(rand.New(rand.NewSource(9)), 0))
	if diff := cmp.Diff(before, n.Data()); diff != "" {
		t.Errorf("mutate(0) changed the network:\n%s", diff)
	}
}

func TestMutate_FullReplacesWithinRange(t *testing.T) {
	n := newTestNetwork(t, 5, 4, 3, 2)
	before := n.Clone()

	require.NoError(t, n.Mutate(rand.New(rand.NewSource(9)), 1))
	assert.NotEqual(t, before.Levels[0].Weights, n.Levels[0].Weights)
	for _, l := range n.Levels {
		require.NoError(t, checkRange(l.Biases))
		for _, row := range l.Weights {
			require.NoError(t, checkRange(row))
		}
	}
}

func TestMutate_InvalidAmount(t *testing.T) {
	n := newTestNetwork(t, 5, 2, 2)
	assert.Error(t, n.Mutate(rand.New(rand.NewSource(1)), 1.5))
	assert.Error(t, n.Mutate(rand.New(rand.NewSource(1)), -0.1))
}

func TestClone_Independent(t *testing.T) {
	n := newTestNetwork(t, 5, 2, 2)
	c := n.Clone()
	c.Levels[0].Weights[0][0] = 0.123456
	assert.NotEqual(t, 0.123456, n.Levels[0].Weights[0][0])
}

func TestData_RoundTrip(t *testing.T) {
	n := newTestNetwork(t, 11, 8, 6, 4)
	_, err := n.FeedForward(make([]float64, 8))
	require.NoError(t, err)

	data := n.Data()
	back, err := Load(data)
	require.NoError(t, err)
	if diff := cmp.Diff(data, back.Data()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_Validation(t *testing.T) {
	valid := func() core.BrainData { return newTestNetwork(t, 3, 3, 2, 1).Data() }

	tests := []struct {
		name   string
		mutate func(*core.BrainData)
		field  string
	}{
		{"no levels", func(d *core.BrainData) { d.Levels = nil }, "levels"},
		{"bias count", func(d *core.BrainData) { d.Levels[0].Biases = d.Levels[0].Biases[:1] }, "levels[0].biases"},
		{"weight rows", func(d *core.BrainData) { d.Levels[1].Weights = d.Levels[1].Weights[:1] }, "levels[1].weights"},
		{"weight columns", func(d *core.BrainData) { d.Levels[0].Weights[2] = []float64{0} }, "levels[0].weights[2]"},
		{"out of range", func(d *core.BrainData) { d.Levels[1].Biases[0] = 3 }, "levels[1].biases"},
		{"chain mismatch", func(d *core.BrainData) {
			d.Levels[1].Inputs = append(d.Levels[1].Inputs, 0)
			d.Levels[1].Weights = append(d.Levels[1].Weights, []float64{0})
		}, "levels[1].inputs"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := valid()
			tt.mutate(&d)
			_, err := Load(d)
			var verr *core.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}
