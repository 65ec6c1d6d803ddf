// pkg/core/brain.go
package core

// LevelData is one fully connected layer.
// Weights[i][j] connects input i to output j.
type LevelData struct {
	Inputs  []float64   `json:"inputs"`
	Outputs []float64   `json:"outputs"`
	Biases  []float64   `json:"biases"`
	Weights [][]float64 `json:"weights"`
}

// BrainData is a persisted feed-forward network.
type BrainData struct {
	Levels []LevelData `json:"levels"`
}

// SensorData holds ray-casting parameters.
type SensorData struct {
	RayCount  int     `json:"rayCount"`
	RayLength float64 `json:"rayLength"`
	RaySpread float64 `json:"raySpread"`
	RayOffset float64 `json:"rayOffset"`
}

// CarData is everything needed to recreate a trained vehicle.
type CarData struct {
	Brain        BrainData  `json:"brain"`
	MaxSpeed     float64    `json:"maxSpeed"`
	Friction     float64    `json:"friction"`
	Acceleration float64    `json:"acceleration"`
	Sensor       SensorData `json:"sensor"`
}
