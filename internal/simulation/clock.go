package simulation

import "time"

// TicksPerSecond converts ticks to simulated time.
const TicksPerSecond = 60

// Clock counts simulation ticks.
type Clock struct {
	Tick uint64
}

// Elapsed is the simulated time since tick 0.
func (c Clock) Elapsed() time.Duration {
	return time.Duration(c.Tick) * time.Second / TicksPerSecond
}

// Seconds is the number of whole simulated seconds elapsed.
func (c Clock) Seconds() int {
	return int(c.Tick / TicksPerSecond)
}
