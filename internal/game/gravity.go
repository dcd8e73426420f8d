package game

import (
	"math"

	"github.com/beachball/backend/internal/physics"
)

// MapDeviceAxes rotates a raw accelerometer reading into portrait axes for
// the given screen orientation in degrees.
func MapDeviceAxes(x, y float64, orientation int) (float64, float64) {
	switch orientation {
	case 90:
		return -y, x
	case -90:
		return y, -x
	}
	return x, y
}

// GravityEstimator turns a burst of device-motion samples into one gravity
// vector per estimation tick.
type GravityEstimator struct {
	xs []float64
	ys []float64
}

func (e *GravityEstimator) AddSample(x, y float64) {
	e.xs = append(e.xs, x)
	e.ys = append(e.ys, y)
}

// Pending reports how many samples wait for the next tick.
func (e *GravityEstimator) Pending() int {
	return min(len(e.xs), len(e.ys))
}

func (e *GravityEstimator) Clear() {
	e.xs = e.xs[:0]
	e.ys = e.ys[:0]
}

// Estimate averages and drains the buffers. The mean is multiplied by scale
// and y is inverted so that device "down" points down the screen. It reports
// false, leaving the buffers untouched, if either buffer is empty. A window
// whose mean is not finite is drained and skipped.
func (e *GravityEstimator) Estimate(scale float64) (physics.Vector, bool) {
	if len(e.xs) == 0 || len(e.ys) == 0 {
		return physics.Vector{}, false
	}

	mx, my := mean(e.xs), mean(e.ys)
	e.Clear()

	if math.IsNaN(mx) || math.IsNaN(my) || math.IsInf(mx, 0) || math.IsInf(my, 0) {
		return physics.Vector{}, false
	}
	return physics.Vector{X: mx * scale, Y: -my * scale}, true
}

// Apply sets g as the world gravity and nudges the body against it so a
// resting ball wakes up and feels the change.
func (e *GravityEstimator) Apply(world *physics.World, body *physics.Body, g physics.Vector, nudge float64) {
	world.SetGravity(g)
	world.ApplyImpulse(body, g.Angle()+math.Pi, nudge)
}

func mean(vs []float64) float64 {
	sum := 0.0
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}
