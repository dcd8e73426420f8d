package game

import "github.com/beachball/backend/internal/physics"

// SimulationLoop advances a world by a fixed timestep and reports poses.
type SimulationLoop struct {
	dt         float64
	iterations int
	renderer   Renderer
}

func NewSimulationLoop(targetFPS, iterations int, renderer Renderer) *SimulationLoop {
	if renderer == nil {
		renderer = DiscardRenderer
	}
	return &SimulationLoop{
		dt:         1.0 / float64(targetFPS),
		iterations: iterations,
		renderer:   renderer,
	}
}

// Tick steps the world once and hands the tagged poses to the renderer.
// World.Step clears the forces applied since the previous tick.
func (l *SimulationLoop) Tick(world *physics.World, tick int) {
	world.Step(l.dt, l.iterations, l.iterations)

	frame := Frame{Tick: tick, Bodies: make(map[string]physics.Pose)}
	world.IterateBodies(func(tag string, pose physics.Pose) {
		frame.Bodies[tag] = pose
	})
	l.renderer.Render(frame)
}
