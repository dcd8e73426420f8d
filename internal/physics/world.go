package physics

import (
	"fmt"
	"math"

	"github.com/ByteArena/box2d"
)

// World wraps a box2d world and converts between pixels and meters.
// It is not safe for concurrent use; the owning session serialises access.
type World struct {
	b2        *box2d.B2World
	drawScale float64 // pixels per meter
	bodies    []*Body
	contacts  *contactQueue
}

// NewWorld creates a world whose inputs in pixels are divided by drawScale.
func NewWorld(drawScale float64, gravity Vector) (*World, error) {
	if drawScale <= 0 || math.IsNaN(drawScale) || math.IsInf(drawScale, 0) {
		return nil, fmt.Errorf("draw scale must be positive, got %v", drawScale)
	}

	b2 := box2d.MakeB2World(gravity.b2())
	w := &World{
		b2:        &b2,
		drawScale: drawScale,
		contacts:  &contactQueue{},
	}
	w.b2.SetContactListener(w.contacts)
	return w, nil
}

func (w *World) DrawScale() float64 {
	return w.drawScale
}

func (w *World) ToMeters(px float64) float64 {
	return px / w.drawScale
}

func (w *World) ToPixels(m float64) float64 {
	return m * w.drawScale
}

func (w *World) BodyCount() int {
	return len(w.bodies)
}

// AddBody creates a body from a pixel-space spec.
func (w *World) AddBody(spec BodySpec) (*Body, error) {
	shape, err := w.fixtureShape(spec)
	if err != nil {
		return nil, err
	}

	mat := DefaultMaterial
	if spec.Material != nil {
		mat = *spec.Material
	}

	bd := box2d.MakeB2BodyDef()
	bd.Type = box2d.B2BodyType.B2_staticBody
	if spec.Dynamic {
		bd.Type = box2d.B2BodyType.B2_dynamicBody
	}
	bd.Position.Set(w.ToMeters(spec.X), w.ToMeters(spec.Y))
	bd.Angle = spec.Angle

	fd := box2d.MakeB2FixtureDef()
	fd.Shape = shape
	fd.Density = mat.Density
	fd.Friction = mat.Friction
	fd.Restitution = mat.Restitution
	fd.IsSensor = spec.Sensor != nil

	body := &Body{
		world:  w,
		tag:    spec.Tag,
		sensor: spec.Sensor,
	}
	body.b2 = w.b2.CreateBody(&bd)
	body.b2.CreateFixtureFromDef(&fd)
	body.b2.SetUserData(body)

	w.bodies = append(w.bodies, body)
	return body, nil
}

func (w *World) Gravity() Vector {
	return fromB2(w.b2.GetGravity())
}

func (w *World) SetGravity(g Vector) {
	w.b2.SetGravity(g.b2())
}

// PatchGravity updates only the axes that are given.
func (w *World) PatchGravity(x, y *float64) {
	g := w.Gravity()
	if x != nil {
		g.X = *x
	}
	if y != nil {
		g.Y = *y
	}
	w.SetGravity(g)
}

// ApplyImpulse applies an instantaneous impulse (N*s) of the given magnitude
// along angle at the body's center of mass.
func (w *World) ApplyImpulse(b *Body, angle, magnitude float64) {
	if b == nil || magnitude == 0 {
		return
	}
	b.b2.ApplyLinearImpulse(FromAngle(angle, magnitude).b2(), b.b2.GetWorldCenter(), true)
}

// ResetBody moves a body to a pixel position and rotation and removes all
// of its motion.
func (w *World) ResetBody(b *Body, x, y, angle float64) {
	b.b2.SetTransform(box2d.MakeB2Vec2(w.ToMeters(x), w.ToMeters(y)), angle)
	b.b2.SetLinearVelocity(box2d.MakeB2Vec2(0, 0))
	b.b2.SetAngularVelocity(0)
	b.b2.SetAwake(true)
}

// Step advances the simulation by dt seconds and clears accumulated forces,
// so callers never clear them. Sensor callbacks for contacts that began
// during the step run after the engine has finished and may touch the world.
func (w *World) Step(dt float64, velocityIterations, positionIterations int) {
	w.b2.Step(dt, velocityIterations, positionIterations)
	w.b2.ClearForces()
	w.contacts.dispatch()
}

// IterateBodies calls visit for every tagged body with its pixel pose.
func (w *World) IterateBodies(visit func(tag string, pose Pose)) {
	for _, b := range w.bodies {
		if b.tag == "" {
			continue
		}
		visit(b.tag, b.Pose())
	}
}
