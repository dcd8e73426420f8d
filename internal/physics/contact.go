package physics

import "github.com/ByteArena/box2d"

type sensorContact struct {
	sensor *Body
	other  *Body
}

// contactQueue implements box2d.B2ContactListenerInterface. box2d reports
// contacts while the world is locked, so begin-contacts involving a sensor are
// queued and dispatched once the step returns.
type contactQueue struct {
	pending []sensorContact
}

func (q *contactQueue) BeginContact(contact box2d.B2ContactInterface) {
	a := bodyOf(contact.GetFixtureA())
	b := bodyOf(contact.GetFixtureB())
	if a == nil || b == nil {
		return
	}
	if a.sensor != nil {
		q.pending = append(q.pending, sensorContact{sensor: a, other: b})
	}
	if b.sensor != nil {
		q.pending = append(q.pending, sensorContact{sensor: b, other: a})
	}
}

func (q *contactQueue) EndContact(contact box2d.B2ContactInterface) {}

func (q *contactQueue) PreSolve(contact box2d.B2ContactInterface, oldManifold box2d.B2Manifold) {}

func (q *contactQueue) PostSolve(contact box2d.B2ContactInterface, impulse *box2d.B2ContactImpulse) {}

func (q *contactQueue) dispatch() {
	if len(q.pending) == 0 {
		return
	}
	batch := q.pending
	q.pending = nil
	for _, c := range batch {
		c.sensor.sensor(c.sensor, c.other)
	}
}

func bodyOf(f *box2d.B2Fixture) *Body {
	if f == nil {
		return nil
	}
	b, _ := f.GetBody().GetUserData().(*Body)
	return b
}
