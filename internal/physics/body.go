package physics

import (
	"math"
	"sort"

	"github.com/ByteArena/box2d"
)

// ShapeKind selects the geometry of a body's single fixture.
type ShapeKind string

const (
	ShapeCircle  ShapeKind = "circle"
	ShapeBox     ShapeKind = "box"
	ShapePolygon ShapeKind = "polygon"
)

// Material describes the surface of a fixture.
type Material struct {
	Density     float64 `json:"density"`
	Friction    float64 `json:"friction"`
	Restitution float64 `json:"restitution"`
}

// DefaultMaterial is used when a BodySpec carries no material.
var DefaultMaterial = Material{Density: 1.0, Friction: 0.5, Restitution: 0.3}

// SensorFunc is called once per begin-contact between a sensor body and any
// other body, after the step that produced the contact has finished.
type SensorFunc func(sensor, other *Body)

// BodySpec describes a body in pixel units. The zero value of Dynamic makes
// the body static.
type BodySpec struct {
	Shape ShapeKind

	// Geometry in pixels: Radius for circles, Width and Height for boxes,
	// Vertices (relative to the body position) for polygons.
	Radius   float64
	Width    float64
	Height   float64
	Vertices []Vector

	Dynamic  bool
	Material *Material

	// Position of the centroid in pixels, rotation in radians.
	X, Y  float64
	Angle float64

	Sensor SensorFunc
	Tag    string
}

// Pose is a body's position in pixels and its rotation in radians.
type Pose struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Angle float64 `json:"angle"`
}

// Body is a rigid body owned by a World.
type Body struct {
	b2     *box2d.B2Body
	world  *World
	tag    string
	sensor SensorFunc
}

func (b *Body) Tag() string {
	return b.tag
}

func (b *Body) IsSensor() bool {
	return b.sensor != nil
}

func (b *Body) IsDynamic() bool {
	return b.b2.GetType() == box2d.B2BodyType.B2_dynamicBody
}

// Position returns the body origin in meters.
func (b *Body) Position() Vector {
	return fromB2(b.b2.GetPosition())
}

// PixelPosition returns the body origin in pixels.
func (b *Body) PixelPosition() Vector {
	return b.Position().Times(b.world.drawScale)
}

func (b *Body) Angle() float64 {
	return b.b2.GetAngle()
}

func (b *Body) Pose() Pose {
	p := b.PixelPosition()
	return Pose{X: p.X, Y: p.Y, Angle: b.Angle()}
}

func (b *Body) LinearVelocity() Vector {
	return fromB2(b.b2.GetLinearVelocity())
}

func (b *Body) AngularVelocity() float64 {
	return b.b2.GetAngularVelocity()
}

func (b *Body) IsAwake() bool {
	return b.b2.IsAwake()
}

// fixtureShape converts the shape geometry into a box2d shape in meters.
func (w *World) fixtureShape(spec BodySpec) (box2d.B2ShapeInterface, error) {
	switch spec.Shape {
	case ShapeCircle:
		if spec.Radius <= 0 || math.IsNaN(spec.Radius) {
			return nil, invalidShape(spec.Shape, "radius must be positive, got %v", spec.Radius)
		}
		shape := box2d.MakeB2CircleShape()
		shape.M_radius = w.ToMeters(spec.Radius)
		return &shape, nil

	case ShapeBox:
		if spec.Width <= 0 || spec.Height <= 0 {
			return nil, invalidShape(spec.Shape, "width and height must be positive, got %vx%v", spec.Width, spec.Height)
		}
		hw, hh := w.ToMeters(spec.Width)/2, w.ToMeters(spec.Height)/2
		if !(4*hw*hh > box2d.B2_epsilon) {
			return nil, invalidShape(spec.Shape, "%vx%v is below the engine's minimum area at this draw scale", spec.Width, spec.Height)
		}
		shape := box2d.MakeB2PolygonShape()
		shape.SetAsBox(hw, hh)
		return &shape, nil

	case ShapePolygon:
		if len(spec.Vertices) < 3 {
			return nil, invalidShape(ShapePolygon, "need at least 3 vertices, got %d", len(spec.Vertices))
		}
		if len(spec.Vertices) > box2d.B2_maxPolygonVertices {
			return nil, invalidShape(ShapePolygon, "at most %d vertices supported, got %d", box2d.B2_maxPolygonVertices, len(spec.Vertices))
		}
		meters := make([]Vector, len(spec.Vertices))
		for i, v := range spec.Vertices {
			meters[i] = Vector{X: w.ToMeters(v.X), Y: w.ToMeters(v.Y)}
		}
		if err := validateVertices(meters); err != nil {
			return nil, err
		}
		verts := make([]box2d.B2Vec2, len(meters))
		for i, v := range meters {
			verts[i] = v.b2()
		}
		shape := box2d.MakeB2PolygonShape()
		shape.Set(verts, len(verts))
		return &shape, nil
	}

	return nil, invalidShape(spec.Shape, "unrecognized shape kind")
}

// validateVertices checks meter-space vertices the way B2PolygonShape.Set
// will treat them: points closer than half the linear slop are welded, the
// convex hull of what remains needs three corners, and its area must exceed
// the engine epsilon. Set asserts on any of these instead of returning.
func validateVertices(vs []Vector) error {
	weld := 0.5 * box2d.B2_linearSlop
	unique := make([]Vector, 0, len(vs))
	for _, v := range vs {
		dup := false
		for _, u := range unique {
			if v.Minus(u).Magnitude() < weld {
				dup = true
				break
			}
		}
		if !dup {
			unique = append(unique, v)
		}
	}
	if len(unique) < 3 {
		return invalidShape(ShapePolygon, "only %d distinct vertices at this draw scale", len(unique))
	}

	hull := convexHull(unique)
	if len(hull) < 3 {
		return invalidShape(ShapePolygon, "vertices are collinear")
	}
	area := 0.0
	for i := range hull {
		a, b := hull[i], hull[(i+1)%len(hull)]
		area += a.X*b.Y - b.X*a.Y
	}
	if math.Abs(area)/2 <= box2d.B2_epsilon {
		return invalidShape(ShapePolygon, "polygon area is below the engine minimum at this draw scale")
	}
	return nil
}

// convexHull returns the hull of ps in counter-clockwise order without
// collinear points (Andrew's monotone chain).
func convexHull(ps []Vector) []Vector {
	pts := append([]Vector(nil), ps...)
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].X != pts[j].X {
			return pts[i].X < pts[j].X
		}
		return pts[i].Y < pts[j].Y
	})
	cross := func(o, a, b Vector) float64 {
		return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
	}

	hull := make([]Vector, 0, 2*len(pts))
	for _, p := range pts {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(pts) - 2; i >= 0; i-- {
		p := pts[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull[:len(hull)-1]
}
