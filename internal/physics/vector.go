package physics

import (
	"math"

	"github.com/ByteArena/box2d"
)

// Vector is a 2D vector. Units depend on context: meters inside the
// simulation, pixels at the rendering boundary.
type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func NewVector(x, y float64) Vector {
	return Vector{X: x, Y: y}
}

// FromAngle returns a vector of the given length pointing along angle (radians).
func FromAngle(angle, length float64) Vector {
	return Vector{X: math.Cos(angle) * length, Y: math.Sin(angle) * length}
}

func (v Vector) Plus(o Vector) Vector {
	return Vector{X: v.X + o.X, Y: v.Y + o.Y}
}

func (v Vector) Minus(o Vector) Vector {
	return Vector{X: v.X - o.X, Y: v.Y - o.Y}
}

func (v Vector) Times(s float64) Vector {
	return Vector{X: v.X * s, Y: v.Y * s}
}

func (v Vector) Dot(o Vector) float64 {
	return v.X*o.X + v.Y*o.Y
}

func (v Vector) Magnitude() float64 {
	return math.Hypot(v.X, v.Y)
}

// Angle returns the direction of v in radians, measured from +x.
func (v Vector) Angle() float64 {
	return math.Atan2(v.Y, v.X)
}

func (v Vector) Normalize() Vector {
	m := v.Magnitude()
	if m == 0 {
		return Vector{}
	}
	return v.Times(1.0 / m)
}

func (v Vector) Invert() Vector {
	return Vector{X: -v.X, Y: -v.Y}
}

func (v Vector) IsZero() bool {
	return v.X == 0 && v.Y == 0
}

func (v Vector) b2() box2d.B2Vec2 {
	return box2d.MakeB2Vec2(v.X, v.Y)
}

func fromB2(v box2d.B2Vec2) Vector {
	return Vector{X: v.X, Y: v.Y}
}
