package game

import (
	"fmt"

	"github.com/beachball/backend/internal/physics"
)

// PlayerTag identifies the ball in frames and sensor contacts.
const PlayerTag = "beachball"

// Rect is an axis-aligned rectangle in pixels.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Layout is the screen geometry a world is built from, in pixels.
type Layout struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`

	BallRadius float64        `json:"ball_radius"`
	BallStart  physics.Vector `json:"ball_start"`

	// Beach is the dune's bounding box. Its two ends are rounded with
	// BeachCornerRadius; the part between them is flat.
	Beach             Rect    `json:"beach"`
	BeachCornerRadius float64 `json:"beach_corner_radius"`

	DrawScale     float64 `json:"draw_scale,omitempty"`     // pixels per meter; defaults to Width
	WallThickness float64 `json:"wall_thickness,omitempty"` // defaults to 10
}

const (
	defaultWallThickness = 10
	defaultBeachHeight   = 50
	defaultBallRadius    = 25
	defaultBallTop       = 100
)

// DefaultLayout centres a dune straddling the bottom edge of a width x height
// screen and places the ball above it.
func DefaultLayout(width, height float64) Layout {
	beachW := width * 0.6
	return Layout{
		Width:      width,
		Height:     height,
		BallRadius: defaultBallRadius,
		BallStart:  physics.Vector{X: width / 2, Y: defaultBallTop},
		Beach: Rect{
			Left:   width/2 - beachW/2,
			Top:    height - defaultBeachHeight,
			Width:  beachW,
			Height: 2 * defaultBeachHeight,
		},
		BeachCornerRadius: defaultBeachHeight,
		DrawScale:         width,
		WallThickness:     defaultWallThickness,
	}
}

// IsZero reports whether no geometry was given at all.
func (l Layout) IsZero() bool {
	return l.Width == 0 && l.Height == 0
}

func (l Layout) withDefaults() Layout {
	if l.DrawScale == 0 {
		l.DrawScale = l.Width
	}
	if l.WallThickness == 0 {
		l.WallThickness = defaultWallThickness
	}
	return l
}

func (l Layout) Validate() error {
	if l.Width <= 0 || l.Height <= 0 {
		return fmt.Errorf("layout size must be positive, got %vx%v", l.Width, l.Height)
	}
	if l.BallRadius <= 0 {
		return fmt.Errorf("ball radius must be positive, got %v", l.BallRadius)
	}
	if l.DrawScale <= 0 {
		return fmt.Errorf("draw scale must be positive, got %v", l.DrawScale)
	}
	if l.BeachCornerRadius < 0 {
		return fmt.Errorf("beach corner radius must not be negative, got %v", l.BeachCornerRadius)
	}
	if l.Beach.Width <= 0 || l.Beach.Height <= 0 {
		return fmt.Errorf("beach size must be positive, got %vx%v", l.Beach.Width, l.Beach.Height)
	}
	if l.Beach.Width < 2*l.BeachCornerRadius {
		return fmt.Errorf("beach width %v is narrower than its two corners (%v)", l.Beach.Width, 2*l.BeachCornerRadius)
	}
	return nil
}

// course is what buildCourse returns: the ball and the sensor walls.
type course struct {
	player *physics.Body
	walls  []*physics.Body
}

// buildCourse adds the boundary sensors, the dune and the ball to world.
// The walls sit well outside the screen so a ball that merely touches an
// edge is not lost.
func buildCourse(world *physics.World, l Layout, onWall physics.SensorFunc) (*course, error) {
	w, h := l.Width, l.Height
	ballH := 2 * l.BallRadius
	thick := l.WallThickness

	// top, right, bottom, left
	walls := []physics.BodySpec{
		{Shape: physics.ShapeBox, X: w / 2, Y: -2 * ballH, Width: 4 * w, Height: thick},
		{Shape: physics.ShapeBox, X: 2 * w, Y: h / 2, Width: thick, Height: 4 * h},
		{Shape: physics.ShapeBox, X: w / 2, Y: h + ballH + thick, Width: 4 * w, Height: thick},
		{Shape: physics.ShapeBox, X: -w, Y: h / 2, Width: thick, Height: 4 * h},
	}

	c := &course{}
	for _, spec := range walls {
		spec.Sensor = onWall
		b, err := world.AddBody(spec)
		if err != nil {
			return nil, fmt.Errorf("add wall: %w", err)
		}
		c.walls = append(c.walls, b)
	}

	beach := l.Beach
	corner := l.BeachCornerRadius
	midY := beach.Top + beach.Height/2

	if flat := beach.Width - 2*corner; flat > 0 {
		_, err := world.AddBody(physics.BodySpec{
			Shape:  physics.ShapeBox,
			X:      beach.Left + beach.Width/2,
			Y:      midY,
			Width:  flat,
			Height: beach.Height,
		})
		if err != nil {
			return nil, fmt.Errorf("add beach: %w", err)
		}
	}
	if corner > 0 {
		for _, x := range []float64{beach.Left + corner, beach.Left + beach.Width - corner} {
			_, err := world.AddBody(physics.BodySpec{Shape: physics.ShapeCircle, X: x, Y: midY, Radius: corner})
			if err != nil {
				return nil, fmt.Errorf("add beach corner: %w", err)
			}
		}
	}

	player, err := world.AddBody(physics.BodySpec{
		Shape:   physics.ShapeCircle,
		Radius:  l.BallRadius,
		X:       l.BallStart.X,
		Y:       l.BallStart.Y,
		Dynamic: true,
		Tag:     PlayerTag,
	})
	if err != nil {
		return nil, fmt.Errorf("add ball: %w", err)
	}
	c.player = player
	return c, nil
}
