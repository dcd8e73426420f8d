package game

import (
	"testing"

	"github.com/beachball/backend/internal/physics"
)

func TestDefaultLayoutIsValid(t *testing.T) {
	l := DefaultLayout(1024, 768)
	if err := l.Validate(); err != nil {
		t.Fatalf("default layout invalid: %v", err)
	}
	if l.DrawScale != 1024 {
		t.Fatalf("draw scale = %v, want screen width", l.DrawScale)
	}
}

func TestLayoutValidate(t *testing.T) {
	mutate := []func(*Layout){
		func(l *Layout) { l.Width = 0 },
		func(l *Layout) { l.BallRadius = -1 },
		func(l *Layout) { l.DrawScale = -5 },
		func(l *Layout) { l.BeachCornerRadius = -1 },
		func(l *Layout) { l.Beach.Height = 0 },
		func(l *Layout) { l.BeachCornerRadius = l.Beach.Width },
	}
	for i, m := range mutate {
		l := DefaultLayout(800, 600)
		m(&l)
		if err := l.Validate(); err == nil {
			t.Errorf("case %d: expected error", i)
		}
	}
}

func TestLayoutDefaultsFillScaleAndWalls(t *testing.T) {
	l := DefaultLayout(640, 480)
	l.DrawScale = 0
	l.WallThickness = 0
	l = l.withDefaults()
	if l.DrawScale != 640 || l.WallThickness != defaultWallThickness {
		t.Fatalf("defaults not applied: %+v", l)
	}
}

func TestBuildCourseBodies(t *testing.T) {
	l := DefaultLayout(800, 600)
	w, err := physics.NewWorld(l.DrawScale, physics.Vector{})
	if err != nil {
		t.Fatal(err)
	}

	c, err := buildCourse(w, l, func(_, _ *physics.Body) {})
	if err != nil {
		t.Fatalf("buildCourse: %v", err)
	}
	// 4 walls, flat beach, 2 corners, ball
	if w.BodyCount() != 8 {
		t.Fatalf("bodies = %d, want 8", w.BodyCount())
	}
	if len(c.walls) != 4 {
		t.Fatalf("walls = %d, want 4", len(c.walls))
	}
	for _, wall := range c.walls {
		if !wall.IsSensor() || wall.IsDynamic() {
			t.Fatalf("walls must be static sensors")
		}
	}
	if !c.player.IsDynamic() || c.player.Tag() != PlayerTag {
		t.Fatalf("player must be a tagged dynamic body")
	}
	p := c.player.Pose()
	if p.X != 400 || p.Y != defaultBallTop {
		t.Fatalf("player start = %+v, want (400, %d)", p, defaultBallTop)
	}

	tags := 0
	w.IterateBodies(func(string, physics.Pose) { tags++ })
	if tags != 1 {
		t.Fatalf("only the ball is tagged, got %d", tags)
	}
}

func TestBuildCourseWithoutCorners(t *testing.T) {
	l := DefaultLayout(800, 600)
	l.BeachCornerRadius = 0
	w, err := physics.NewWorld(l.DrawScale, physics.Vector{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := buildCourse(w, l, nil); err != nil {
		t.Fatal(err)
	}
	if w.BodyCount() != 6 {
		t.Fatalf("bodies = %d, want 6", w.BodyCount())
	}
}
