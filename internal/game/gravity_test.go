package game

import (
	"math"
	"testing"

	"github.com/beachball/backend/internal/physics"
)

func TestEstimateAveragesAndClears(t *testing.T) {
	var e GravityEstimator
	for i := 0; i < 3; i++ {
		e.AddSample(1, 2)
	}

	g, ok := e.Estimate(1)
	if !ok {
		t.Fatalf("expected an estimate")
	}
	if g.X != 1 || g.Y != -2 {
		t.Fatalf("gravity = %+v, want (1, -2)", g)
	}
	if e.Pending() != 0 {
		t.Fatalf("buffers not cleared, %d pending", e.Pending())
	}
}

func TestEstimateEmptyWindowIsSkipped(t *testing.T) {
	var e GravityEstimator
	if _, ok := e.Estimate(1); ok {
		t.Fatalf("empty window must not produce an estimate")
	}
}

func TestEstimateAppliesScale(t *testing.T) {
	var e GravityEstimator
	e.AddSample(2, -8)
	e.AddSample(4, -12)

	g, ok := e.Estimate(0.5)
	if !ok {
		t.Fatalf("expected an estimate")
	}
	if g.X != 1.5 || g.Y != 5 {
		t.Fatalf("gravity = %+v, want (1.5, 5)", g)
	}
}

func TestEstimateSkipsNaN(t *testing.T) {
	var e GravityEstimator
	e.AddSample(math.NaN(), 1)

	if _, ok := e.Estimate(1); ok {
		t.Fatalf("NaN window must be skipped")
	}
	if e.Pending() != 0 {
		t.Fatalf("NaN window must still be drained")
	}
}

func TestMapDeviceAxes(t *testing.T) {
	cases := []struct {
		orientation int
		wantX       float64
		wantY       float64
	}{
		{0, 3, 4},
		{180, 3, 4},
		{90, -4, 3},
		{-90, 4, -3},
	}
	for _, c := range cases {
		x, y := MapDeviceAxes(3, 4, c.orientation)
		if x != c.wantX || y != c.wantY {
			t.Errorf("orientation %d: got (%v, %v), want (%v, %v)", c.orientation, x, y, c.wantX, c.wantY)
		}
	}
}

func TestApplyNudgesAgainstGravity(t *testing.T) {
	w, err := physics.NewWorld(100, physics.Vector{})
	if err != nil {
		t.Fatal(err)
	}
	ball, err := w.AddBody(physics.BodySpec{Shape: physics.ShapeCircle, Radius: 10, Dynamic: true})
	if err != nil {
		t.Fatal(err)
	}

	var e GravityEstimator
	e.Apply(w, ball, physics.Vector{X: 0, Y: 9.8}, 1e-3)

	if g := w.Gravity(); g.Y != 9.8 {
		t.Fatalf("gravity not applied: %+v", g)
	}
	if v := ball.LinearVelocity(); v.Y >= 0 || math.Abs(v.X) > 1e-9 {
		t.Fatalf("nudge should point up against gravity, got %+v", v)
	}
}
