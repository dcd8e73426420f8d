package game

import (
	"context"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/beachball/backend/internal/physics"
)

type recorder struct {
	events []Event
	frames []Frame
}

func (r *recorder) Notify(e Event) { r.events = append(r.events, e) }
func (r *recorder) Render(f Frame) { r.frames = append(r.frames, f) }

func (r *recorder) count(t EventType) int {
	n := 0
	for _, e := range r.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

func (r *recorder) last() Event {
	if len(r.events) == 0 {
		return Event{}
	}
	return r.events[len(r.events)-1]
}

func quietSettings() Settings {
	s := DefaultSettings()
	s.StartNudge = 0
	return s
}

func newTestSession(t *testing.T, settings Settings, opts ...SessionOption) (*Session, *recorder) {
	t.Helper()
	rec := &recorder{}
	opts = append([]SessionOption{WithRand(rand.New(rand.NewSource(1)))}, opts...)
	s, err := NewSession("test", settings, rec, rec, opts...)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	t.Cleanup(func() { s.Unload() })
	return s, rec
}

var bothInputs = Capabilities{Motion: true, Keyboard: true}

func mustLoad(t *testing.T, s *Session, opts LoadOptions) {
	t.Helper()
	ok, err := s.Load(opts)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !ok {
		t.Fatalf("Load reported no transition from %s", s.State())
	}
}

func assertPose(t *testing.T, got, want physics.Pose) {
	t.Helper()
	if math.Abs(got.X-want.X) > 1e-9 || math.Abs(got.Y-want.Y) > 1e-9 || math.Abs(got.Angle-want.Angle) > 1e-9 {
		t.Fatalf("pose = %+v, want %+v", got, want)
	}
}

func TestNewSessionRejectsInvalidSettings(t *testing.T) {
	s := DefaultSettings()
	s.TargetFPS = 0
	if _, err := NewSession("x", s, nil, nil); err == nil {
		t.Fatalf("expected error for zero fps")
	}
	s = DefaultSettings()
	s.NudgeMagnitude = math.NaN()
	if _, err := NewSession("x", s, nil, nil); err == nil {
		t.Fatalf("expected error for NaN nudge")
	}
}

func TestLoadWithoutInputEmitsNotLoaded(t *testing.T) {
	s, rec := newTestSession(t, quietSettings())

	ok, err := s.Load(LoadOptions{})
	if err != nil || ok {
		t.Fatalf("Load = (%v, %v), want (false, nil)", ok, err)
	}
	if s.State() != StateUnloaded || s.World() != nil {
		t.Fatalf("session must stay unloaded without a world")
	}
	if rec.count(EventNotLoaded) != 1 || rec.last().Reason == "" {
		t.Fatalf("expected one notLoaded event with a reason, got %+v", rec.events)
	}
}

func TestKeyboardOnlyLoadCarriesHint(t *testing.T) {
	s, rec := newTestSession(t, quietSettings())
	mustLoad(t, s, LoadOptions{Capabilities: Capabilities{Keyboard: true}})

	e := rec.last()
	if e.Type != EventLoaded || e.Reason != reasonKeyboardOnly {
		t.Fatalf("expected loaded with keyboard hint, got %+v", e)
	}
	if e.DrawScale != defaultLayoutWidth {
		t.Fatalf("draw scale = %v, want %v", e.DrawScale, defaultLayoutWidth)
	}
}

func TestLoadRejectsInvalidLayout(t *testing.T) {
	s, _ := newTestSession(t, quietSettings())
	layout := DefaultLayout(800, 600)
	layout.BallRadius = 0

	if _, err := s.Load(LoadOptions{Layout: layout, Capabilities: bothInputs}); err == nil {
		t.Fatalf("expected invalid layout error")
	}
	if s.State() != StateUnloaded {
		t.Fatalf("state = %s, want unloaded", s.State())
	}
}

func TestLoadOnlyFromUnloaded(t *testing.T) {
	s, _ := newTestSession(t, quietSettings())
	mustLoad(t, s, LoadOptions{Capabilities: bothInputs})
	world := s.World()

	ok, err := s.Load(LoadOptions{Capabilities: bothInputs})
	if ok || err != nil {
		t.Fatalf("second Load = (%v, %v), want no-op", ok, err)
	}
	if s.World() != world {
		t.Fatalf("second Load replaced the world")
	}
}

func TestResetRestoresExactPose(t *testing.T) {
	s, rec := newTestSession(t, quietSettings())
	mustLoad(t, s, LoadOptions{Capabilities: bothInputs})
	start := s.Player().Pose()

	s.Start()
	for i := 0; i < 20; i++ {
		s.stepSimulation()
	}
	if s.Player().Pose().Y <= start.Y {
		t.Fatalf("expected the ball to fall under default gravity")
	}

	if !s.Reset("again") {
		t.Fatalf("Reset from running must transition")
	}
	assertPose(t, s.Player().Pose(), start)
	if !s.Player().LinearVelocity().IsZero() || s.Player().AngularVelocity() != 0 {
		t.Fatalf("velocities not cleared")
	}
	if s.State() != StateLoaded || s.Elapsed() != 0 {
		t.Fatalf("state = %s elapsed = %v, want loaded and 0", s.State(), s.Elapsed())
	}
	if s.sim.Running() || s.grav.Running() {
		t.Fatalf("repeaters must stop on reset")
	}
	if e := rec.last(); e.Type != EventReset || e.Reason != "again" {
		t.Fatalf("expected reset event, got %+v", e)
	}
}

func TestDoubleStartKeepsOneLoop(t *testing.T) {
	s, rec := newTestSession(t, quietSettings())
	mustLoad(t, s, LoadOptions{Capabilities: bothInputs})

	if !s.Start() {
		t.Fatalf("first Start must transition")
	}
	sim, grav := s.sim, s.grav
	if s.Start() {
		t.Fatalf("second Start must be a no-op")
	}
	if s.sim != sim || s.grav != grav {
		t.Fatalf("repeaters replaced on second start")
	}
	if s.sim.Start() || s.grav.Start() {
		t.Fatalf("repeaters should already be running")
	}
	if rec.count(EventStarted) != 1 {
		t.Fatalf("expected one started event, got %d", rec.count(EventStarted))
	}
}

func TestPauseUnpauseReusesRepeaters(t *testing.T) {
	s, rec := newTestSession(t, quietSettings())
	mustLoad(t, s, LoadOptions{Capabilities: bothInputs})
	s.Start()
	sim, grav := s.sim, s.grav

	if !s.Pause("menu") {
		t.Fatalf("Pause from running must transition")
	}
	if s.sim.C() != nil || s.grav.C() != nil {
		t.Fatalf("paused session must not tick")
	}
	if s.Pause("again") {
		t.Fatalf("Pause from paused must be a no-op")
	}

	if !s.Unpause() {
		t.Fatalf("Unpause from paused must transition")
	}
	if s.sim != sim || s.grav != grav || !sim.Running() || !grav.Running() {
		t.Fatalf("unpause must restart the same repeaters")
	}
	if rec.count(EventUnpaused) != 1 || rec.count(EventStarted) != 1 {
		t.Fatalf("unexpected events %+v", rec.events)
	}
}

func TestZeroGravityPlayerStaysPut(t *testing.T) {
	settings := quietSettings()
	settings.DefaultGravity = physics.Vector{}
	s, rec := newTestSession(t, settings)
	mustLoad(t, s, LoadOptions{Capabilities: bothInputs})
	start := s.Player().Pose()

	s.Start()
	for i := 0; i < 150; i++ {
		s.stepSimulation()
	}

	assertPose(t, s.Player().Pose(), start)
	if len(rec.frames) != 150 {
		t.Fatalf("frames = %d, want 150", len(rec.frames))
	}
	last := rec.frames[149]
	if last.Tick != 150 {
		t.Fatalf("last tick = %d, want 150", last.Tick)
	}
	assertPose(t, last.Bodies[PlayerTag], start)
	if math.Abs(s.Elapsed()-5) > 1e-9 {
		t.Fatalf("elapsed = %v, want 5s at 30fps", s.Elapsed())
	}
}

func TestStepsOnlyWhileRunning(t *testing.T) {
	s, rec := newTestSession(t, quietSettings())
	mustLoad(t, s, LoadOptions{Capabilities: bothInputs})

	s.stepSimulation()
	s.Start()
	s.Pause("")
	s.stepSimulation()
	if len(rec.frames) != 0 {
		t.Fatalf("no frames expected outside running, got %d", len(rec.frames))
	}
}

func TestWallHitEndsRoundOnce(t *testing.T) {
	layout := DefaultLayout(800, 600)
	// Left of the dune and just above the bottom sensor.
	layout.BallStart = physics.Vector{X: 50, Y: 560}

	var rounds []RoundResult
	s, rec := newTestSession(t, quietSettings(), WithRoundObserver(func(r RoundResult) {
		rounds = append(rounds, r)
	}))
	mustLoad(t, s, LoadOptions{Layout: layout, Capabilities: bothInputs})
	s.Start()

	for i := 0; i < 300 && s.State() == StateRunning; i++ {
		s.stepSimulation()
	}
	if s.State() != StateLost {
		t.Fatalf("state = %s, want lost", s.State())
	}
	if s.WallHit(s.Player()) {
		t.Fatalf("a second wall hit must be a no-op")
	}
	for i := 0; i < 10; i++ {
		s.stepSimulation()
	}

	if rec.count(EventWallHit) != 1 || len(rounds) != 1 {
		t.Fatalf("wallHit events = %d rounds = %d, want 1 and 1", rec.count(EventWallHit), len(rounds))
	}
	var hit Event
	for _, e := range rec.events {
		if e.Type == EventWallHit {
			hit = e
		}
	}
	if hit.Position == nil || hit.Position.Y <= 600 || hit.DrawScale != 800 {
		t.Fatalf("unexpected wallHit payload %+v", hit)
	}
	if hit.Elapsed <= 0 || hit.Elapsed != rounds[0].Elapsed {
		t.Fatalf("elapsed = %v, round = %v", hit.Elapsed, rounds[0].Elapsed)
	}
	if s.sim.Running() || s.grav.Running() {
		t.Fatalf("repeaters must stop when the round is lost")
	}

	if s.Start() {
		t.Fatalf("Start from lost must be a no-op")
	}
	if !s.Reset("retry") || s.State() != StateLoaded {
		t.Fatalf("Reset from lost must return to loaded")
	}
}

func TestWallHitIgnoresOtherBodies(t *testing.T) {
	s, _ := newTestSession(t, quietSettings())
	mustLoad(t, s, LoadOptions{Capabilities: bothInputs})
	s.Start()

	other, err := s.World().AddBody(physics.BodySpec{Shape: physics.ShapeCircle, Radius: 5, Dynamic: true})
	if err != nil {
		t.Fatal(err)
	}
	if s.WallHit(other) || s.WallHit(nil) {
		t.Fatalf("only the ball ends a round")
	}
	if s.State() != StateRunning {
		t.Fatalf("state = %s, want running", s.State())
	}
}

func TestDifficultyScalesGravity(t *testing.T) {
	s, _ := newTestSession(t, quietSettings())
	mustLoad(t, s, LoadOptions{Capabilities: bothInputs})

	if g := s.World().Gravity(); math.Abs(g.Y-9.8*1.25) > 1e-9 || g.X != 0 {
		t.Fatalf("hard gravity = %+v", g)
	}
	if err := s.SetDifficulty(DifficultyEasy); err != nil {
		t.Fatal(err)
	}
	if g := s.World().Gravity(); math.Abs(g.Y-4.9) > 1e-9 {
		t.Fatalf("easy gravity = %+v", g)
	}
	if s.State() != StateLoaded {
		t.Fatalf("difficulty must not change state")
	}
	if err := s.SetDifficulty("insane"); err == nil {
		t.Fatalf("expected error for unknown difficulty")
	}

	s.Motion(0, -9.8)
	if err := s.SetDifficulty(DifficultyHard); err != nil {
		t.Fatal(err)
	}
	if g := s.World().Gravity(); math.Abs(g.Y-4.9) > 1e-9 {
		t.Fatalf("motion-driven gravity must not be rescaled, got %+v", g)
	}
}

func TestGravityTickUsesSamples(t *testing.T) {
	settings := quietSettings()
	settings.DefaultDifficulty = DifficultyMedium
	s, _ := newTestSession(t, settings)
	mustLoad(t, s, LoadOptions{Capabilities: bothInputs})
	s.Start()

	for i := 0; i < 3; i++ {
		s.Motion(1, 2)
	}
	s.estimateGravity()

	if g := s.World().Gravity(); math.Abs(g.X-1) > 1e-9 || math.Abs(g.Y+2) > 1e-9 {
		t.Fatalf("gravity = %+v, want (1, -2)", g)
	}
	if s.estimator.Pending() != 0 {
		t.Fatalf("samples not drained")
	}
	if s.Player().LinearVelocity().IsZero() {
		t.Fatalf("expected the corrective nudge to move the ball")
	}

	before := s.World().Gravity()
	s.estimateGravity()
	if s.World().Gravity() != before {
		t.Fatalf("empty window must leave gravity alone")
	}
}

func TestSamplesDoNotCarryAcrossPause(t *testing.T) {
	settings := quietSettings()
	settings.DefaultDifficulty = DifficultyMedium
	s, _ := newTestSession(t, settings)
	mustLoad(t, s, LoadOptions{Capabilities: bothInputs})
	s.Start()
	s.Motion(9, 0)
	s.Pause("menu")

	for i := 0; i < 10000; i++ {
		if s.Motion(9, 0) {
			t.Fatalf("motion while paused must not be buffered")
		}
	}
	if n := s.estimator.Pending(); n != 0 {
		t.Fatalf("pending after pause = %d, want 0", n)
	}

	s.Unpause()
	s.Motion(0, -9.8)
	s.estimateGravity()
	if g := s.World().Gravity(); math.Abs(g.X) > 1e-9 || math.Abs(g.Y-9.8) > 1e-9 {
		t.Fatalf("first tick after unpause = %+v, want (0, 9.8)", g)
	}
}

func TestMotionMappedByOrientation(t *testing.T) {
	settings := quietSettings()
	settings.DefaultDifficulty = DifficultyMedium
	s, _ := newTestSession(t, settings)
	mustLoad(t, s, LoadOptions{Capabilities: bothInputs, Orientation: 90})
	s.Start()

	s.Motion(3, 4)
	s.estimateGravity()
	// (3, 4) at 90 degrees maps to (-4, 3); y is then inverted.
	if g := s.World().Gravity(); math.Abs(g.X+4) > 1e-9 || math.Abs(g.Y+3) > 1e-9 {
		t.Fatalf("gravity = %+v, want (-4, -3)", g)
	}
}

func TestOrientationChangeWhileRunningReloads(t *testing.T) {
	s, rec := newTestSession(t, quietSettings())
	mustLoad(t, s, LoadOptions{Capabilities: bothInputs})
	s.Start()
	old := s.World()

	if !s.OrientationChange(90, nil) {
		t.Fatalf("rotation while running must reload")
	}
	if s.State() != StateLoaded || s.World() == old || s.World() == nil {
		t.Fatalf("expected a fresh loaded world, state = %s", s.State())
	}
	n := len(rec.events)
	if rec.events[n-2].Type != EventUnloaded || rec.events[n-1].Type != EventLoaded {
		t.Fatalf("expected unloaded then loaded, got %+v", rec.events[n-2:])
	}
	if s.OrientationChange(90, nil) {
		t.Fatalf("same orientation must be a no-op")
	}
}

func TestOrientationChangeWhilePausedDefers(t *testing.T) {
	s, rec := newTestSession(t, quietSettings())
	mustLoad(t, s, LoadOptions{Capabilities: bothInputs})
	s.Start()
	s.Pause("menu")
	old := s.World()

	s.OrientationChange(-90, nil)
	if s.State() != StatePaused || s.World() != old {
		t.Fatalf("rotation while paused must not reload yet")
	}
	if e := rec.last(); e.Type != EventPaused || e.Reason != reasonRotateBack {
		t.Fatalf("expected rotate-back warning, got %+v", e)
	}

	s.Unpause()
	if s.State() != StateLoaded || s.World() == old {
		t.Fatalf("unpause after rotation must reload, state = %s", s.State())
	}
}

func TestResetAppliesPendingRotation(t *testing.T) {
	s, _ := newTestSession(t, quietSettings())
	mustLoad(t, s, LoadOptions{Capabilities: bothInputs})
	s.Start()
	s.Pause("menu")
	old := s.World()

	s.OrientationChange(90, nil)
	if !s.Reset("restart") {
		t.Fatalf("reset from paused must transition")
	}
	if s.State() != StateLoaded || s.World() == old {
		t.Fatalf("reset with a pending rotation must rebuild the world, state = %s", s.State())
	}
	if s.pending || s.orientation != 90 {
		t.Fatalf("world must match the new orientation, pending=%v orientation=%d", s.pending, s.orientation)
	}

	s.Start()
	for i := 0; i < 30; i++ {
		s.stepSimulation()
	}
	s.Pause("menu")
	s.Unpause()
	if s.State() != StateRunning || s.Elapsed() != 1 {
		t.Fatalf("later pause/unpause must resume the round, state = %s elapsed = %v", s.State(), s.Elapsed())
	}
}

func TestRotateBackCancelsPendingReload(t *testing.T) {
	s, _ := newTestSession(t, quietSettings())
	mustLoad(t, s, LoadOptions{Capabilities: bothInputs})
	s.Start()
	s.Pause("menu")
	old := s.World()

	s.OrientationChange(90, nil)
	s.OrientationChange(0, nil)
	s.Unpause()
	if s.State() != StateRunning || s.World() != old {
		t.Fatalf("rotating back must resume the same world, state = %s", s.State())
	}
}

func TestPushOnlyWhileRunning(t *testing.T) {
	s, _ := newTestSession(t, quietSettings())
	mustLoad(t, s, LoadOptions{Capabilities: Capabilities{Keyboard: true}})

	if s.Push(PushLeft) {
		t.Fatalf("push before start must be ignored")
	}
	s.Start()
	if !s.Push(PushLeft) {
		t.Fatalf("push while running must apply")
	}
	if v := s.Player().LinearVelocity(); v.X >= 0 {
		t.Fatalf("left push under downward gravity must move -x, got %+v", v)
	}
	if s.Push("up") {
		t.Fatalf("unknown direction must be ignored")
	}
}

func TestUnloadDropsWorld(t *testing.T) {
	s, rec := newTestSession(t, quietSettings())
	mustLoad(t, s, LoadOptions{Capabilities: bothInputs})
	s.Start()
	s.Motion(1, 1)

	if !s.Unload() {
		t.Fatalf("Unload from running must transition")
	}
	if s.World() != nil || s.Player() != nil || s.estimator.Pending() != 0 {
		t.Fatalf("unload must drop world and samples")
	}
	if s.Motion(1, 1) {
		t.Fatalf("motion after unload must be ignored")
	}
	if rec.last().Type != EventUnloaded {
		t.Fatalf("expected unloaded event")
	}
	if s.Unload() {
		t.Fatalf("second Unload must be a no-op")
	}
}

func TestRunProcessesCommands(t *testing.T) {
	events := make(chan Event, 64)
	s, err := NewSession("run", quietSettings(), nil, NotifierFunc(func(e Event) { events <- e }))
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)

	s.Post(LoadCommand{Options: LoadOptions{Capabilities: bothInputs}})
	s.Post(StartCommand{})

	want := []EventType{EventLoaded, EventStarted}
	for _, w := range want {
		select {
		case e := <-events:
			if e.Type != w {
				t.Fatalf("event = %s, want %s", e.Type, w)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %s", w)
		}
	}

	cancel()
	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatalf("Run did not return after cancel")
	}
	if s.Snapshot().State != StateUnloaded {
		t.Fatalf("cancelled session must unload, got %s", s.Snapshot().State)
	}
	if s.Post(StartCommand{}) {
		t.Fatalf("Post after stop must fail")
	}
}
