package game

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/beachball/backend/internal/physics"
)

// Direction of a keyboard push, relative to the current gravity.
type Direction string

const (
	PushLeft  Direction = "left"
	PushRight Direction = "right"
)

func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case PushLeft, PushRight:
		return Direction(s), nil
	}
	return "", fmt.Errorf("unknown push direction %q", s)
}

// Capabilities describe which inputs the client can deliver.
type Capabilities struct {
	Motion   bool `json:"motion"`
	Keyboard bool `json:"keyboard"`
}

// LoadOptions are everything needed to build a world. A zero Layout falls
// back to DefaultLayout(800, 600).
type LoadOptions struct {
	Layout       Layout       `json:"layout"`
	Capabilities Capabilities `json:"capabilities"`
	Orientation  int          `json:"orientation"`
}

const (
	reasonNoInput       = "this device reports neither motion nor keyboard input"
	reasonKeyboardOnly  = "no motion sensor found; use the left and right arrow keys to move the ball"
	reasonRotateBack    = "orientation changed and the game will reset! rotate back to unpause"
	defaultLayoutWidth  = 800
	defaultLayoutHeight = 600
)

// RoundResult describes a round that ended with the ball leaving the screen.
type RoundResult struct {
	SessionID  string         `json:"session_id"`
	Difficulty Difficulty     `json:"difficulty"`
	Elapsed    float64        `json:"elapsed"`
	Ticks      int            `json:"ticks"`
	Position   physics.Vector `json:"position"`
	EndedAt    time.Time      `json:"ended_at"`
}

// SessionSnapshot is a point-in-time copy of a session's public state.
type SessionSnapshot struct {
	ID          string         `json:"id"`
	State       State          `json:"state"`
	Difficulty  Difficulty     `json:"difficulty"`
	Orientation int            `json:"orientation"`
	Gravity     physics.Vector `json:"gravity"`
	Elapsed     float64        `json:"elapsed"`
	DrawScale   float64        `json:"draw_scale,omitempty"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Session owns one player's world and drives it through the game lifecycle.
// Apart from Snapshot, its methods must be called from a single goroutine;
// Run provides that goroutine and Post feeds it.
type Session struct {
	id       string
	settings Settings
	renderer Renderer
	notifier Notifier
	log      *log.Logger
	rng      *rand.Rand

	state       State
	difficulty  Difficulty
	world       *physics.World
	player      *physics.Body
	resetPose   physics.Pose
	lastLoad    LoadOptions
	loadedOnce  bool
	orientation int // orientation the world was built for
	current     int // orientation last reported by the client
	pending     bool
	motionSeen  bool
	ticks       int

	estimator GravityEstimator
	loop      *SimulationLoop
	sim       *Repeater
	grav      *Repeater

	onRound      func(RoundResult)
	onTransition func(SessionSnapshot)
	onActivity   func()
	lastActivity time.Time

	inbox chan Command
	done  chan struct{}

	mu   sync.RWMutex
	snap SessionSnapshot
}

type SessionOption func(*Session)

func WithLogger(l *log.Logger) SessionOption {
	return func(s *Session) { s.log = l }
}

// WithRand fixes the source used for start nudges and pushes.
func WithRand(r *rand.Rand) SessionOption {
	return func(s *Session) { s.rng = r }
}

// WithRoundObserver is called from the session goroutine when a round is lost.
func WithRoundObserver(fn func(RoundResult)) SessionOption {
	return func(s *Session) { s.onRound = fn }
}

// WithTransitionObserver is called after every state change and difficulty change.
func WithTransitionObserver(fn func(SessionSnapshot)) SessionOption {
	return func(s *Session) { s.onTransition = fn }
}

// WithActivityHook is called at most once per second while commands arrive.
func WithActivityHook(fn func()) SessionOption {
	return func(s *Session) { s.onActivity = fn }
}

func NewSession(id string, settings Settings, renderer Renderer, notifier Notifier, opts ...SessionOption) (*Session, error) {
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	sim, err := RepeaterForRate(settings.TargetFPS)
	if err != nil {
		return nil, fmt.Errorf("simulation repeater: %w", err)
	}
	grav, err := RepeaterForRate(settings.GravityHz)
	if err != nil {
		return nil, fmt.Errorf("gravity repeater: %w", err)
	}
	if renderer == nil {
		renderer = DiscardRenderer
	}
	if notifier == nil {
		notifier = DiscardNotifier
	}

	s := &Session{
		id:         id,
		settings:   settings,
		renderer:   renderer,
		notifier:   notifier,
		state:      StateUnloaded,
		difficulty: settings.DefaultDifficulty,
		sim:        sim,
		grav:       grav,
		inbox:      make(chan Command, 256),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = log.WithPrefix("game")
	}
	s.log = s.log.With("session", id)
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	s.loop = NewSimulationLoop(settings.TargetFPS, settings.StepIterations, s.renderer)
	s.publish()
	return s, nil
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) State() State {
	return s.state
}

func (s *Session) Difficulty() Difficulty {
	return s.difficulty
}

// World returns the current world, or nil while unloaded.
func (s *Session) World() *physics.World {
	return s.world
}

// Player returns the ball, or nil while unloaded.
func (s *Session) Player() *physics.Body {
	return s.player
}

// Elapsed is the running time of the current round in seconds.
func (s *Session) Elapsed() float64 {
	return float64(s.ticks) / float64(s.settings.TargetFPS)
}

// Snapshot is safe to call from any goroutine.
func (s *Session) Snapshot() SessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Load builds the world. It reports false without error when the session is
// not unloaded or the client has no usable input.
func (s *Session) Load(opts LoadOptions) (bool, error) {
	to, ok := Next(s.state, ActionLoad)
	if !ok {
		return false, nil
	}
	if !opts.Capabilities.Motion && !opts.Capabilities.Keyboard {
		s.log.Warn("load refused", "reason", reasonNoInput)
		s.notify(Event{Type: EventNotLoaded, Reason: reasonNoInput})
		return false, nil
	}

	layout := opts.Layout
	if layout.IsZero() {
		layout = DefaultLayout(defaultLayoutWidth, defaultLayoutHeight)
	}
	layout = layout.withDefaults()
	if err := layout.Validate(); err != nil {
		return false, fmt.Errorf("invalid layout: %w", err)
	}

	world, err := physics.NewWorld(layout.DrawScale, s.baseGravity())
	if err != nil {
		return false, err
	}
	c, err := buildCourse(world, layout, s.onWallContact)
	if err != nil {
		return false, err
	}

	s.world = world
	s.player = c.player
	s.resetPose = c.player.Pose()
	s.lastLoad = opts
	s.lastLoad.Layout = layout
	s.loadedOnce = true
	s.orientation = opts.Orientation
	s.current = opts.Orientation
	s.pending = false
	s.motionSeen = false
	s.ticks = 0
	s.estimator.Clear()
	s.state = to

	reason := ""
	if !opts.Capabilities.Motion {
		reason = reasonKeyboardOnly
	}
	s.log.Info("loaded", "draw_scale", layout.DrawScale, "orientation", opts.Orientation, "bodies", world.BodyCount())
	s.notify(Event{Type: EventLoaded, Reason: reason, DrawScale: layout.DrawScale})
	s.publish()
	return true, nil
}

// Start begins a round from loaded, or resumes from paused.
func (s *Session) Start() bool {
	return s.begin(ActionStart)
}

// Unpause behaves like Start unless the device was rotated while paused, in
// which case the world is rebuilt for the new orientation instead.
func (s *Session) Unpause() bool {
	if s.state == StatePaused && s.pending {
		return s.Reload()
	}
	return s.begin(ActionUnpause)
}

func (s *Session) begin(a Action) bool {
	from := s.state
	to, ok := Next(from, a)
	if !ok {
		return false
	}

	s.estimator.Clear()
	evt := EventUnpaused
	if from == StateLoaded {
		s.restorePlayer()
		s.ticks = 0
		if s.settings.StartNudge > 0 {
			s.world.ApplyImpulse(s.player, 2*math.Pi*s.rng.Float64(), s.settings.StartNudge)
		}
		evt = EventStarted
	}

	s.state = to
	s.sim.Start()
	s.grav.Start()

	s.log.Debug("running", "from", from)
	s.notify(Event{Type: evt})
	s.publish()
	return true
}

func (s *Session) Pause(reason string) bool {
	to, ok := Next(s.state, ActionPause)
	if !ok {
		return false
	}
	s.stopRepeaters()
	s.estimator.Clear()
	s.state = to
	s.notify(Event{Type: EventPaused, Reason: reason})
	s.publish()
	return true
}

// Reset puts the ball back at its start pose and returns to loaded. If the
// device was rotated while paused, the world is rebuilt for the new
// orientation instead.
func (s *Session) Reset(reason string) bool {
	to, ok := Next(s.state, ActionReset)
	if !ok {
		return false
	}
	if s.pending {
		s.log.Info("reset with pending rotation, reloading", "orientation", s.current)
		return s.Reload()
	}
	s.stopRepeaters()
	s.restorePlayer()
	s.ticks = 0
	s.estimator.Clear()
	s.state = to
	s.notify(Event{Type: EventReset, Reason: reason})
	s.publish()
	return true
}

// WallHit ends the round if body is the ball and a round is running.
func (s *Session) WallHit(body *physics.Body) bool {
	if body == nil || body != s.player {
		return false
	}
	to, ok := Next(s.state, ActionWallHit)
	if !ok {
		return false
	}
	s.stopRepeaters()
	s.state = to

	pos := body.PixelPosition()
	result := RoundResult{
		SessionID:  s.id,
		Difficulty: s.difficulty,
		Elapsed:    s.Elapsed(),
		Ticks:      s.ticks,
		Position:   pos,
		EndedAt:    time.Now(),
	}
	s.log.Info("round lost", "elapsed", result.Elapsed, "difficulty", s.difficulty)
	s.notify(Event{
		Type:      EventWallHit,
		Reason:    fmt.Sprintf("final time: %.1fs", result.Elapsed),
		Elapsed:   result.Elapsed,
		Position:  &pos,
		DrawScale: s.world.DrawScale(),
	})
	s.publish()
	if s.onRound != nil {
		s.onRound(result)
	}
	return true
}

// Unload discards the world and all input tracking.
func (s *Session) Unload() bool {
	to, ok := Next(s.state, ActionUnload)
	if !ok {
		return false
	}
	s.stopRepeaters()
	s.world = nil
	s.player = nil
	s.pending = false
	s.motionSeen = false
	s.ticks = 0
	s.estimator.Clear()
	s.state = to
	s.notify(Event{Type: EventUnloaded})
	s.publish()
	return true
}

// Reload unloads and loads again with the last options and the most recent
// orientation.
func (s *Session) Reload() bool {
	if s.state == StateUnloaded || !s.loadedOnce {
		return false
	}
	opts := s.lastLoad
	opts.Orientation = s.current
	s.Unload()
	ok, err := s.Load(opts)
	if err != nil {
		s.log.Error("reload failed", "err", err)
	}
	return ok
}

// OrientationChange rebuilds the world for a new screen orientation. A
// running round is reloaded at once; a paused one is warned and reloaded on
// unpause. Rotating back before unpausing cancels the pending reload. layout,
// if non-nil, replaces the geometry used by the next load.
func (s *Session) OrientationChange(orientation int, layout *Layout) bool {
	s.current = orientation
	if layout != nil && !layout.IsZero() {
		s.lastLoad.Layout = *layout
	}

	switch s.state {
	case StateUnloaded:
		return false
	case StatePaused:
		if orientation == s.orientation {
			s.pending = false
			return false
		}
		s.pending = true
		s.notify(Event{Type: EventPaused, Reason: reasonRotateBack})
		return true
	default:
		if orientation == s.orientation {
			return false
		}
		return s.Reload()
	}
}

// Motion records a raw accelerometer sample, compensated for the current
// orientation. Samples are buffered only while running, since the estimator
// only ticks then; in loaded and paused they just mark the device as a
// motion source. It reports whether the sample was buffered.
func (s *Session) Motion(x, y float64) bool {
	switch s.state {
	case StateLoaded, StatePaused:
		s.motionSeen = true
		return false
	case StateRunning:
	default:
		return false
	}
	mx, my := MapDeviceAxes(x, y, s.current)
	s.estimator.AddSample(mx, my)
	s.motionSeen = true
	return true
}

// Push gives the ball a small random kick perpendicular to gravity.
func (s *Session) Push(dir Direction) bool {
	if s.state != StateRunning {
		return false
	}
	g := s.world.Gravity()
	base := math.Pi / 2
	if !g.IsZero() {
		base = g.Angle()
	}

	var angle float64
	switch dir {
	case PushLeft:
		angle = base + math.Pi/2
	case PushRight:
		angle = base - math.Pi/2
	default:
		return false
	}
	mag := s.settings.PushMagnitude * (1 + s.rng.Float64()) * s.scale()
	s.world.ApplyImpulse(s.player, angle, mag)
	return true
}

// SetDifficulty changes the scale applied to gravity and impulses. Without
// motion input the current gravity is rescaled immediately.
func (s *Session) SetDifficulty(d Difficulty) error {
	if _, ok := s.settings.Difficulties[d]; !ok {
		return fmt.Errorf("difficulty %q is not configured", d)
	}
	s.difficulty = d
	if s.world != nil && !s.motionSeen {
		s.world.SetGravity(s.baseGravity())
	}
	s.publish()
	return nil
}

func (s *Session) stepSimulation() {
	if s.state != StateRunning {
		return
	}
	s.ticks++
	s.loop.Tick(s.world, s.ticks)
}

func (s *Session) estimateGravity() {
	if s.state != StateRunning {
		return
	}
	g, ok := s.estimator.Estimate(s.scale())
	if !ok {
		return
	}
	s.estimator.Apply(s.world, s.player, g, s.settings.NudgeMagnitude*s.scale())
}

func (s *Session) onWallContact(_, other *physics.Body) {
	s.WallHit(other)
}

func (s *Session) restorePlayer() {
	s.world.ResetBody(s.player, s.resetPose.X, s.resetPose.Y, s.resetPose.Angle)
}

func (s *Session) stopRepeaters() {
	s.sim.Stop()
	s.grav.Stop()
}

func (s *Session) scale() float64 {
	return s.settings.Difficulties.Scale(s.difficulty)
}

func (s *Session) baseGravity() physics.Vector {
	return s.settings.DefaultGravity.Times(s.scale())
}

func (s *Session) notify(e Event) {
	e.SessionID = s.id
	e.State = s.state
	e.Difficulty = s.difficulty
	s.notifier.Notify(e)
}

func (s *Session) publish() {
	snap := SessionSnapshot{
		ID:          s.id,
		State:       s.state,
		Difficulty:  s.difficulty,
		Orientation: s.current,
		Elapsed:     s.Elapsed(),
		UpdatedAt:   time.Now(),
	}
	if s.world != nil {
		snap.Gravity = s.world.Gravity()
		snap.DrawScale = s.world.DrawScale()
	}
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()

	if s.onTransition != nil {
		s.onTransition(snap)
	}
}
