package game

// State is a session's lifecycle state.
type State string

const (
	StateUnloaded State = "unloaded"
	StateLoaded   State = "loaded"
	StateRunning  State = "running"
	StatePaused   State = "paused"
	StateLost     State = "lost" // the ball left the screen; only reset or unload leave it
)

// Action drives a transition.
type Action string

const (
	ActionLoad    Action = "load"
	ActionStart   Action = "start"
	ActionUnpause Action = "unpause"
	ActionPause   Action = "pause"
	ActionReset   Action = "reset"
	ActionWallHit Action = "wallHit"
	ActionUnload  Action = "unload"
)

// transitions is the complete table. Pairs that are missing are no-ops.
var transitions = map[State]map[Action]State{
	StateUnloaded: {
		ActionLoad: StateLoaded,
	},
	StateLoaded: {
		ActionStart:   StateRunning,
		ActionUnpause: StateRunning,
		ActionReset:   StateLoaded,
		ActionUnload:  StateUnloaded,
	},
	StateRunning: {
		ActionPause:   StatePaused,
		ActionReset:   StateLoaded,
		ActionWallHit: StateLost,
		ActionUnload:  StateUnloaded,
	},
	StatePaused: {
		ActionStart:   StateRunning,
		ActionUnpause: StateRunning,
		ActionReset:   StateLoaded,
		ActionUnload:  StateUnloaded,
	},
	StateLost: {
		ActionReset:  StateLoaded,
		ActionUnload: StateUnloaded,
	},
}

// Next returns the state reached by applying a in s.
func Next(s State, a Action) (State, bool) {
	to, ok := transitions[s][a]
	return to, ok
}

// Ticking reports whether the repeaters run in s.
func (s State) Ticking() bool {
	return s == StateRunning
}
