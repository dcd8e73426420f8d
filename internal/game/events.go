package game

import "github.com/beachball/backend/internal/physics"

type EventType string

const (
	EventLoaded    EventType = "loaded"
	EventStarted   EventType = "started"
	EventPaused    EventType = "paused"
	EventUnpaused  EventType = "unpaused"
	EventReset     EventType = "reset"
	EventWallHit   EventType = "wallHit"
	EventNotLoaded EventType = "notLoaded"
	EventUnloaded  EventType = "unloaded"
)

// Event is a lifecycle notification for the UI.
type Event struct {
	Type      EventType       `json:"type"`
	SessionID string          `json:"session_id"`
	State     State           `json:"state"`
	Reason    string          `json:"reason,omitempty"`
	Elapsed   float64         `json:"elapsed,omitempty"` // seconds of running time in the round
	Position  *physics.Vector `json:"position,omitempty"`
	DrawScale float64         `json:"draw_scale,omitempty"`

	Difficulty Difficulty `json:"difficulty,omitempty"`
}

// Frame is one simulation tick's poses of the tagged bodies, in pixels.
type Frame struct {
	Tick   int                     `json:"tick"`
	Bodies map[string]physics.Pose `json:"bodies"`
}

// Renderer receives a frame after every simulation step.
type Renderer interface {
	Render(Frame)
}

// Notifier receives lifecycle events.
type Notifier interface {
	Notify(Event)
}

type RendererFunc func(Frame)

func (f RendererFunc) Render(fr Frame) { f(fr) }

type NotifierFunc func(Event)

func (f NotifierFunc) Notify(e Event) { f(e) }

var (
	DiscardRenderer Renderer = RendererFunc(func(Frame) {})
	DiscardNotifier Notifier = NotifierFunc(func(Event) {})
)
