package ws

import "github.com/beachball/backend/internal/game"

// Sink forwards a session's frames and events to its room.
type Sink struct {
	hub       *Hub
	sessionID string
}

// Sink returns the renderer and notifier for a session. It may be created
// before any client has connected; messages to an empty room are dropped.
func (h *Hub) Sink(sessionID string) *Sink {
	return &Sink{hub: h, sessionID: sessionID}
}

func (s *Sink) Render(f game.Frame) {
	s.hub.Broadcast(s.sessionID, outbound(msgFrame, f))
}

func (s *Sink) Notify(e game.Event) {
	s.hub.Broadcast(s.sessionID, outbound(msgEvent, e))
}
